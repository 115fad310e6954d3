package reader

import (
	"io"

	"github.com/movidx/avi2/internal/aviformat"
	"github.com/movidx/avi2/internal/index"
)

// parseMasterIndexes walks the super-index entries collected from each
// stream's indx chunk during header parsing, visiting the chunk-index
// chunk each one points to and demultiplexing its standard index entries
// into h.Index with offsets normalized to each entry's owning segment.
// Mirrors ParseMasterIndex + ParseChunkIndex + ChunkIndexHelper.
func (p *parser) parseMasterIndexes() (bool, error) {
	video, err := p.parseOneMasterIndex(index.Video, p.videoIdx)
	if err != nil {
		return false, err
	}
	audio, err := p.parseOneMasterIndex(index.Audio, p.audioIdx)
	if err != nil {
		return false, err
	}
	return video || audio, nil
}

func (p *parser) parseOneMasterIndex(stream index.Stream, entries []aviformat.SuperIndexEntry) (bool, error) {
	if len(entries) == 0 {
		return false, nil
	}
	h := p.h
	found := false
	for _, se := range entries {
		if se.Offset == 0 {
			h.Log.Warnw("master index entry has a zero offset, skipping", "stream", stream.String())
			continue
		}
		if _, err := h.File.QSeek(int64(se.Offset)); err != nil {
			return found, err
		}
		// Skip the ix## chunk's own tag+size; the chunk-index header that
		// follows carries everything needed to demultiplex its entries.
		if _, err := h.File.QSeekFrom(8, io.SeekCurrent); err != nil {
			return found, err
		}
		hdrBuf, err := aviformat.ReadFull(h.File, aviformat.IndexChunkHeaderSize)
		if err != nil {
			return found, err
		}
		chunkHdr := aviformat.UnmarshalIndexChunkHeader(hdrBuf)
		if chunkHdr.Type != aviformat.AVI_INDEX_OF_CHUNKS {
			continue
		}

		segmentID := h.Segments.IndexForOffset(int64(chunkHdr.BaseOffset))
		if segmentID < 0 {
			segmentID = 0
		}
		segBase, _ := h.Segments.Base(segmentID)

		n := int(chunkHdr.EntriesInUse)
		for i := 0; i < n; i++ {
			buf, err := aviformat.ReadFull(h.File, aviformat.StandardIndexEntrySize)
			if err != nil {
				return found, err
			}
			raw := aviformat.UnmarshalStandardIndexEntry(buf)
			keyframe := raw.Size&0x80000000 == 0
			size := raw.Size &^ 0x80000000 & index.MaxChunkSize
			absOffset := int64(chunkHdr.BaseOffset) + int64(raw.Offset)
			memOffset := uint32(absOffset - segBase)
			if _, err := h.Index.Append(stream, memOffset, size, segmentID, keyframe); err != nil {
				return found, err
			}
		}
		found = true
	}
	return found, nil
}
