// Package reader implements the parse side of the engine described in
// SPEC_FULL.md §4.4: discovering every RIFF segment in a container file,
// parsing the header list of the first segment, assimilating whichever
// index form is present (legacy idx1, hybrid master+chunk, or a
// synthesized walk of the movie list), and serving positional frame
// reads against the resulting container.Handle.
//
// Grounded on original_source/source/avi2_Read.c: WalkRiff, ParseAVIFile,
// ParseHeaderList, ParseStreamList, ParseLegacyIndex, ParseMasterIndex,
// ParseChunkIndex, ChunkIndexHelper, GenerateIndex, GetBaseTableIdx.
// Cross-grounded on other_examples' format-avi-demuxer.go.go for the
// per-codec strf dispatch shape (video vs. audio distinguished by the
// stream list's strh.Type, not by chunk tag).
package reader

import (
	"errors"
	"io"

	"github.com/movidx/avi2/internal/aviformat"
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	internalerrors "github.com/movidx/avi2/pkg/errors"
)

// parser holds the handle plus the scratch state needed only during
// parsing: the master-index entries read from each stream's indx chunk,
// each pointing at a chunk-index chunk inside one segment.
type parser struct {
	h        *container.Handle
	videoIdx []aviformat.SuperIndexEntry
	audioIdx []aviformat.SuperIndexEntry
}

// Open parses an existing container file into h, which must already have
// its File, Index, and Segments fields populated by the caller (the
// facade) and Mode set to container.ModeRead.
func Open(h *container.Handle) error {
	p := &parser{h: h}
	if err := p.walkSegments(); err != nil {
		return err
	}
	if err := p.parseFirstSegment(); err != nil {
		return err
	}
	if err := p.assimilateIndex(); err != nil {
		return err
	}
	return nil
}

// walkSegments discovers every top-level RIFF segment in the file by
// following each segment's declared size to find the next, recording
// each one's absolute start offset in h.Segments. Mirrors WalkRiff.
func (p *parser) walkSegments() error {
	h := p.h
	size, err := p.fileSize()
	if err != nil {
		return err
	}

	offset := int64(0)
	for offset < size {
		if _, err := h.File.QSeek(offset); err != nil {
			return err
		}
		hdr, err := fourcc.ReadChunkHeader(h.File)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return err
		}
		if !hdr.ID.Equal(fourcc.RIFF) {
			if h.Segments.Len() == 0 {
				return internalerrors.NewCorruptedError("file does not begin with a RIFF tag").
					WithOffset(offset).WithChunkTag(hdr.ID.String())
			}
			break
		}
		if err := h.Segments.Append(offset); err != nil {
			return err
		}
		next := offset + 8 + int64(fourcc.AlignSize(hdr.Size))
		if next <= offset {
			break
		}
		offset = next
	}

	if h.Segments.Len() == 0 {
		return internalerrors.NewCorruptedError("no RIFF segments found")
	}
	return nil
}

func (p *parser) fileSize() (int64, error) {
	f := p.h.File
	cur, err := f.QTell()
	if err != nil {
		return 0, err
	}
	end, err := f.QSeekFrom(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := f.QSeekFrom(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// parseFirstSegment reads the RIFF AVI /AVIX tag, the hdrl list (avih,
// strl x N, optional odml), and locates the movi list, establishing the
// seek base and h.MoviStart used by every later frame read. Mirrors
// ParseAVIFile + ParseHeaderList.
func (p *parser) parseFirstSegment() error {
	h := p.h
	base, ok := h.Segments.Base(0)
	if !ok {
		return internalerrors.NewCorruptedError("segment table is empty")
	}
	h.File.SetBase(base)

	if _, err := h.File.QSeek(base); err != nil {
		return err
	}
	riffHdr, err := fourcc.ReadChunkHeader(h.File)
	if err != nil {
		return err
	}
	if !riffHdr.ID.Equal(fourcc.RIFF) {
		return internalerrors.NewCorruptedError("first segment is not a RIFF chunk").WithOffset(base)
	}
	form, err := fourcc.ReadTag(h.File)
	if err != nil {
		return err
	}
	if !form.Equal(fourcc.AVI_) && !form.Equal(fourcc.AVIX) {
		return internalerrors.NewCorruptedError("unrecognized RIFF form type").WithChunkTag(form.String())
	}

	listHdr, err := fourcc.ReadChunkHeader(h.File)
	if err != nil {
		return err
	}
	if !listHdr.ID.Equal(fourcc.LIST) {
		return internalerrors.NewCorruptedError("expected hdrl LIST").WithChunkTag(listHdr.ID.String())
	}
	listForm, err := fourcc.ReadTag(h.File)
	if err != nil {
		return err
	}
	if !listForm.Equal(fourcc.HDRL) {
		return internalerrors.NewCorruptedError("expected hdrl form").WithChunkTag(listForm.String())
	}
	hdrlEnd, err := h.File.QTell()
	if err != nil {
		return err
	}
	hdrlEnd += int64(fourcc.AlignSize(listHdr.Size)) - 4

	sawAvih := false
	for {
		pos, err := h.File.QTell()
		if err != nil {
			return err
		}
		if pos >= hdrlEnd {
			break
		}
		child, err := fourcc.ReadChunkHeader(h.File)
		if err != nil {
			return err
		}
		bodyStart, err := h.File.QTell()
		if err != nil {
			return err
		}

		switch {
		case child.ID.Equal(fourcc.AVIH):
			if sawAvih {
				return internalerrors.NewCorruptedError("duplicate avih chunk").WithOffset(bodyStart)
			}
			sawAvih = true
			if err := p.parseMainHeader(child.Size); err != nil {
				return err
			}
		case child.ID.Equal(fourcc.LIST):
			if err := p.parseHdrlList(child.Size); err != nil {
				return err
			}
		}

		if _, err := h.File.QSeek(bodyStart + int64(fourcc.AlignSize(child.Size))); err != nil {
			return err
		}
	}
	if !sawAvih {
		return internalerrors.NewCorruptedError("missing avih chunk")
	}

	return p.locateMovi(hdrlEnd)
}

func (p *parser) parseMainHeader(size uint32) error {
	buf, err := aviformat.ReadFull(p.h.File, int(size))
	if err != nil {
		return err
	}
	if len(buf) < aviformat.MainHeaderSize {
		return internalerrors.NewCorruptedError("avih chunk shorter than expected")
	}
	main := aviformat.UnmarshalMainHeader(buf)
	p.h.Video.FrameCount = main.TotalFrames
	return nil
}

// parseHdrlList dispatches a LIST child of hdrl: strl (one video or audio
// stream) or odml (the extended frame-count header for segmented files).
func (p *parser) parseHdrlList(size uint32) error {
	form, err := fourcc.ReadTag(p.h.File)
	if err != nil {
		return err
	}
	bodyStart, err := p.h.File.QTell()
	if err != nil {
		return err
	}
	end := bodyStart + int64(fourcc.AlignSize(size)) - 4

	switch {
	case form.Equal(fourcc.STRL):
		return p.parseStreamList(end)
	case form.Equal(fourcc.ODML):
		return p.parseODML(end)
	}
	return nil
}

// parseStreamList reads one strl's strh, strf, optional strn, vprp, and
// indx, assigning the parsed fields to h.Video or h.Audio according to
// strh's declared stream type. Mirrors ParseStreamList.
func (p *parser) parseStreamList(end int64) error {
	h := p.h
	var strhType fourcc.Tag
	var sh aviformat.StreamHeader
	var superIndex []aviformat.SuperIndexEntry
	sawStrh := false

	for {
		pos, err := h.File.QTell()
		if err != nil {
			return err
		}
		if pos >= end {
			break
		}
		child, err := fourcc.ReadChunkHeader(h.File)
		if err != nil {
			return err
		}
		bodyStart, err := h.File.QTell()
		if err != nil {
			return err
		}

		switch {
		case child.ID.Equal(fourcc.STRH):
			buf, err := aviformat.ReadFull(h.File, int(child.Size))
			if err != nil {
				return err
			}
			sh = aviformat.UnmarshalStreamHeader(buf)
			strhType = sh.Type
			sawStrh = true
		case child.ID.Equal(fourcc.STRF):
			if err := p.parseStreamFormat(strhType, child.Size); err != nil {
				return err
			}
		case child.ID.Equal(fourcc.STRN):
			buf, err := aviformat.ReadFull(h.File, int(child.Size))
			if err != nil {
				return err
			}
			name := trimNulString(buf)
			if strhType.Equal(fourcc.VIDS) {
				h.Video.Name = name
			} else if strhType.Equal(fourcc.AUDS) {
				h.Audio.Name = name
			}
		case child.ID.Equal(fourcc.VPRP):
			buf, err := aviformat.ReadFull(h.File, int(child.Size))
			if err != nil {
				return err
			}
			h.Video.FieldDesc = buf
		case child.ID.Equal(fourcc.INDX):
			buf, err := aviformat.ReadFull(h.File, int(child.Size))
			if err != nil {
				return err
			}
			superIndex = parseSuperIndexBuf(buf)
		}

		if _, err := h.File.QSeek(bodyStart + int64(fourcc.AlignSize(child.Size))); err != nil {
			return err
		}
	}

	if !sawStrh {
		return internalerrors.NewCorruptedError("strl list missing strh")
	}
	if strhType.Equal(fourcc.VIDS) {
		h.HasVideo = true
		h.Video.Configured = true
		h.Video.Codec = sh.Handler
		h.Video.FPSNum, h.Video.FPSDen = sh.Rate, sh.Scale
		if sh.Scale != 0 {
			h.Video.FPS = float64(sh.Rate) / float64(sh.Scale)
		}
		if sh.Length != 0 {
			h.Video.FrameCount = sh.Length
		}
		p.videoIdx = superIndex
	} else if strhType.Equal(fourcc.AUDS) {
		h.HasAudio = true
		h.Audio.Configured = true
		h.Audio.Codec = sh.Handler
		h.Audio.FrameCount = sh.Length
		p.audioIdx = superIndex
	}
	return nil
}

// parseSuperIndexBuf decodes a 24-byte IndexChunkHeader followed by
// EntriesInUse 16-byte SuperIndexEntry records from an in-memory indx
// chunk body.
func parseSuperIndexBuf(buf []byte) []aviformat.SuperIndexEntry {
	if len(buf) < aviformat.IndexChunkHeaderSize {
		return nil
	}
	hdr := aviformat.UnmarshalIndexChunkHeader(buf[:aviformat.IndexChunkHeaderSize])
	if hdr.Type != aviformat.AVI_INDEX_OF_INDEXES {
		return nil
	}
	body := buf[aviformat.IndexChunkHeaderSize:]
	n := int(hdr.EntriesInUse)
	out := make([]aviformat.SuperIndexEntry, 0, n)
	for i := 0; i < n; i++ {
		off := i * aviformat.SuperIndexEntrySize
		if off+aviformat.SuperIndexEntrySize > len(body) {
			break
		}
		// qwOffset == 0 sentinels are kept; the caller skips them with a warning.
		out = append(out, aviformat.UnmarshalSuperIndexEntry(body[off:off+aviformat.SuperIndexEntrySize]))
	}
	return out
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func (p *parser) parseStreamFormat(streamType fourcc.Tag, size uint32) error {
	h := p.h
	buf, err := aviformat.ReadFull(h.File, int(size))
	if err != nil {
		return err
	}
	switch {
	case streamType.Equal(fourcc.VIDS):
		if len(buf) < aviformat.BitmapInfoHeaderSize {
			return internalerrors.NewCorruptedError("strf video payload shorter than expected")
		}
		bmi := aviformat.UnmarshalBitmapInfoHeader(buf)
		h.Video.Width = uint32(bmi.Width)
		h.Video.Height = uint32(bmi.Height)
	case streamType.Equal(fourcc.AUDS):
		if len(buf) < aviformat.WaveFormatSize {
			return internalerrors.NewCorruptedError("strf audio payload shorter than expected")
		}
		wf := aviformat.UnmarshalWaveFormat(buf)
		h.Audio.Channels = wf.Channels
		h.Audio.SamplesPerSec = wf.SamplesPerSec
		h.Audio.BitsPerSample = wf.BitsPerSample
		h.Audio.BlockAlign = wf.BlockAlign
		h.Audio.AvgBytesPerSec = wf.AvgBytesPerSec
		if len(buf) > aviformat.WaveFormatSize {
			extra := make([]byte, len(buf)-aviformat.WaveFormatSize)
			copy(extra, buf[aviformat.WaveFormatSize:])
			h.Audio.ExtraFormatData = extra
		}
	}
	return nil
}

// parseODML reads the dmlh chunk, which carries the true total frame
// count across every segment (the first segment's avih.dwTotalFrames
// only ever describes that one segment).
func (p *parser) parseODML(end int64) error {
	h := p.h
	for {
		pos, err := h.File.QTell()
		if err != nil {
			return err
		}
		if pos >= end {
			break
		}
		child, err := fourcc.ReadChunkHeader(h.File)
		if err != nil {
			return err
		}
		bodyStart, err := h.File.QTell()
		if err != nil {
			return err
		}
		if child.ID.Equal(fourcc.DMLH) {
			buf, err := aviformat.ReadFull(h.File, int(child.Size))
			if err != nil {
				return err
			}
			if len(buf) >= 4 {
				h.Video.FrameCount = leUint32(buf)
			}
		}
		if _, err := h.File.QSeek(bodyStart + int64(fourcc.AlignSize(child.Size))); err != nil {
			return err
		}
	}
	return nil
}

// locateMovi scans forward from the end of hdrl for the movi LIST,
// recording the handle's movi start offset (relative to the current seek
// base) used by both index-offset normalization and frame reads.
func (p *parser) locateMovi(searchFrom int64) error {
	h := p.h
	if _, err := h.File.QSeek(searchFrom); err != nil {
		return err
	}
	for {
		hdr, err := fourcc.ReadChunkHeader(h.File)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return internalerrors.NewCorruptedError("movi list not found")
			}
			return err
		}
		bodyStart, err := h.File.QTell()
		if err != nil {
			return err
		}
		if hdr.ID.Equal(fourcc.LIST) {
			form, err := fourcc.ReadTag(h.File)
			if err != nil {
				return err
			}
			if form.Equal(fourcc.MOVI) {
				relPos, err := h.File.GetPos()
				if err != nil {
					return err
				}
				h.MoviStart = relPos
				return nil
			}
		}
		if _, err := h.File.QSeek(bodyStart + int64(fourcc.AlignSize(hdr.Size))); err != nil {
			return err
		}
	}
}

func trimNulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// assimilateIndex chooses and runs exactly one of the three index
// strategies, in priority order: master index (present whenever either
// stream's strl carried an indx super-index), legacy idx1, or — failing
// both, and only if AutoIndex is enabled — a walk of every segment's
// movi list.
func (p *parser) assimilateIndex() error {
	h := p.h
	found := false
	var err error

	if len(p.videoIdx) > 0 || len(p.audioIdx) > 0 {
		found, err = p.parseMasterIndexes()
		if err != nil {
			return err
		}
	}
	if !found {
		found, err = p.parseLegacyIndex()
		if err != nil {
			return err
		}
	}
	if !found {
		if !h.Options.AutoIndex {
			return internalerrors.NewContainerError(nil, internalerrors.ErrorCodeNoIndex, "no usable index found and auto-index is disabled")
		}
		h.Log.Warnw("no idx1 or master index found, synthesizing index from movi list scan")
		return p.generateIndex()
	}
	return nil
}

// parseLegacyIndex looks for an idx1 chunk immediately after the first
// segment's movi list and, if found, demultiplexes its entries by stream
// tag into h.Index.
//
// dwChunkOffset may be either movie-relative (entry 0's offset == 4, per
// the official spec) or absolute/segment-relative (some older writers);
// the parser detects which before normalizing. Mirrors ParseLegacyIndex's
// IdxRelMovi classification and its sanity-check seek to entry 0 (which
// transparently unwraps an enclosing `LIST rec ` wrapper). Every entry is
// stored pointing at the chunk's payload, not its tag, matching this
// engine's in-memory index convention — so normalized-to-tag offsets are
// shifted right by 8 once classified.
func (p *parser) parseLegacyIndex() (bool, error) {
	h := p.h
	base, _ := h.Segments.Base(0)
	hdr, ok, err := p.findChunkAfterMovi(base, fourcc.IDX1)
	if err != nil || !ok {
		return false, err
	}

	count := int(hdr.Size) / aviformat.LegacyIndexEntrySize
	if count == 0 {
		return false, nil
	}
	entries := make([]aviformat.LegacyIndexEntry, count)
	for i := range entries {
		buf, err := aviformat.ReadFull(h.File, aviformat.LegacyIndexEntrySize)
		if err != nil {
			return false, err
		}
		entries[i] = aviformat.UnmarshalLegacyIndexEntry(buf)
	}

	relativeToMovi := entries[0].ChunkOffset == 4
	if !relativeToMovi && entries[0].ChunkOffset < h.MoviStart {
		return false, internalerrors.NewCorruptedError("legacy index entry 0 offset precedes the movie list").
			WithOffset(int64(entries[0].ChunkOffset))
	}
	if err := p.verifyLegacyIndexSanity(base, entries[0], relativeToMovi); err != nil {
		return false, err
	}

	for _, e := range entries {
		canonical, _, ok := fourcc.Canonicalize(e.ChunkID)
		if !ok {
			continue
		}

		tagPos := e.ChunkOffset
		if relativeToMovi {
			tagPos = e.ChunkOffset + h.MoviStart - 4
		}
		memOffset := tagPos + 8

		kind := index.Video
		if isAudioTag(canonical) {
			kind = index.Audio
		}
		if _, err := h.Index.Append(kind, memOffset, e.ChunkLength, 0, e.Flags&aviformat.AVIIF_KEYFRAME != 0); err != nil {
			return false, err
		}
	}
	return true, nil
}

// verifyLegacyIndexSanity seeks to the position entry 0 claims to hold
// the chunk's tag and confirms it, unwrapping one enclosing `LIST rec `
// wrapper first if present.
func (p *parser) verifyLegacyIndexSanity(segBase int64, first aviformat.LegacyIndexEntry, relativeToMovi bool) error {
	h := p.h
	tagPos := first.ChunkOffset
	if relativeToMovi {
		tagPos = first.ChunkOffset + h.MoviStart - 4
	}
	if _, err := h.File.QSeek(segBase + int64(tagPos)); err != nil {
		return err
	}
	tag, err := fourcc.ReadTag(h.File)
	if err != nil {
		return err
	}
	if tag.Equal(fourcc.LIST) {
		if _, err := aviformat.ReadFull(h.File, 4); err != nil { // skip the LIST's declared size
			return err
		}
		if _, err := fourcc.ReadTag(h.File); err != nil { // skip the 'rec ' subform tag
			return err
		}
		if tag, err = fourcc.ReadTag(h.File); err != nil {
			return err
		}
	}
	if !tag.Equal(first.ChunkID) {
		return internalerrors.NewCorruptedError("legacy index entry 0 does not match the tag found at its offset").
			WithChunkTag(tag.String())
	}
	return nil
}

// findChunkAfterMovi seeks to just after the movi list's declared size
// and looks for a chunk with the given tag.
func (p *parser) findChunkAfterMovi(segBase int64, want fourcc.Tag) (fourcc.ChunkHeader, bool, error) {
	h := p.h
	if _, err := h.File.QSeek(segBase + int64(h.MoviStart) - 12); err != nil {
		return fourcc.ChunkHeader{}, false, err
	}
	moviListHdr, err := fourcc.ReadChunkHeader(h.File)
	if err != nil {
		return fourcc.ChunkHeader{}, false, err
	}
	next := segBase + int64(h.MoviStart) - 4 + int64(fourcc.AlignSize(moviListHdr.Size))
	if _, err := h.File.QSeek(next); err != nil {
		return fourcc.ChunkHeader{}, false, err
	}
	hdr, err := fourcc.ReadChunkHeader(h.File)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fourcc.ChunkHeader{}, false, nil
		}
		return fourcc.ChunkHeader{}, false, err
	}
	if !hdr.ID.Equal(want) {
		return fourcc.ChunkHeader{}, false, nil
	}
	return hdr, true, nil
}

func isAudioTag(t fourcc.Tag) bool {
	return t[2] == 'w' && t[3] == 'b'
}
