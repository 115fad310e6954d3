package writer

import (
	"sort"

	"github.com/movidx/avi2/internal/aviformat"
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	"github.com/movidx/avi2/pkg/options"
)

// openSegment starts a new RIFF segment (always tagged AVIX; only
// segment 0 may be AVI_ and that is handled by ensureHeaders), appending
// its base offset to the handle's segment table and resetting the
// per-segment counters in state.
func openSegment(h *container.Handle) error {
	s := getState(h)

	base, err := h.File.QTell()
	if err != nil {
		return err
	}
	if err := h.Segments.Append(base); err != nil {
		return err
	}
	h.File.SetBase(base)

	riffSizePos, _, err := beginPlaceholderChunk(h, fourcc.RIFF)
	if err != nil {
		return err
	}
	if err := fourcc.WriteTag(h.File, fourcc.AVIX); err != nil {
		return err
	}

	moviSizePos, _, err := beginPlaceholderChunk(h, fourcc.LIST)
	if err != nil {
		return err
	}
	if err := fourcc.WriteTag(h.File, fourcc.MOVI); err != nil {
		return err
	}
	moviStart, err := h.File.GetPos()
	if err != nil {
		return err
	}

	s.segment = h.Segments.Len() - 1
	s.riffSizePos = riffSizePos
	s.moviSizePos = moviSizePos
	s.moviBytes = 0
	s.segVideoCount = 0
	s.segAudioCount = 0
	s.segVideoFirst = h.Index.Len(index.Video)
	s.segAudioFirst = h.Index.Len(index.Audio)
	h.MoviStart = moviStart
	return nil
}

// closeSegment finalizes the currently open segment: patches its movi
// and RIFF size fields, writes its per-segment chunk index (hybrid and
// modern modes), patches the corresponding master-index slot in segment
// 0, and — for segment 0 in legacy or hybrid mode — writes idx1 covering
// only that segment's entries. final is true only when called from
// Close, distinguishing the last segment's idx1 obligations from an
// ordinary rollover (idx1 is restricted to segment 0 regardless, so in
// practice this only matters for ordering diagnostics).
func closeSegment(h *container.Handle, final bool) error {
	s := getState(h)

	end, err := h.File.QTell()
	if err != nil {
		return err
	}
	if err := patchUint32(h, s.moviSizePos, uint32(end-(s.moviSizePos+4))); err != nil {
		return err
	}

	if h.Options.WriteMode != options.WriteModeLegacy {
		if h.HasVideo {
			if err := writeSegmentChunkIndex(h, s, index.Video, true); err != nil {
				return err
			}
		}
		if h.HasAudio {
			if err := writeSegmentChunkIndex(h, s, index.Audio, false); err != nil {
				return err
			}
		}
	}

	if s.segment == 0 && h.Options.WriteMode != options.WriteModeModern {
		if err := writeLegacyIndex(h, s); err != nil {
			return err
		}
	}

	end, err = h.File.QTell()
	if err != nil {
		return err
	}
	return patchUint32(h, s.riffSizePos, uint32(end-(s.riffSizePos+4)))
}

// writeSegmentChunkIndex writes the current segment's ix## chunk-index
// chunk for one stream and patches the next free SuperIndexEntry slot in
// segment 0's master index with a pointer to it.
func writeSegmentChunkIndex(h *container.Handle, s *state, stream index.Stream, video bool) error {
	first, count := s.segVideoFirst, s.segVideoCount
	streamNum := videoStreamNum
	canonical := fourcc.CanonicalVideoChunk
	if !video {
		first, count = s.segAudioFirst, s.segAudioCount
		streamNum = audioStreamNum
		canonical = fourcc.CanonicalAudioChunk
	}
	if count == 0 {
		return nil
	}

	segBase, _ := h.Segments.Base(s.segment)
	entries := h.Index.Entries(stream)[first : first+count]

	hdr := aviformat.IndexChunkHeader{
		LongsPerEntry: 2,
		SubType:       aviformat.AVI_INDEX_STANDARD,
		Type:          aviformat.AVI_INDEX_OF_CHUNKS,
		EntriesInUse:  uint32(count),
		ChunkID:       fourcc.ResolveStreamTag(canonical, streamNum),
		BaseOffset:    uint64(segBase),
	}

	chunkStart, err := h.File.QTell()
	if err != nil {
		return err
	}
	payload := hdr.Marshal()
	for _, e := range entries {
		size := e.Size()
		if !e.Keyframe() {
			size |= 0x80000000
		}
		se := aviformat.StandardIndexEntry{Offset: e.Offset, Size: size}
		payload = append(payload, se.Marshal()...)
	}

	if _, err := writeChunk(h, fourcc.ResolveStreamTag(fourcc.CanonicalIndexChunk, streamNum), payload); err != nil {
		return err
	}
	chunkEnd, err := h.File.QTell()
	if err != nil {
		return err
	}

	duration := uint32(count)
	if !video && h.Audio.BlockAlign > 0 {
		var total uint64
		for _, e := range entries {
			total += uint64(e.Size())
		}
		duration = uint32(total / uint64(h.Audio.BlockAlign))
	}

	slot := h.Index.SuperIndexOffset(stream)
	sie := aviformat.SuperIndexEntry{
		Offset:   uint64(chunkStart),
		Size:     uint32(chunkEnd - chunkStart),
		Duration: duration,
	}
	if err := patchBytes(h, slot, sie.Marshal()); err != nil {
		return err
	}
	h.Index.SetSuperIndexOffset(stream, slot+aviformat.SuperIndexEntrySize)
	return nil
}

// writeLegacyIndex writes idx1 covering only segment 0's entries, per
// SPEC_FULL.md's hybrid-mode rule that the legacy index never spans
// multiple segments. dwChunkOffset is measured from the 'movi' FourCC
// itself to the chunk's tag, while e.Offset (this engine's in-memory
// index) points at the chunk's payload, eight bytes past its tag —
// hence the "- h.MoviStart - 4" rather than a bare subtraction. Video
// and audio entries are merged in file order, so entry 0 describes the
// first chunk of the movi list.
func writeLegacyIndex(h *container.Handle, s *state) error {
	var entries []aviformat.LegacyIndexEntry

	appendStream := func(stream index.Stream, streamNum int, canonical fourcc.Tag) {
		first, count := s.segVideoFirst, s.segVideoCount
		if stream == index.Audio {
			first, count = s.segAudioFirst, s.segAudioCount
		}
		if count == 0 {
			return
		}
		tag := fourcc.ResolveStreamTag(canonical, streamNum)
		for _, e := range h.Index.Entries(stream)[first : first+count] {
			flags := uint32(0)
			if e.Keyframe() {
				flags = aviformat.AVIIF_KEYFRAME
			}
			le := aviformat.LegacyIndexEntry{
				ChunkID:     tag,
				Flags:       flags,
				ChunkOffset: e.Offset - h.MoviStart - 4,
				ChunkLength: e.Size(),
			}
			entries = append(entries, le)
		}
	}

	appendStream(index.Video, videoStreamNum, fourcc.CanonicalVideoChunk)
	appendStream(index.Audio, audioStreamNum, fourcc.CanonicalAudioChunk)

	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ChunkOffset < entries[j].ChunkOffset })
	var payload []byte
	for _, le := range entries {
		payload = append(payload, le.Marshal()...)
	}
	_, err := writeChunk(h, fourcc.IDX1, payload)
	return err
}

// shrinkMasterIndex patches each stream's indx chunk down to cover only
// the segments actually written and fills the rest of its reserved
// region with a trailing JUNK chunk, per SPEC_FULL.md's master-index
// sizing rule. The reserved region itself is left at its original
// maxSegs size (writeSuperIndexPlaceholder already accounted for it in
// every chunk size computed after it), so every later chunk's offset is
// unaffected by how many segments actually got written.
func shrinkMasterIndex(h *container.Handle, s *state) error {
	maxSegs := h.Options.MaxSegments
	if maxSegs <= 0 {
		maxSegs = 1
	}
	if h.HasVideo {
		if err := shrinkOneSuperIndex(h, index.Video, maxSegs, s.videoIndxSizePos, s.videoIndxEntriesPos, s.videoIndxFirstSlot); err != nil {
			return err
		}
	}
	if h.HasAudio {
		if err := shrinkOneSuperIndex(h, index.Audio, maxSegs, s.audioIndxSizePos, s.audioIndxEntriesPos, s.audioIndxFirstSlot); err != nil {
			return err
		}
	}
	return nil
}

func shrinkOneSuperIndex(h *container.Handle, stream index.Stream, maxSegs int, sizePos, entriesPos, firstSlot int64) error {
	used := int((h.Index.SuperIndexOffset(stream) - firstSlot) / aviformat.SuperIndexEntrySize)

	if err := patchUint32(h, sizePos, uint32(aviformat.IndexChunkHeaderSize+used*aviformat.SuperIndexEntrySize)); err != nil {
		return err
	}
	if err := patchUint32(h, entriesPos, uint32(used)); err != nil {
		return err
	}
	if used >= maxSegs {
		return nil
	}

	junkPos := firstSlot + int64(used)*aviformat.SuperIndexEntrySize
	junkSize := uint32((maxSegs-used)*aviformat.SuperIndexEntrySize) - 8
	return patchBytes(h, junkPos, chunkHeaderBytes(fourcc.JUNK, junkSize))
}
