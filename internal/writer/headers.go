package writer

import (
	"github.com/movidx/avi2/internal/aviformat"
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	internalerrors "github.com/movidx/avi2/pkg/errors"
	"github.com/movidx/avi2/pkg/options"
)

// headerPadUnit is the per-stream JUNK reservation spec.md §4.5 sets
// aside before the movi list so header fields can grow in place on a
// future write without relocating the movie data: 2 KiB plus 2 KiB per
// configured stream.
const headerPadUnit = 2048

// videoStreamNum and audioStreamNum are fixed: this engine carries at
// most one video and one audio stream, per SPEC_FULL.md §3.
const (
	videoStreamNum = 0
	audioStreamNum = 1
)

// ensureHeaders lazily emits the first segment's full RIFF/hdrl/movi
// skeleton on the first write call. Because SetVideo/SetAudio must be
// called before the first frame (enforced by the function-order check
// in config.go), every field the header needs is already final, so — in
// contrast to a naive two-pass muxer — only running totals discovered
// during writing (frame counts, chunk sizes) need a later patch.
func ensureHeaders(h *container.Handle) error {
	s := getState(h)
	if s.headerWritten {
		return nil
	}
	if !h.HasVideo {
		return missingVideoError()
	}

	form := fourcc.AVI_
	if h.Options.WriteMode == options.WriteModeModern {
		form = fourcc.AVIX
	}

	if err := h.Segments.Append(0); err != nil {
		return err
	}
	if _, err := h.File.QSeek(0); err != nil {
		return err
	}
	h.File.SetBase(0)

	sizePos, _, err := beginPlaceholderChunk(h, fourcc.RIFF)
	if err != nil {
		return err
	}
	s.riffSizePos = sizePos
	if err := fourcc.WriteTag(h.File, form); err != nil {
		return err
	}

	if err := writeHdrlList(h, s); err != nil {
		return err
	}
	if err := writeInfoList(h); err != nil {
		return err
	}
	if err := writeHeaderPadding(h); err != nil {
		return err
	}

	moviSizePos, _, err := beginPlaceholderChunk(h, fourcc.LIST)
	if err != nil {
		return err
	}
	s.moviSizePos = moviSizePos
	if err := fourcc.WriteTag(h.File, fourcc.MOVI); err != nil {
		return err
	}
	moviStart, err := h.File.GetPos()
	if err != nil {
		return err
	}
	h.MoviStart = moviStart

	s.headerWritten = true
	s.segVideoFirst, s.segAudioFirst = 0, 0
	return nil
}

// writeHeaderPadding reserves headerPadUnit*(1+streamCount) bytes ahead
// of the movi list as a single JUNK chunk, so existing decoders see a
// valid chunk sequence over the reserved region rather than stopping at
// an unrecognized gap. h.HeaderEnd records where the reservation ends,
// checked immediately after to catch a future change that desyncs the
// two computations.
func writeHeaderPadding(h *container.Handle) error {
	reserved := headerPadUnit * (1 + int(streamCount(h)))
	start, err := h.File.QTell()
	if err != nil {
		return err
	}
	if _, err := writeChunk(h, fourcc.JUNK, make([]byte, reserved-8)); err != nil {
		return err
	}
	h.HeaderEnd = uint32(start + int64(reserved))

	end, err := h.File.QTell()
	if err != nil {
		return err
	}
	if uint32(end) != h.HeaderEnd {
		return internalerrors.NewContainerError(nil, internalerrors.ErrorCodeInternal,
			"header padding chunk did not end at the reserved offset")
	}
	return nil
}

func writeHdrlList(h *container.Handle, s *state) error {
	hdrlSizePos, _, err := beginPlaceholderChunk(h, fourcc.LIST)
	if err != nil {
		return err
	}
	if err := fourcc.WriteTag(h.File, fourcc.HDRL); err != nil {
		return err
	}

	if err := writeMainHeader(h, s); err != nil {
		return err
	}
	if err := writeStreamList(h, s, true); err != nil {
		return err
	}
	if h.HasAudio {
		if err := writeStreamList(h, s, false); err != nil {
			return err
		}
	}
	if h.Options.WriteMode != options.WriteModeLegacy {
		if err := writeODML(h, s); err != nil {
			return err
		}
	}

	end, err := h.File.QTell()
	if err != nil {
		return err
	}
	return patchUint32(h, hdrlSizePos, uint32(end-(hdrlSizePos+4)))
}

func streamCount(h *container.Handle) uint32 {
	n := uint32(1)
	if h.HasAudio {
		n = 2
	}
	return n
}

func writeMainHeader(h *container.Handle, s *state) error {
	microSecPerFrame := uint32(0)
	if h.Video.FPSNum != 0 {
		microSecPerFrame = uint32(uint64(1_000_000) * uint64(h.Video.FPSDen) / uint64(h.Video.FPSNum))
	}
	flags := aviformat.AVIF_HASINDEX
	if h.Options.WriteMode != options.WriteModeLegacy {
		// TRUSTCKTYPE promises a reader that every chunk tag inside movi
		// agrees with the master index, which only exists outside legacy mode.
		flags |= aviformat.AVIF_TRUSTCKTYPE
	}
	main := aviformat.MainHeader{
		MicroSecPerFrame:   microSecPerFrame,
		MaxBytesPerSec:     0,
		PaddingGranularity: 0,
		Flags:              flags,
		TotalFrames:        0,
		InitialFrames:      0,
		Streams:            streamCount(h),
		SuggestedBufferSize: 0,
		Width:              h.Video.Width,
		Height:             h.Video.Height,
	}
	payloadStart, err := writeChunk(h, fourcc.AVIH, main.Marshal())
	if err != nil {
		return err
	}
	s.avihPos = payloadStart + 16 // offset of dwTotalFrames within MainHeader
	return nil
}

func writeStreamList(h *container.Handle, s *state, video bool) error {
	listSizePos, _, err := beginPlaceholderChunk(h, fourcc.LIST)
	if err != nil {
		return err
	}
	if err := fourcc.WriteTag(h.File, fourcc.STRL); err != nil {
		return err
	}

	strhPos, err := writeStreamHeader(h, video)
	if err != nil {
		return err
	}
	if video {
		s.videoStrhPos = strhPos
	} else {
		s.audioStrhPos = strhPos
	}

	if err := writeStreamFormat(h, video); err != nil {
		return err
	}

	name := h.Video.Name
	if !video {
		name = h.Audio.Name
	}
	if name != "" {
		if err := writeStreamName(h, name); err != nil {
			return err
		}
	}
	if video && len(h.Video.FieldDesc) > 0 {
		if _, err := writeChunk(h, fourcc.VPRP, h.Video.FieldDesc); err != nil {
			return err
		}
	}

	if h.Options.WriteMode != options.WriteModeLegacy {
		stream := index.Audio
		if video {
			stream = index.Video
		}
		if err := writeSuperIndexPlaceholder(h, s, stream, video); err != nil {
			return err
		}
	}

	end, err := h.File.QTell()
	if err != nil {
		return err
	}
	return patchUint32(h, listSizePos, uint32(end-(listSizePos+4)))
}

func writeStreamHeader(h *container.Handle, video bool) (int64, error) {
	var sh aviformat.StreamHeader
	if video {
		sh = aviformat.StreamHeader{
			Type:     fourcc.VIDS,
			Handler:  h.Video.Codec,
			Quality:  0xFFFFFFFF,
			Scale:    h.Video.FPSDen,
			Rate:     h.Video.FPSNum,
			FrameRight: int16(h.Video.Width),
			FrameBottom: int16(h.Video.Height),
		}
	} else {
		sh = aviformat.StreamHeader{
			Type:       fourcc.AUDS,
			Handler:    h.Audio.Codec,
			Quality:    0xFFFFFFFF,
			Scale:      1,
			Rate:       h.Audio.SamplesPerSec,
			SampleSize: uint32(h.Audio.BlockAlign),
		}
	}
	payloadStart, err := writeChunk(h, fourcc.STRH, sh.Marshal())
	if err != nil {
		return 0, err
	}
	return payloadStart + 32, nil // offset of dwLength within StreamHeader
}

func writeStreamFormat(h *container.Handle, video bool) error {
	if video {
		bmi := aviformat.BitmapInfoHeader{
			Size:        aviformat.BitmapInfoHeaderSize,
			Width:       int32(h.Video.Width),
			Height:      int32(h.Video.Height),
			Planes:      1,
			BitCount:    24,
			Compression: h.Video.Codec,
			SizeImage:   h.Video.Width * h.Video.Height * 3,
		}
		_, err := writeChunk(h, fourcc.STRF, bmi.Marshal())
		return err
	}

	// Audio.Codec stores the 16-bit WAVE format tag in its first two
	// bytes (little-endian), the remaining two unused; this keeps the
	// same fourcc.Tag field shape set-audio shares with set-video's
	// 4-byte compression fourcc.
	formatTag := uint16(h.Audio.Codec[0]) | uint16(h.Audio.Codec[1])<<8
	wf := aviformat.WaveFormat{
		FormatTag:      formatTag,
		Channels:       h.Audio.Channels,
		SamplesPerSec:  h.Audio.SamplesPerSec,
		AvgBytesPerSec: h.Audio.AvgBytesPerSec,
		BlockAlign:     h.Audio.BlockAlign,
		BitsPerSample:  h.Audio.BitsPerSample,
		ExtraSize:      uint16(len(h.Audio.ExtraFormatData)),
	}
	payload := wf.Marshal()
	payload = append(payload, h.Audio.ExtraFormatData...)
	_, err := writeChunk(h, fourcc.STRF, payload)
	return err
}

func writeStreamName(h *container.Handle, name string) error {
	payload := []byte(name)
	if len(payload) > 31 {
		payload = payload[:31]
	}
	payload = append(payload, 0)
	_, err := writeChunk(h, fourcc.STRN, payload)
	return err
}

// writeSuperIndexPlaceholder reserves one master-index (indx) chunk
// sized to hold one SuperIndexEntry per segment the handle's options
// allow, all zeroed, and records the first slot's position in the
// index Set so segment-close can patch slots in order as they fill. It
// also stashes the chunk's size/EntriesInUse field positions and first
// slot in state so Close can shrink the chunk to the segments actually
// used and fill the remainder with a trailing JUNK chunk, per
// SPEC_FULL.md's master-index sizing rule.
func writeSuperIndexPlaceholder(h *container.Handle, s *state, stream index.Stream, video bool) error {
	maxSegs := h.Options.MaxSegments
	if maxSegs <= 0 {
		maxSegs = 1
	}
	streamNum := audioStreamNum
	canonical := fourcc.CanonicalAudioChunk
	if video {
		streamNum = videoStreamNum
		canonical = fourcc.CanonicalVideoChunk
	}

	hdr := aviformat.IndexChunkHeader{
		LongsPerEntry: 4,
		SubType:       aviformat.AVI_INDEX_STANDARD,
		Type:          aviformat.AVI_INDEX_OF_INDEXES,
		EntriesInUse:  uint32(maxSegs),
		ChunkID:       fourcc.ResolveStreamTag(canonical, streamNum),
	}
	payload := hdr.Marshal()

	payloadStart, err := beginWriteChunk(h, fourcc.INDX, len(payload)+maxSegs*aviformat.SuperIndexEntrySize)
	if err != nil {
		return err
	}
	if _, err := h.File.Write(payload); err != nil {
		return err
	}

	zero := make([]byte, aviformat.SuperIndexEntrySize)
	firstSlot := payloadStart + int64(aviformat.IndexChunkHeaderSize)
	for i := 0; i < maxSegs; i++ {
		if _, err := h.File.Write(zero); err != nil {
			return err
		}
	}
	h.Index.SetSuperIndexOffset(stream, firstSlot)

	sizePos := payloadStart - 4
	entriesPos := payloadStart + 4 // IndexChunkHeader.EntriesInUse offset within the payload
	if video {
		s.videoIndxSizePos, s.videoIndxEntriesPos, s.videoIndxFirstSlot = sizePos, entriesPos, firstSlot
	} else {
		s.audioIndxSizePos, s.audioIndxEntriesPos, s.audioIndxFirstSlot = sizePos, entriesPos, firstSlot
	}
	return nil
}

// beginWriteChunk writes a chunk header with a known final size (no
// patch needed) and returns the payload start position.
func beginWriteChunk(h *container.Handle, tag fourcc.Tag, size int) (int64, error) {
	if err := fourcc.WriteChunkHeader(h.File, fourcc.ChunkHeader{ID: tag, Size: uint32(size)}); err != nil {
		return 0, err
	}
	return h.File.QTell()
}

// writeInfoList writes the optional top-level INFO list carrying the
// software-name string configured on the handle's Options.
func writeInfoList(h *container.Handle) error {
	name := h.Options.SoftwareName
	if name == "" {
		name = options.DefaultSoftwareName
	}
	infoSizePos, _, err := beginPlaceholderChunk(h, fourcc.LIST)
	if err != nil {
		return err
	}
	if err := fourcc.WriteTag(h.File, fourcc.INFO); err != nil {
		return err
	}
	isft := []byte(name)
	isft = append(isft, 0)
	if _, err := writeChunk(h, fourcc.ISFT, isft); err != nil {
		return err
	}
	end, err := h.File.QTell()
	if err != nil {
		return err
	}
	return patchUint32(h, infoSizePos, uint32(end-(infoSizePos+4)))
}

func writeODML(h *container.Handle, s *state) error {
	odmlSizePos, _, err := beginPlaceholderChunk(h, fourcc.LIST)
	if err != nil {
		return err
	}
	if err := fourcc.WriteTag(h.File, fourcc.ODML); err != nil {
		return err
	}
	payloadStart, err := writeChunk(h, fourcc.DMLH, make([]byte, 4))
	if err != nil {
		return err
	}
	s.dmlhPos = payloadStart

	end, err := h.File.QTell()
	if err != nil {
		return err
	}
	return patchUint32(h, odmlSizePos, uint32(end-(odmlSizePos+4)))
}
