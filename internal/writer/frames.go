package writer

import (
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	internalerrors "github.com/movidx/avi2/pkg/errors"
	"github.com/movidx/avi2/pkg/options"
)

// WriteVideoFrame appends one video frame to the currently open segment,
// rolling over to a new segment first if the write mode and size limits
// require it.
func WriteVideoFrame(h *container.Handle, payload []byte, keyframe bool) error {
	return writeFrame(h, index.Video, fourcc.CanonicalVideoChunk, payload, keyframe)
}

// WriteAudioFrame appends one audio chunk to the currently open segment.
// Every audio entry is marked keyframe=true: this engine's index does not
// model partial audio dependency.
func WriteAudioFrame(h *container.Handle, payload []byte) error {
	if !h.HasAudio {
		return internalerrors.NewContainerError(
			nil, internalerrors.ErrorCodeBadParameter, "no audio stream configured",
		).WithDetail("operation", "WriteAudioFrame")
	}
	return writeFrame(h, index.Audio, fourcc.CanonicalAudioChunk, payload, true)
}

func writeFrame(h *container.Handle, stream index.Stream, canonical fourcc.Tag, payload []byte, keyframe bool) error {
	if h.Mode != container.ModeWrite {
		return internalerrors.NewWrongModeError("WriteFrame")
	}
	if !h.HasVideo {
		return missingVideoError()
	}
	if len(payload) > index.MaxChunkSize {
		return internalerrors.NewContainerError(
			nil, internalerrors.ErrorCodeBadParameter, "frame payload exceeds 16MiB ceiling",
		).WithDetail("size", len(payload))
	}

	if err := ensureHeaders(h); err != nil {
		return err
	}

	s := getState(h)

	if h.Options.WriteMode == options.WriteModeLegacy {
		if legacyWouldOverflow(h, s, len(payload)) {
			h.Log.Warnw("legacy ceiling reached, dropping frame",
				"stream", stream.String(), "payloadSize", len(payload))
			return nil
		}
	} else if shouldRollover(h, s, len(payload)) {
		maxSegs := h.Options.MaxSegments
		if maxSegs <= 0 {
			maxSegs = 1
		}
		if h.Segments.Len() >= maxSegs {
			return internalerrors.NewContainerError(
				nil, internalerrors.ErrorCodeTooManySegments, "segment limit reached",
			).WithDetail("limit", maxSegs)
		}
		if err := closeSegment(h, false); err != nil {
			return err
		}
		if err := openSegment(h); err != nil {
			return err
		}
	}

	streamNum := videoStreamNum
	if stream == index.Audio {
		streamNum = audioStreamNum
	}
	tag := fourcc.ResolveStreamTag(canonical, streamNum)

	segBase, ok := h.Segments.Base(s.segment)
	if !ok {
		return internalerrors.NewCorruptedError("current segment missing from segment table").WithSegmentIndex(s.segment)
	}

	payloadStart, err := writeChunk(h, tag, payload)
	if err != nil {
		return err
	}

	memOffset := uint32(payloadStart - segBase)
	if _, err := h.Index.Append(stream, memOffset, uint32(len(payload)), s.segment, keyframe); err != nil {
		return err
	}

	chunkBytes := int64(8 + fourcc.AlignSize(uint32(len(payload))))
	s.moviBytes += chunkBytes

	if stream == index.Video {
		h.Video.FrameCount++
		if uint32(len(payload)) > h.Video.MaxFrameSize {
			h.Video.MaxFrameSize = uint32(len(payload))
		}
		s.segVideoCount++
	} else {
		h.Audio.FrameCount++
		if uint32(len(payload)) > h.Audio.MaxChunkSize {
			h.Audio.MaxChunkSize = uint32(len(payload))
		}
		s.segAudioCount++
	}

	return nil
}

// shouldRollover reports whether adding size more bytes to the currently
// open segment's movi list would exceed the configured soft ceiling.
// Hybrid/modern mode pays a per-segment chunk-index and (for segment 0)
// idx1/indx reservation cost that legacy mode never allocates, so the
// check compares against movi bytes only; the fixed header overhead is
// negligible against a gigabyte-scale ceiling.
func shouldRollover(h *container.Handle, s *state, size int) bool {
	projected := s.moviBytes + int64(8+fourcc.AlignSize(uint32(size)))
	return projected > int64(h.Options.SegmentSizeLimit)
}

// legacyWouldOverflow reports whether writing size more bytes, plus the
// idx1 chunk that will then cover every entry written so far and the new
// one, would push the single-segment legacy file past the hard
// 2 GiB-including-index ceiling. Per the
// source's documented design, frames past this point are silently
// dropped rather than erroring.
func legacyWouldOverflow(h *container.Handle, s *state, size int) bool {
	pos, err := h.File.QTell()
	if err != nil {
		return true
	}
	entries := int64(h.Index.Len(index.Video) + h.Index.Len(index.Audio) + 1)
	projected := pos + int64(8+fourcc.AlignSize(uint32(size))) + 8 + entries*aviformatLegacyIndexEntrySize
	return uint64(projected) > options.LegacyRiffCeiling
}

const aviformatLegacyIndexEntrySize = 16
