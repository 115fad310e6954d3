package reader

import (
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/index"
	internalerrors "github.com/movidx/avi2/pkg/errors"
)

// SeekStart rewinds both stream cursors to their first frame.
func SeekStart(h *container.Handle) error {
	if h.Mode != container.ModeRead {
		return internalerrors.NewWrongModeError("SeekStart")
	}
	h.Video.Cursor = 0
	h.Audio.Cursor = 0
	return nil
}

// ReadVideoFrame reads the next video frame into buf, advancing the
// cursor. When buf is nil, it returns the frame's size without reading
// any payload bytes, letting a caller size its own buffer first.
func ReadVideoFrame(h *container.Handle, buf []byte) (n int, keyframe bool, err error) {
	return readFrame(h, index.Video, &h.Video.Cursor, buf)
}

// ReadAudioFrame reads the next audio frame into buf, advancing the
// cursor. When buf is nil, it returns the frame's size without reading
// any payload bytes.
func ReadAudioFrame(h *container.Handle, buf []byte) (n int, keyframe bool, err error) {
	return readFrame(h, index.Audio, &h.Audio.Cursor, buf)
}

func readFrame(h *container.Handle, stream index.Stream, cursor *int, buf []byte) (int, bool, error) {
	if h.Mode != container.ModeRead {
		return 0, false, internalerrors.NewWrongModeError("ReadFrame")
	}

	entry, err := h.Index.Get(stream, *cursor)
	if err != nil {
		return 0, false, internalerrors.NewEOFError(stream.String())
	}

	size := int(entry.Size())
	if buf == nil {
		return size, entry.Keyframe(), nil
	}
	if len(buf) < size {
		return size, entry.Keyframe(), internalerrors.NewContainerError(
			nil, internalerrors.ErrorCodeBufferSize, "destination buffer is smaller than the frame",
		).WithDetail("need", size).WithDetail("have", len(buf))
	}

	segBase, ok := h.Segments.Base(entry.SegmentID())
	if !ok {
		return 0, false, internalerrors.NewCorruptedError("index entry references an unknown segment").
			WithSegmentIndex(entry.SegmentID())
	}

	if _, err := h.File.QSeek(segBase + int64(entry.Offset)); err != nil {
		return 0, false, err
	}
	if _, err := h.File.Read(buf[:size]); err != nil {
		return 0, false, err
	}

	*cursor++
	return size, entry.Keyframe(), nil
}
