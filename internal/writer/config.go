package writer

import (
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	internalerrors "github.com/movidx/avi2/pkg/errors"
)

// Geometry and format limits enforced by SetVideo/SetAudio, per SPEC_FULL.md §3.
const (
	maxWidth      = 8192
	maxHeight     = 4096
	maxFPS        = 120
	maxChannels   = 16
	minSampleRate = 8000
	maxSampleRate = 192000
)

func missingVideoError() error {
	return internalerrors.NewContainerError(
		nil, internalerrors.ErrorCodeMissingVideo, "a video stream must be configured before the first frame is written",
	)
}

func badParameter(field string, provided any) error {
	return internalerrors.NewContainerError(
		nil, internalerrors.ErrorCodeBadParameter, "parameter out of range",
	).WithDetail("field", field).WithDetail("provided", provided)
}

func alreadyWriting(h *container.Handle) bool {
	return getState(h).headerWritten
}

// SetVideo configures the handle's single video stream. Must be called
// before the first frame is written and at most once, per spec.md's
// function-order invariant.
func SetVideo(h *container.Handle, name string, width, height uint32, fps float64, codec fourcc.Tag) error {
	if h.Mode != container.ModeWrite {
		return internalerrors.NewWrongModeError("SetVideo")
	}
	if h.Video.Configured {
		return internalerrors.NewFunctionOrderError("SetVideo")
	}
	if alreadyWriting(h) {
		return internalerrors.NewFunctionOrderError("SetVideo")
	}
	if width == 0 || width > maxWidth {
		return badParameter("width", width)
	}
	if height == 0 || height > maxHeight {
		return badParameter("height", height)
	}
	if fps <= 0 || fps > maxFPS {
		return badParameter("fps", fps)
	}

	rate, scale := rationalize(fps)
	h.Video.Name = name
	h.Video.Width = width
	h.Video.Height = height
	h.Video.FPS = fps
	h.Video.FPSNum = rate
	h.Video.FPSDen = scale
	h.Video.Codec = codec
	h.Video.Configured = true
	h.HasVideo = true
	return nil
}

// SetAudio configures the handle's single audio stream. Must be called
// before the first frame is written and at most once.
func SetAudio(h *container.Handle, name string, channels uint16, samplesPerSec uint32, bitsPerSample uint16, codec fourcc.Tag) error {
	if h.Mode != container.ModeWrite {
		return internalerrors.NewWrongModeError("SetAudio")
	}
	if h.Audio.Configured {
		return internalerrors.NewFunctionOrderError("SetAudio")
	}
	if alreadyWriting(h) {
		return internalerrors.NewFunctionOrderError("SetAudio")
	}
	if channels == 0 {
		return badParameter("channels", channels)
	}
	if channels > maxChannels {
		return internalerrors.NewContainerError(
			nil, internalerrors.ErrorCodeTooManyChannels, "too many audio channels",
		).WithDetail("provided", channels)
	}
	if samplesPerSec < minSampleRate || samplesPerSec > maxSampleRate {
		return badParameter("samplesPerSec", samplesPerSec)
	}
	switch bitsPerSample {
	case 8, 16, 24, 32:
	default:
		return badParameter("bitsPerSample", bitsPerSample)
	}

	blockAlign := channels * (bitsPerSample / 8)
	h.Audio.Name = name
	h.Audio.Channels = channels
	h.Audio.SamplesPerSec = samplesPerSec
	h.Audio.BitsPerSample = bitsPerSample
	h.Audio.BlockAlign = blockAlign
	h.Audio.AvgBytesPerSec = samplesPerSec * uint32(blockAlign)
	h.Audio.Codec = codec
	h.Audio.Configured = true
	h.HasAudio = true
	return nil
}
