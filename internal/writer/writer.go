// Package writer assembles AVI2 container files: header emission,
// frame-by-frame movi assembly, segment rollover, and the legacy/master
// index pair, per SPEC_FULL.md §4.5. It operates entirely through a
// *container.Handle passed in by pkg/avi2, keeping container itself free
// of assembly logic; per-handle bookkeeping that must survive across
// calls lives in the unexported state type, stashed in
// container.Handle.WriterState.
package writer

import (
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/index"
	"github.com/movidx/avi2/pkg/options"
)

// Close finalizes a write handle: flushes the last open segment (or
// opens and immediately closes an empty one if no frame was ever
// written, so a configured-but-empty stream still produces a valid
// file), then patches every running total whose true value was unknown
// at header-emission time.
func Close(h *container.Handle) error {
	if h.Mode != container.ModeWrite {
		return nil
	}
	if err := ensureHeaders(h); err != nil {
		return err
	}

	s := getState(h)
	if err := closeSegment(h, true); err != nil {
		return err
	}

	if h.Options.WriteMode != options.WriteModeLegacy {
		if err := shrinkMasterIndex(h, s); err != nil {
			return err
		}
	}

	if err := patchUint32(h, s.avihPos, h.Video.FrameCount); err != nil {
		return err
	}
	if err := patchUint32(h, s.videoStrhPos, h.Video.FrameCount); err != nil {
		return err
	}
	if h.HasAudio {
		if err := patchUint32(h, s.audioStrhPos, h.Audio.FrameCount); err != nil {
			return err
		}
	}
	if s.dmlhPos != 0 {
		if err := patchUint32(h, s.dmlhPos, h.Video.FrameCount); err != nil {
			return err
		}
	}

	h.Index.SetName(index.Video, h.Video.Name)
	if h.HasAudio {
		h.Index.SetName(index.Audio, h.Audio.Name)
	}
	return h.File.Sync()
}
