package writer

import "github.com/movidx/avi2/internal/container"

// state is the writer's private bookkeeping for one open write handle,
// stashed in h.WriterState between calls since container.Handle itself
// carries no orchestration logic. It tracks which segment is currently
// open and every forward-declared offset that must be patched once its
// true value is known.
type state struct {
	headerWritten bool
	segment       int

	riffSizePos int64 // current segment's RIFF size field
	moviSizePos int64 // current segment's movi LIST size field
	moviBytes   int64 // bytes written to the current segment's movi list so far

	avihPos      int64 // avih.dwTotalFrames field, first segment only
	videoStrhPos int64 // strh.dwLength field for video, first segment only
	audioStrhPos int64 // strh.dwLength field for audio, first segment only
	dmlhPos      int64 // dmlh.dwTotalFrames field, first segment only

	// segVideoCount/segAudioCount track how many frames of each stream
	// have been written to the currently open segment, reset on rollover,
	// used for the per-segment chunk index and, for video, the super-index
	// entry's duration field (audio's duration is derived from the
	// segment's audio byte total instead).
	segVideoCount int
	segAudioCount int
	segVideoFirst int // index.Set frame index of this segment's first video frame
	segAudioFirst int

	// videoIndxSizePos/audioIndxSizePos and *EntriesPos/*FirstSlot let
	// Close shrink each stream's indx chunk down to the segment count
	// actually used and fill the rest of its reserved region with a
	// trailing JUNK chunk, per SPEC_FULL.md's master-index sizing rule.
	videoIndxSizePos    int64
	videoIndxEntriesPos int64
	videoIndxFirstSlot  int64
	audioIndxSizePos    int64
	audioIndxEntriesPos int64
	audioIndxFirstSlot  int64
}

func getState(h *container.Handle) *state {
	s, _ := h.WriterState.(*state)
	if s == nil {
		s = &state{}
		h.WriterState = s
	}
	return s
}
