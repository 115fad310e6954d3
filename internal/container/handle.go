// Package container defines the persistent state of one open container
// handle: the data model described in SPEC_FULL.md §3. It holds no parse
// or assembly logic itself — that lives in internal/reader and
// internal/writer, both of which operate on a *Handle — so that the
// facade in pkg/avi2 can drive Reader and Writer directly over shared
// state, matching the control-flow the specification describes (Facade
// → Writer/Reader → Index → FourCC/Endian → Paged I/O) without an extra
// coordination layer in between.
package container

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	"github.com/movidx/avi2/internal/riffio"
	"github.com/movidx/avi2/pkg/options"
	"github.com/movidx/avi2/pkg/segtable"
)

// Mode is the open mode of a handle.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// VideoStream holds the geometry and bookkeeping for the single video
// stream a handle may carry.
type VideoStream struct {
	Configured bool

	Name   string
	Width  uint32
	Height uint32
	FPS    float64
	FPSNum uint32
	FPSDen uint32
	Codec  fourcc.Tag

	FrameCount   uint32
	Cursor       int
	MaxFrameSize uint32

	// FieldDesc retains the raw vprp video-properties payload for
	// round-trip fidelity; never interpreted by this engine. Nil unless
	// a vprp chunk was read or written.
	FieldDesc []byte
}

// AudioStream holds the format and bookkeeping for the single audio
// stream a handle may carry.
type AudioStream struct {
	Configured bool

	Name           string
	Channels       uint16
	SamplesPerSec  uint32
	BitsPerSample  uint16
	BlockAlign     uint16
	AvgBytesPerSec uint32
	Codec          fourcc.Tag

	FrameCount   uint32
	Cursor       int
	MaxChunkSize uint32

	// ExtraFormatData preserves any bytes following the 18-byte strf
	// audio prefix (a WAVE_FORMAT_EXTENSIBLE-style cbSize + sub-format
	// block) that this engine does not interpret, so a round trip keeps
	// them intact. Nil unless the source format carried extension bytes.
	ExtraFormatData []byte
}

// Handle is the persistent state of one open container file.
type Handle struct {
	File *riffio.File
	Mode Mode

	Options options.Options
	Log     *zap.SugaredLogger

	HasVideo bool
	HasAudio bool
	Video    VideoStream
	Audio    AudioStream

	Index    *index.Set
	Segments *segtable.Table

	// MoviStart is the offset, relative to the current segment's seek
	// base, of the first byte inside the current segment's movi list
	// payload. Zero means no movi list is open yet in this segment.
	MoviStart uint32

	// HeaderEnd is the offset, relative to the first segment's seek
	// base, immediately after the JUNK chunk reserved ahead of the movi
	// list so header fields can grow without relocating movie data (see
	// internal/writer's writeHeaderPadding).
	HeaderEnd uint32

	// WriterState is opaque scratch space internal/writer uses to carry
	// per-handle bookkeeping (patch-able header offsets, the currently
	// open segment) between separate WriteVideoFrame/WriteAudioFrame/
	// Close calls. container stays a pure data model by not knowing the
	// concrete type stored here; only internal/writer type-asserts it.
	WriterState any

	LastError error

	closed atomic.Bool
}

// Closed reports whether Close has already run on this handle.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// MarkClosed flags the handle closed, returning false if it already was.
func (h *Handle) MarkClosed() bool {
	return h.closed.CompareAndSwap(false, true)
}
