// Package index implements the in-memory per-stream frame index described
// in SPEC_FULL.md §4.3: a compact table mapping logical frame number to
// (RIFF segment id, 32-bit offset within segment, 24-bit size, keyframe
// flag), grown geometrically and shared between the reader (populated
// once during parse) and the writer (appended to on every write-frame
// call).
package index

import (
	"context"

	internalerrors "github.com/movidx/avi2/pkg/errors"
)

// ErrSetClosed is returned by any operation attempted on a closed Set.
var ErrSetClosed = internalerrors.NewIndexError(nil, internalerrors.ErrorCodeIndexCorrupted, "index set is closed")

// Stream selects which of the two per-container index roots an
// operation applies to.
type Stream int

const (
	Video Stream = iota
	Audio
)

func (s Stream) String() string {
	if s == Audio {
		return "audio"
	}
	return "video"
}

// New constructs an empty index Set for one container handle.
func New(ctx context.Context, config *Config) (*Set, error) {
	if config == nil || config.Logger == nil {
		return nil, internalerrors.NewValidationError(
			nil, internalerrors.ErrorCodeInvalidInput, "index config is incomplete",
		).WithField("config").WithRule("required").WithProvided(config)
	}
	return &Set{log: config.Logger}, nil
}

// Close releases the index arrays. Safe to call once; a second call is a
// no-op.
func (s *Set) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Debugw("closing index set", "videoEntries", len(s.video.entries), "audioEntries", len(s.audio.entries))
	s.video.entries = nil
	s.audio.entries = nil
	return nil
}

func (s *Set) root(stream Stream) *Root {
	if stream == Audio {
		return &s.audio
	}
	return &s.video
}

// SetName records the stream name; its strn chunk on disk carries at most
// the first 31 bytes of it.
func (s *Set) SetName(stream Stream, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root(stream).Name = name
}

// Append adds one frame to the named stream's index, rejecting chunk
// sizes at or above 2^24 and segment ids at or above 128 as internal
// errors, per SPEC_FULL.md §4.3.
func (s *Set) Append(stream Stream, offset uint32, size uint32, segmentID int, keyframe bool) (Entry, error) {
	if s.closed.Load() {
		return Entry{}, ErrSetClosed
	}
	if size > MaxChunkSize {
		return Entry{}, internalerrors.NewIndexCorruptionError("Append", 0, nil).
			WithDetail("reason", "chunk size exceeds 16MiB ceiling").
			WithDetail("size", size)
	}
	if segmentID < 0 || segmentID > MaxSegmentID {
		return Entry{}, internalerrors.NewSegmentIDError(uint16(segmentID), "").
			WithDetail("reason", "segment id exceeds 128-segment ceiling")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.root(stream)
	if len(r.entries) == cap(r.entries) {
		newCap := 2 * cap(r.entries)
		if newCap < blockSize {
			newCap = blockSize
		}
		grown := make([]Entry, len(r.entries), newCap)
		copy(grown, r.entries)
		r.entries = grown
	}

	e := Entry{Offset: offset, sizeAndFlags: pack(size, segmentID, keyframe)}
	r.entries = append(r.entries, e)
	if size > r.maxChunkSize {
		r.maxChunkSize = size
	}
	return e, nil
}

// AppendRaw adds a pre-packed entry directly, used by the reader when
// deserializing an on-disk standard index entry whose layout already
// matches Entry bit-for-bit; only the segment id still needs stamping in
// by the caller before this is invoked.
func (s *Set) AppendRaw(stream Stream, e Entry) error {
	if s.closed.Load() {
		return ErrSetClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.root(stream)
	r.entries = append(r.entries, e)
	if sz := e.Size(); sz > r.maxChunkSize {
		r.maxChunkSize = sz
	}
	return nil
}

// Get looks up a frame by its logical index.
func (s *Set) Get(stream Stream, frame int) (Entry, error) {
	if s.closed.Load() {
		return Entry{}, ErrSetClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.root(stream)
	if frame < 0 || frame >= len(r.entries) {
		return Entry{}, internalerrors.NewKeyNotFoundError(stream.String()).
			WithDetail("frame", frame).WithDetail("count", len(r.entries))
	}
	return r.entries[frame], nil
}

// Len returns the number of frames indexed for stream.
func (s *Set) Len(stream Stream) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.root(stream).entries)
}

// MaxChunkSize returns the largest payload size appended so far for stream.
func (s *Set) MaxChunkSize(stream Stream) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root(stream).maxChunkSize
}

// Entries returns a read-only snapshot of stream's entries in frame
// order, used by the writer when emitting chunk and legacy indexes.
func (s *Set) Entries(stream Stream) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.root(stream)
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// SuperIndexOffset returns the file offset of the next master-index slot
// to patch for stream.
func (s *Set) SuperIndexOffset(stream Stream) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root(stream).SuperIndexOffset
}

// SetSuperIndexOffset records the file offset of the next master-index
// slot to patch for stream, advancing it as segments close.
func (s *Set) SetSuperIndexOffset(stream Stream, offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root(stream).SuperIndexOffset = offset
}
