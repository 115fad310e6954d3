package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// MaxChunkSize is the largest chunk payload size representable in a
// packed Entry: the top byte of the 32-bit size field is repurposed to
// hold the segment id, leaving 24 bits (16 MiB) for the payload size.
// This ceiling is intentional: it accommodates uncompressed 1080p video
// and lets the on-disk standard index entry be overlaid directly onto
// Entry on read, saving a copy pass.
const MaxChunkSize = 1<<24 - 1

// MaxSegmentID is the largest segment id representable in the packed
// size field (7 bits), matching the 128-segment ceiling on the
// container's segment table.
const MaxSegmentID = 127

// blockSize is the initial capacity, in entries, of a Root's backing
// slice; when it runs out of capacity the slice doubles, so its capacity
// is always a whole number of these blocks.
const blockSize = 512

// Entry is the in-memory index entry: 8 bytes, layout-compatible with
// the on-disk standard index entry (offset, size) except that the top
// byte of the size field is repurposed to carry the segment id and the
// not-keyframe flag. See SPEC_FULL.md §4.3.
type Entry struct {
	// Offset is the 32-bit offset from the base of the owning RIFF
	// segment to the first byte of the chunk payload, not the tag.
	Offset uint32

	// sizeAndFlags packs bit 31 = NOT-keyframe, bits 30..24 = segment id
	// (0..127), bits 23..0 = chunk payload size.
	sizeAndFlags uint32
}

// Size returns the chunk payload size.
func (e Entry) Size() uint32 {
	return e.sizeAndFlags & MaxChunkSize
}

// SegmentID returns the RIFF segment this entry's offset is relative to.
func (e Entry) SegmentID() int {
	return int((e.sizeAndFlags >> 24) & MaxSegmentID)
}

// Keyframe reports whether this entry's chunk can be decoded without
// reference to any other frame. Bit 31 set means NOT a keyframe, so this
// is the inverse of that bit.
func (e Entry) Keyframe() bool {
	return e.sizeAndFlags&0x80000000 == 0
}

// pack builds the sizeAndFlags word from its three logical fields.
func pack(size uint32, segmentID int, keyframe bool) uint32 {
	v := size & MaxChunkSize
	v |= uint32(segmentID&MaxSegmentID) << 24
	if !keyframe {
		v |= 0x80000000
	}
	return v
}

// Root is a growable per-stream index: a geometric-growth array of
// entries, a stream name (≤31 bytes on disk), and the file offset where
// the next master-index slot will be patched in at segment close.
type Root struct {
	Name string

	entries []Entry

	// SuperIndexOffset is the absolute file offset of the next
	// SUPERINDEXENTRY slot to patch when a segment closes.
	SuperIndexOffset int64

	// maxChunkSize tracks the largest payload size appended so far, used
	// to fill in the container handle's max-size fields.
	maxChunkSize uint32
}

// Set groups the video and audio index roots for one container handle
// under a single lifecycle, mirroring the teacher's single Index type
// that owned its whole key space behind one mutex and closed flag.
type Set struct {
	log    *zap.SugaredLogger
	video  Root
	audio  Root
	mu     sync.RWMutex
	closed atomic.Bool
}

// Config carries the dependencies a Set needs at construction time.
type Config struct {
	Logger *zap.SugaredLogger
}
