package writer

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/movidx/avi2/internal/aviformat"
	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	"github.com/movidx/avi2/internal/riffio"
	"github.com/movidx/avi2/pkg/options"
	"github.com/movidx/avi2/pkg/segtable"
)

// newWriteHandleAt is newWriteHandle but also returns the backing file's
// path, needed here to re-read the raw bytes after Close.
func newWriteHandleAt(t *testing.T) (*container.Handle, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.avi")
	f, err := riffio.Create(path)
	if err != nil {
		t.Fatalf("riffio.Create: %v", err)
	}
	idx, err := index.New(context.Background(), &index.Config{Logger: zap.NewNop().Sugar()})
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	h := &container.Handle{
		File:     f,
		Mode:     container.ModeWrite,
		Options:  options.NewDefaultOptions(),
		Log:      zap.NewNop().Sugar(),
		Index:    idx,
		Segments: segtable.New(),
	}
	t.Cleanup(func() {
		_ = f.Close()
		_ = idx.Close()
	})
	return h, path
}

// readChunkHeaderAt reads the 8-byte chunk header at absolute offset pos
// in the raw file bytes, returning its tag, declared size, and the
// payload's absolute start offset.
func readChunkHeaderAt(t *testing.T, raw []byte, pos int64) (fourcc.Tag, uint32, int64) {
	t.Helper()
	if pos+8 > int64(len(raw)) {
		t.Fatalf("chunk header at %d runs past end of file (len=%d)", pos, len(raw))
	}
	var tag fourcc.Tag
	copy(tag[:], raw[pos:pos+4])
	size := binary.LittleEndian.Uint32(raw[pos+4 : pos+8])
	return tag, size, pos + 8
}

// TestCloseWritesHeaderPaddingJunkBeforeMovi drives a single-segment
// hybrid-mode write and confirms a JUNK chunk of the spec-mandated size
// (2 KiB plus 2 KiB per stream) sits immediately before the movi list,
// ending exactly at h.HeaderEnd.
func TestCloseWritesHeaderPaddingJunkBeforeMovi(t *testing.T) {
	h, path := newWriteHandleAt(t)
	if err := SetVideo(h, "cam0", 64, 48, 30, fourcc.MakeTag("MJPG")); err != nil {
		t.Fatalf("SetVideo: %v", err)
	}
	if err := WriteVideoFrame(h, []byte{1, 2, 3, 4}, true); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
	if err := Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	reserved := int64(headerPadUnit * 2) // one stream (video only): headerPadUnit * (1 + streamCount)
	tag, size, payloadStart := readChunkHeaderAt(t, raw, int64(h.HeaderEnd)-reserved)
	if !tag.Equal(fourcc.JUNK) {
		t.Fatalf("chunk before movi = %q, want JUNK", tag)
	}
	if payloadStart+int64(size) != int64(h.HeaderEnd) {
		t.Errorf("JUNK chunk ends at %d, want h.HeaderEnd=%d", payloadStart+int64(size), h.HeaderEnd)
	}
	if want := uint32(reserved - 8); size != want {
		t.Errorf("JUNK payload size = %d, want %d (one video stream)", size, want)
	}

	movi, _, _ := readChunkHeaderAt(t, raw, int64(h.HeaderEnd))
	if !movi.Equal(fourcc.LIST) {
		t.Errorf("chunk at h.HeaderEnd = %q, want LIST (movi)", movi)
	}
}

// TestCloseShrinksMasterIndexWithTrailingJunk confirms the video indx
// chunk is patched down to the one segment actually used (instead of the
// full MaxSegments reservation) and that a JUNK chunk fills the rest of
// the reserved region.
func TestCloseShrinksMasterIndexWithTrailingJunk(t *testing.T) {
	h, path := newWriteHandleAt(t)
	if err := SetVideo(h, "cam0", 64, 48, 30, fourcc.MakeTag("MJPG")); err != nil {
		t.Fatalf("SetVideo: %v", err)
	}
	if err := WriteVideoFrame(h, []byte{1, 2, 3, 4}, true); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
	if err := Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s := getState(h)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	size := binary.LittleEndian.Uint32(raw[s.videoIndxSizePos : s.videoIndxSizePos+4])
	wantUsed := 1
	if want := uint32(aviformat.IndexChunkHeaderSize + wantUsed*aviformat.SuperIndexEntrySize); size != want {
		t.Errorf("indx chunk size = %d, want %d (used=%d)", size, want, wantUsed)
	}
	entriesInUse := binary.LittleEndian.Uint32(raw[s.videoIndxEntriesPos : s.videoIndxEntriesPos+4])
	if entriesInUse != uint32(wantUsed) {
		t.Errorf("indx EntriesInUse = %d, want %d", entriesInUse, wantUsed)
	}

	maxSegs := h.Options.MaxSegments
	junkPos := s.videoIndxFirstSlot + int64(wantUsed)*aviformat.SuperIndexEntrySize
	tag, junkSize, _ := readChunkHeaderAt(t, raw, junkPos)
	if !tag.Equal(fourcc.JUNK) {
		t.Fatalf("chunk after last real super-index entry = %q, want JUNK", tag)
	}
	if want := uint32((maxSegs-wantUsed)*aviformat.SuperIndexEntrySize) - 8; junkSize != want {
		t.Errorf("trailing JUNK size = %d, want %d", junkSize, want)
	}
}
