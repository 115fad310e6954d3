package reader

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/index"
	"github.com/movidx/avi2/internal/riffio"
	internalerrors "github.com/movidx/avi2/pkg/errors"
	"github.com/movidx/avi2/pkg/options"
	"github.com/movidx/avi2/pkg/segtable"
)

// newReadHandle writes payload at the start of a fresh file and builds a
// handle whose index already has one entry pointing at it, bypassing the
// full RIFF header/trailer parse this test has no need to exercise.
func newReadHandle(t *testing.T, payload []byte, keyframe bool) *container.Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.avi")
	f, err := riffio.Create(path)
	if err != nil {
		t.Fatalf("riffio.Create: %v", err)
	}
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	idx, err := index.New(context.Background(), &index.Config{Logger: zap.NewNop().Sugar()})
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	if _, err := idx.Append(index.Video, 0, uint32(len(payload)), 0, keyframe); err != nil {
		t.Fatalf("Append: %v", err)
	}

	segs := segtable.New()
	if err := segs.Append(0); err != nil {
		t.Fatalf("segtable.Append: %v", err)
	}

	h := &container.Handle{
		File:     f,
		Mode:     container.ModeRead,
		Options:  options.NewDefaultOptions(),
		Log:      zap.NewNop().Sugar(),
		Index:    idx,
		Segments: segs,
	}
	t.Cleanup(func() {
		_ = f.Close()
		_ = idx.Close()
	})
	return h
}

func TestReadVideoFrameSizeProbeThenFill(t *testing.T) {
	want := []byte{10, 20, 30, 40}
	h := newReadHandle(t, want, true)

	size, keyframe, err := ReadVideoFrame(h, nil)
	if err != nil {
		t.Fatalf("size probe: %v", err)
	}
	if size != len(want) {
		t.Errorf("size = %d, want %d", size, len(want))
	}
	if !keyframe {
		t.Error("keyframe = false, want true")
	}
	if h.Video.Cursor != 0 {
		t.Errorf("size probe must not advance the cursor, got %d", h.Video.Cursor)
	}

	buf := make([]byte, size)
	n, _, err := ReadVideoFrame(h, buf)
	if err != nil {
		t.Fatalf("fill read: %v", err)
	}
	if n != len(want) || !bytes.Equal(buf, want) {
		t.Errorf("fill read = %v (n=%d), want %v", buf, n, want)
	}
	if h.Video.Cursor != 1 {
		t.Errorf("cursor after one frame = %d, want 1", h.Video.Cursor)
	}
}

func TestReadVideoFrameRejectsUndersizedBuffer(t *testing.T) {
	h := newReadHandle(t, []byte{1, 2, 3, 4, 5}, false)
	buf := make([]byte, 2)
	if _, _, err := ReadVideoFrame(h, buf); err == nil {
		t.Error("ReadVideoFrame with an undersized buffer should fail")
	}
	if h.Video.Cursor != 0 {
		t.Errorf("a failed read must not advance the cursor, got %d", h.Video.Cursor)
	}
}

func TestReadVideoFramePastLastEntryIsEOF(t *testing.T) {
	h := newReadHandle(t, []byte{1, 2, 3}, true)
	if _, _, err := ReadVideoFrame(h, make([]byte, 3)); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, _, err := ReadVideoFrame(h, nil); internalerrors.GetErrorCode(err) != internalerrors.ErrorCodeEOF {
		t.Errorf("reading past the last indexed frame should report EOF, got %v", err)
	}
}

func TestSeekStartOnWriteHandleFails(t *testing.T) {
	h := newReadHandle(t, []byte{1, 2, 3}, true)
	h.Mode = container.ModeWrite
	if err := SeekStart(h); err == nil {
		t.Error("SeekStart on a write-mode handle should fail")
	}
}

func TestSeekStartRewindsBothCursors(t *testing.T) {
	h := newReadHandle(t, []byte{1, 2, 3}, true)
	h.Video.Cursor = 5
	h.Audio.Cursor = 7
	if err := SeekStart(h); err != nil {
		t.Fatalf("SeekStart: %v", err)
	}
	if h.Video.Cursor != 0 || h.Audio.Cursor != 0 {
		t.Errorf("cursors after SeekStart = (%d, %d), want (0, 0)", h.Video.Cursor, h.Audio.Cursor)
	}
}
