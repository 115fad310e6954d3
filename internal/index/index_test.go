package index

import (
	"context"
	"testing"

	"go.uber.org/zap"

	internalerrors "github.com/movidx/avi2/pkg/errors"
)

func newTestSet(t *testing.T) *Set {
	t.Helper()
	s, err := New(context.Background(), &Config{Logger: zap.NewNop().Sugar()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestAppendAndGetRoundTrip(t *testing.T) {
	s := newTestSet(t)

	e, err := s.Append(Video, 1024, 4096, 2, true)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.Offset != 1024 {
		t.Errorf("Offset = %d, want 1024", e.Offset)
	}
	if e.Size() != 4096 {
		t.Errorf("Size() = %d, want 4096", e.Size())
	}
	if e.SegmentID() != 2 {
		t.Errorf("SegmentID() = %d, want 2", e.SegmentID())
	}
	if !e.Keyframe() {
		t.Error("Keyframe() = false, want true")
	}

	got, err := s.Get(Video, 0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != e {
		t.Errorf("Get(0) = %+v, want %+v", got, e)
	}
}

func TestAppendNonKeyframe(t *testing.T) {
	s := newTestSet(t)
	e, err := s.Append(Video, 0, 10, 0, false)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.Keyframe() {
		t.Error("Keyframe() = true, want false for a non-keyframe entry")
	}
}

func TestAppendRejectsOversizeChunk(t *testing.T) {
	s := newTestSet(t)
	if _, err := s.Append(Video, 0, MaxChunkSize+1, 0, true); err == nil {
		t.Error("Append with size > MaxChunkSize should fail")
	}
}

func TestAppendRejectsOversizeSegmentID(t *testing.T) {
	s := newTestSet(t)
	if _, err := s.Append(Video, 0, 10, MaxSegmentID+1, true); err == nil {
		t.Error("Append with segmentID > MaxSegmentID should fail")
	}
}

func TestGetOutOfRangeIsKeyNotFound(t *testing.T) {
	s := newTestSet(t)
	if _, err := s.Append(Video, 0, 10, 0, true); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := s.Get(Video, 5); internalerrors.GetErrorCode(err) != internalerrors.ErrorCodeIndexKeyNotFound {
		t.Errorf("Get(5) on a 1-entry index should report key-not-found, got %v", err)
	}
}

func TestVideoAndAudioStreamsAreIndependent(t *testing.T) {
	s := newTestSet(t)
	if _, err := s.Append(Video, 0, 100, 0, true); err != nil {
		t.Fatalf("Append video: %v", err)
	}
	if _, err := s.Append(Audio, 0, 200, 0, true); err != nil {
		t.Fatalf("Append audio: %v", err)
	}
	if s.Len(Video) != 1 || s.Len(Audio) != 1 {
		t.Errorf("Len(Video)=%d Len(Audio)=%d, want 1 and 1", s.Len(Video), s.Len(Audio))
	}
}

func TestSuperIndexOffsetRoundTrip(t *testing.T) {
	s := newTestSet(t)
	s.SetSuperIndexOffset(Video, 4096)
	if got := s.SuperIndexOffset(Video); got != 4096 {
		t.Errorf("SuperIndexOffset(Video) = %d, want 4096", got)
	}
	// Audio's slot must be unaffected by Video's.
	if got := s.SuperIndexOffset(Audio); got != 0 {
		t.Errorf("SuperIndexOffset(Audio) = %d, want 0 (untouched)", got)
	}
}

func TestCloseThenOperationsFail(t *testing.T) {
	s := newTestSet(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Append(Video, 0, 10, 0, true); err == nil {
		t.Error("Append after Close should fail")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestStreamString(t *testing.T) {
	if Video.String() != "video" {
		t.Errorf("Video.String() = %q, want video", Video.String())
	}
	if Audio.String() != "audio" {
		t.Errorf("Audio.String() = %q, want audio", Audio.String())
	}
}
