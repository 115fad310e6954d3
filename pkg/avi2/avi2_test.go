package avi2

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	internalerrors "github.com/movidx/avi2/pkg/errors"
	"github.com/movidx/avi2/pkg/options"
)

func writeLegacySample(t *testing.T, path string, frames [][]byte) {
	t.Helper()
	inst, err := Open(context.Background(), "test", path, ModeWrite,
		options.WithWriteMode(options.WriteModeLegacy),
	)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	if err := inst.SetVideo("cam0", 320, 240, 30, Codec("MJPG")); err != nil {
		t.Fatalf("SetVideo: %v", err)
	}
	for i, f := range frames {
		if err := inst.WriteVideoFrame(f, i == 0); err != nil {
			t.Fatalf("WriteVideoFrame(%d): %v", i, err)
		}
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRoundTripLegacyVideoOnly(t *testing.T) {
	frames := make([][]byte, 0, 100)
	for i := 0; i < 100; i++ {
		buf := bytes.Repeat([]byte{byte(i)}, 1000)
		frames = append(frames, buf)
	}

	path := filepath.Join(t.TempDir(), "sample.avi")
	writeLegacySample(t, path, frames)

	inst, err := Open(context.Background(), "test", path, ModeRead)
	if err != nil {
		t.Fatalf("Open read: %v", err)
	}
	defer inst.Close()

	width, height, _, frameCount, hasVideo := inst.VideoInfo()
	if !hasVideo {
		t.Fatal("expected hasVideo = true")
	}
	if width != 320 || height != 240 {
		t.Errorf("geometry = %dx%d, want 320x240", width, height)
	}
	if int(frameCount) != len(frames) {
		t.Errorf("frameCount = %d, want %d", frameCount, len(frames))
	}

	for i, want := range frames {
		size, keyframe, err := inst.ReadVideoFrame(nil)
		if err != nil {
			t.Fatalf("ReadVideoFrame(%d) size probe: %v", i, err)
		}
		if size != len(want) {
			t.Fatalf("frame %d size = %d, want %d", i, size, len(want))
		}
		buf := make([]byte, size)
		if _, gotKeyframe, err := inst.ReadVideoFrame(buf); err != nil {
			t.Fatalf("ReadVideoFrame(%d): %v", i, err)
		} else if gotKeyframe != (i == 0) {
			t.Errorf("frame %d keyframe = %v, want %v", i, gotKeyframe, i == 0)
		}
		if !bytes.Equal(buf, want) {
			t.Errorf("frame %d payload mismatch", i)
		}
	}

	if _, _, err := inst.ReadVideoFrame(nil); CodeOf(err) != internalerrors.ErrorCodeEOF {
		t.Errorf("reading past the last frame should report EOF, got %v", err)
	}
}

func TestSeekStartRewindsCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.avi")
	writeLegacySample(t, path, [][]byte{{1, 2, 3}, {4, 5, 6}})

	inst, err := Open(context.Background(), "test", path, ModeRead)
	if err != nil {
		t.Fatalf("Open read: %v", err)
	}
	defer inst.Close()

	if _, _, err := inst.ReadVideoFrame(make([]byte, 3)); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if err := inst.SeekStart(); err != nil {
		t.Fatalf("SeekStart: %v", err)
	}
	buf := make([]byte, 3)
	if _, _, err := inst.ReadVideoFrame(buf); err != nil {
		t.Fatalf("read after SeekStart: %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3}) {
		t.Errorf("after SeekStart, first frame = %v, want [1 2 3]", buf)
	}
}

func TestSetVideoRejectedAfterFirstFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.avi")
	inst, err := Open(context.Background(), "test", path, ModeWrite)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	defer inst.Close()

	if err := inst.SetVideo("cam0", 320, 240, 30, Codec("MJPG")); err != nil {
		t.Fatalf("SetVideo: %v", err)
	}
	if err := inst.WriteVideoFrame([]byte{1, 2, 3}, true); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
	if err := inst.SetVideo("cam1", 640, 480, 30, Codec("MJPG")); err == nil {
		t.Error("SetVideo after the first frame should be rejected")
	}
}

func TestSetAudioTooManyChannelsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.avi")
	inst, err := Open(context.Background(), "test", path, ModeWrite)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	defer inst.Close()

	err = inst.SetAudio("mic0", 17, 48000, 16, Codec("\x01\x00\x00\x00"))
	if err == nil {
		t.Fatal("SetAudio with 17 channels should be rejected")
	}
	if CodeOf(err) != internalerrors.ErrorCodeTooManyChannels {
		t.Errorf("SetAudio with 17 channels: code = %v, want too-many-channels", CodeOf(err))
	}
	if _, _, _, _, hasAudio := inst.AudioInfo(); hasAudio {
		t.Error("AudioInfo reports hasAudio=true after a rejected SetAudio")
	}

	// The file must still be a valid video-only container once video is
	// configured and closed, per spec.md §8 scenario 5.
	if err := inst.SetVideo("cam0", 320, 240, 30, Codec("MJPG")); err != nil {
		t.Fatalf("SetVideo: %v", err)
	}
	if err := inst.WriteVideoFrame([]byte{1, 2, 3, 4}, true); err != nil {
		t.Fatalf("WriteVideoFrame: %v", err)
	}
}

func TestWriteAudioFrameWithoutSetAudioFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.avi")
	inst, err := Open(context.Background(), "test", path, ModeWrite)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	defer inst.Close()

	if err := inst.SetVideo("cam0", 320, 240, 30, Codec("MJPG")); err != nil {
		t.Fatalf("SetVideo: %v", err)
	}
	if err := inst.WriteAudioFrame([]byte{1, 2}); err == nil {
		t.Error("WriteAudioFrame without SetAudio should fail")
	}
}

func TestWriteVideoFrameWithoutSetVideoFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.avi")
	inst, err := Open(context.Background(), "test", path, ModeWrite)
	if err != nil {
		t.Fatalf("Open write: %v", err)
	}
	defer inst.Close()

	if err := inst.WriteVideoFrame([]byte{1, 2, 3}, true); err == nil {
		t.Error("WriteVideoFrame without SetVideo should fail")
	}
}

func TestErrorString(t *testing.T) {
	if got := ErrorString(internalerrors.ErrorCodeEOF); got == "" {
		t.Error("ErrorString(EOF) should not be empty")
	}
	if got := ErrorString("NOT_A_REAL_CODE"); got != "avi2 - Unknown Error" {
		t.Errorf("ErrorString(unknown) = %q, want the unknown-error fallback", got)
	}
}
