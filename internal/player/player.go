// Package player is the demo application's playback loop described in
// SPEC_FULL.md §1: it drives pkg/avi2's read-frame operations and paces
// delivery by the container's own fps, handing raw payloads to two
// narrow collaborator interfaces that this repository does not
// implement. Audio playback, JPEG decoding, on-screen presentation, and
// their own concurrency contracts are explicitly out of scope (spec.md
// §1's Non-goals) — this package only proves the core facade is enough
// to drive them.
package player

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/movidx/avi2/pkg/avi2"
	internalerrors "github.com/movidx/avi2/pkg/errors"
)

// FrameSink receives one decoded-or-not video payload per call, in
// presentation order. The player does not decode; it is the sink's
// responsibility to recognize its own codec's bytes (e.g. feed them to
// a JPEG decoder) per spec.md's explicit scope boundary.
type FrameSink interface {
	Frame(payload []byte, keyframe bool, frameIndex int) error
}

// AudioSink receives one raw PCM/compressed audio chunk per call, in
// file order. Pacing audio playback against a device clock is the
// sink's concern; the player only hands chunks over as fast as the
// video clock calls for more.
type AudioSink interface {
	Audio(payload []byte, chunkIndex int) error
}

// Player drives one open read-mode Instance, delivering frames to its
// sinks at the rate implied by the container's fps.
type Player struct {
	inst  *avi2.Instance
	video FrameSink
	audio AudioSink
	log   *zap.SugaredLogger
}

// New builds a Player over an already-open read-mode instance. audio may
// be nil if the caller only wants video playback (or the file has no
// audio stream).
func New(inst *avi2.Instance, video FrameSink, audio AudioSink) *Player {
	return &Player{inst: inst, video: video, audio: audio, log: inst.Log()}
}

// Run delivers every video frame (and, if configured, every audio chunk
// up to the point the video track reaches) from the current cursor to
// end-of-stream, pacing video frames one every 1/fps seconds using a
// ticker. It returns nil at a clean end-of-stream and any other error
// encountered along the way; ctx cancellation stops the loop early with
// ctx.Err().
func (p *Player) Run(ctx context.Context, fps float64) error {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	frameIndex := 0
	chunkIndex := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		size, keyframe, err := p.inst.ReadVideoFrame(nil)
		if err != nil {
			if isEOF(err) {
				p.log.Infow("playback reached end of stream", "frames", frameIndex)
				return nil
			}
			return err
		}

		buf := make([]byte, size)
		if _, _, err := p.inst.ReadVideoFrame(buf); err != nil {
			return err
		}
		if err := p.video.Frame(buf, keyframe, frameIndex); err != nil {
			return err
		}
		frameIndex++

		if p.audio == nil {
			continue
		}
		asize, _, err := p.inst.ReadAudioFrame(nil)
		if err != nil {
			if !isEOF(err) {
				return err
			}
			continue
		}
		abuf := make([]byte, asize)
		if _, _, err := p.inst.ReadAudioFrame(abuf); err != nil {
			return err
		}
		if err := p.audio.Audio(abuf, chunkIndex); err != nil {
			return err
		}
		chunkIndex++
	}
}

func isEOF(err error) bool {
	return avi2.CodeOf(err) == internalerrors.ErrorCodeEOF
}
