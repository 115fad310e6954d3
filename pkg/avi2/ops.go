package avi2

import (
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/reader"
	"github.com/movidx/avi2/internal/writer"
)

// SetVideo configures the instance's single video stream. Write-mode
// only; must be called before the first frame and at most once.
func (i *Instance) SetVideo(name string, width, height uint32, fps float64, codec fourcc.Tag) error {
	return writer.SetVideo(i.handle, name, width, height, fps, codec)
}

// SetAudio configures the instance's single audio stream. Write-mode
// only; must be called before the first frame and at most once.
func (i *Instance) SetAudio(name string, channels uint16, samplesPerSec uint32, bitsPerSample uint16, codec fourcc.Tag) error {
	return writer.SetAudio(i.handle, name, channels, samplesPerSec, bitsPerSample, codec)
}

// WriteVideoFrame appends one compressed video frame. In strict-legacy
// mode, a frame written past the 2 GiB ceiling is silently dropped: this
// returns nil, not an error, per SPEC_FULL.md §7's propagation policy.
func (i *Instance) WriteVideoFrame(payload []byte, keyframe bool) error {
	return writer.WriteVideoFrame(i.handle, payload, keyframe)
}

// WriteAudioFrame appends one audio chunk. Every audio chunk is treated
// as a keyframe.
func (i *Instance) WriteAudioFrame(payload []byte) error {
	return writer.WriteAudioFrame(i.handle, payload)
}

// SeekStart rewinds both stream cursors to frame zero.
func (i *Instance) SeekStart() error {
	return reader.SeekStart(i.handle)
}

// ReadVideoFrame reads the next video frame into buf, advancing the
// cursor and reporting whether it is a keyframe. Pass a nil buf to
// retrieve only the size of the current frame without consuming it.
func (i *Instance) ReadVideoFrame(buf []byte) (n int, keyframe bool, err error) {
	return reader.ReadVideoFrame(i.handle, buf)
}

// ReadAudioFrame reads the next audio chunk into buf, advancing the
// cursor. Pass a nil buf to retrieve only the size of the current chunk.
func (i *Instance) ReadAudioFrame(buf []byte) (n int, keyframe bool, err error) {
	return reader.ReadAudioFrame(i.handle, buf)
}

// VideoInfo returns the configured/parsed video geometry and frame count.
func (i *Instance) VideoInfo() (width, height uint32, fps float64, frameCount uint32, hasVideo bool) {
	v := i.handle.Video
	return v.Width, v.Height, v.FPS, v.FrameCount, i.handle.HasVideo
}

// AudioInfo returns the configured/parsed audio format and frame count.
func (i *Instance) AudioInfo() (channels uint16, samplesPerSec uint32, bitsPerSample uint16, frameCount uint32, hasAudio bool) {
	a := i.handle.Audio
	return a.Channels, a.SamplesPerSec, a.BitsPerSample, a.FrameCount, i.handle.HasAudio
}
