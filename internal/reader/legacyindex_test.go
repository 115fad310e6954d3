package reader

import (
	"bytes"
	"context"
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

func chunk(tag fourcc.Tag, payload []byte) []byte {
	var buf bytes.Buffer
	_ = fourcc.WriteChunkHeader(&buf, fourcc.ChunkHeader{ID: tag, Size: uint32(len(payload))})
	buf.Write(payload)
	if len(payload)%2 == 1 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func list(form fourcc.Tag, body []byte) []byte {
	var buf bytes.Buffer
	_ = fourcc.WriteChunkHeader(&buf, fourcc.ChunkHeader{ID: fourcc.LIST, Size: uint32(4 + len(body))})
	_ = fourcc.WriteTag(&buf, form)
	buf.Write(body)
	return buf.Bytes()
}

// buildLegacyFile assembles a minimal single-segment legacy AVI by hand:
// RIFF/AVI_ -> hdrl{avih, strl{strh,strf}} -> movi{00dc x2} -> idx1. The
// idx1 payload is built by the caller so tests can exercise both the
// movie-relative and absolute dwChunkOffset conventions against the same
// real layout.
func buildLegacyFile(t *testing.T, frames [][]byte, idx1 func(moviStart uint32) []byte) (path string, moviStart uint32) {
	t.Helper()

	avih := aviformat.MainHeader{Streams: 1, Width: 64, Height: 48, TotalFrames: uint32(len(frames))}.Marshal()
	strh := aviformat.StreamHeader{Type: fourcc.VIDS, Handler: fourcc.MakeTag("MJPG"), Scale: 1, Rate: 30, Length: uint32(len(frames))}.Marshal()
	strf := aviformat.BitmapInfoHeader{Size: aviformat.BitmapInfoHeaderSize, Width: 64, Height: 48, Planes: 1, BitCount: 24}.Marshal()

	strl := list(fourcc.STRL, append(chunk(fourcc.STRH, strh), chunk(fourcc.STRF, strf)...))
	hdrl := list(fourcc.HDRL, append(chunk(fourcc.AVIH, avih), strl...))

	var moviBody bytes.Buffer
	tag := fourcc.ResolveStreamTag(fourcc.CanonicalVideoChunk, 0)
	for _, f := range frames {
		moviBody.Write(chunk(tag, f))
	}
	movi := list(fourcc.MOVI, moviBody.Bytes())

	// moviStart is the offset, relative to the segment base, of the
	// first byte after the 'movi' form tag: len(RIFF header) + len(hdrl)
	// + len(LIST header) + len('movi').
	moviStart = uint32(12 + len(hdrl) + 8 + 4)

	idx1Chunk := chunk(fourcc.IDX1, idx1(moviStart))

	riffBody := append(append(append([]byte{}, hdrl...), movi...), idx1Chunk...)

	var full bytes.Buffer
	_ = fourcc.WriteChunkHeader(&full, fourcc.ChunkHeader{ID: fourcc.RIFF, Size: uint32(4 + len(riffBody))})
	_ = fourcc.WriteTag(&full, fourcc.AVI_)
	full.Write(riffBody)

	path = filepath.Join(t.TempDir(), "legacy.avi")
	f, err := riffio.Create(path)
	if err != nil {
		t.Fatalf("riffio.Create: %v", err)
	}
	if _, err := f.Write(full.Bytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path, moviStart
}

func openForRead(t *testing.T, path string) *container.Handle {
	t.Helper()
	f, err := riffio.Open(path)
	if err != nil {
		t.Fatalf("riffio.Open: %v", err)
	}
	idx, err := index.New(context.Background(), &index.Config{Logger: zap.NewNop().Sugar()})
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	h := &container.Handle{
		File:     f,
		Mode:     container.ModeRead,
		Options:  options.NewDefaultOptions(),
		Log:      zap.NewNop().Sugar(),
		Index:    idx,
		Segments: segtable.New(),
	}
	t.Cleanup(func() {
		_ = f.Close()
		_ = idx.Close()
	})
	return h
}

func TestParseLegacyIndexMovieRelativeOffsets(t *testing.T) {
	frames := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8, 9}}
	tag := fourcc.ResolveStreamTag(fourcc.CanonicalVideoChunk, 0)

	path, moviStart := buildLegacyFile(t, frames, func(moviStart uint32) []byte {
		var buf bytes.Buffer
		chunkOffset := uint32(4) // first entry must read as 4 to classify as movie-relative
		buf.Write(aviformat.LegacyIndexEntry{
			ChunkID: tag, Flags: aviformat.AVIIF_KEYFRAME,
			ChunkOffset: chunkOffset, ChunkLength: uint32(len(frames[0])),
		}.Marshal())
		// second entry: offset past the first chunk's 8-byte header + payload (+ pad)
		second := chunkOffset + 8 + fourcc.AlignSize(uint32(len(frames[0])))
		buf.Write(aviformat.LegacyIndexEntry{
			ChunkID: tag, Flags: 0,
			ChunkOffset: second, ChunkLength: uint32(len(frames[1])),
		}.Marshal())
		return buf.Bytes()
	})

	h := openForRead(t, path)
	if err := Open(h); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.MoviStart != moviStart {
		t.Fatalf("h.MoviStart = %d, want %d", h.MoviStart, moviStart)
	}
	assertFramesReadBack(t, h, frames, []bool{true, false})
}

func TestParseLegacyIndexAbsoluteOffsets(t *testing.T) {
	frames := [][]byte{{10, 20, 30}, {40, 50, 60, 70}}
	tag := fourcc.ResolveStreamTag(fourcc.CanonicalVideoChunk, 0)

	path, _ := buildLegacyFile(t, frames, func(moviStart uint32) []byte {
		var buf bytes.Buffer
		first := moviStart // points straight at the first chunk's tag, absolute/segment-relative
		buf.Write(aviformat.LegacyIndexEntry{
			ChunkID: tag, Flags: aviformat.AVIIF_KEYFRAME,
			ChunkOffset: first, ChunkLength: uint32(len(frames[0])),
		}.Marshal())
		second := first + 8 + fourcc.AlignSize(uint32(len(frames[0])))
		buf.Write(aviformat.LegacyIndexEntry{
			ChunkID: tag, Flags: 0,
			ChunkOffset: second, ChunkLength: uint32(len(frames[1])),
		}.Marshal())
		return buf.Bytes()
	})

	h := openForRead(t, path)
	if err := Open(h); err != nil {
		t.Fatalf("Open: %v", err)
	}
	assertFramesReadBack(t, h, frames, []bool{true, false})
}

func TestParseLegacyIndexRejectsMismatchedTag(t *testing.T) {
	frames := [][]byte{{1, 2, 3, 4}}
	badTag := fourcc.MakeTag("01wb")

	path, _ := buildLegacyFile(t, frames, func(moviStart uint32) []byte {
		return aviformat.LegacyIndexEntry{
			ChunkID: badTag, Flags: aviformat.AVIIF_KEYFRAME,
			ChunkOffset: 4, ChunkLength: uint32(len(frames[0])),
		}.Marshal()
	})

	h := openForRead(t, path)
	if err := Open(h); err == nil {
		t.Error("Open should fail when entry 0's tag does not match the bytes at its offset")
	}
}

func assertFramesReadBack(t *testing.T, h *container.Handle, frames [][]byte, keyframes []bool) {
	t.Helper()
	for i, want := range frames {
		size, keyframe, err := ReadVideoFrame(h, nil)
		if err != nil {
			t.Fatalf("ReadVideoFrame(%d) size probe: %v", i, err)
		}
		if size != len(want) {
			t.Fatalf("frame %d size = %d, want %d", i, size, len(want))
		}
		if keyframe != keyframes[i] {
			t.Errorf("frame %d keyframe = %v, want %v", i, keyframe, keyframes[i])
		}
		buf := make([]byte, size)
		if _, _, err := ReadVideoFrame(h, buf); err != nil {
			t.Fatalf("ReadVideoFrame(%d): %v", i, err)
		}
		if !bytes.Equal(buf, want) {
			t.Errorf("frame %d payload = %v, want %v", i, buf, want)
		}
	}
}
