package writer

import (
	"bytes"
	"encoding/binary"

	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
)

// writeChunk writes a complete tag+size+payload chunk, padding with one
// zero byte if payload is odd-length, and returns the absolute file
// offset of the chunk's payload (the position a reader would use as an
// index entry's offset).
func writeChunk(h *container.Handle, tag fourcc.Tag, payload []byte) (int64, error) {
	if err := fourcc.WriteChunkHeader(h.File, fourcc.ChunkHeader{ID: tag, Size: uint32(len(payload))}); err != nil {
		return 0, err
	}
	payloadStart, err := h.File.QTell()
	if err != nil {
		return 0, err
	}
	if _, err := h.File.Write(payload); err != nil {
		return 0, err
	}
	if len(payload)%2 == 1 {
		if err := h.File.PutChar(0); err != nil {
			return 0, err
		}
	}
	return payloadStart, nil
}

// beginPlaceholderChunk writes a chunk header with a zero size, to be
// patched once the chunk's true size is known, and returns both the
// absolute position of the size field (for the patch) and the payload
// start position.
func beginPlaceholderChunk(h *container.Handle, tag fourcc.Tag) (sizePos, payloadStart int64, err error) {
	pos, err := h.File.QTell()
	if err != nil {
		return 0, 0, err
	}
	if err := fourcc.WriteChunkHeader(h.File, fourcc.ChunkHeader{ID: tag, Size: 0}); err != nil {
		return 0, 0, err
	}
	payloadStart, err = h.File.QTell()
	if err != nil {
		return 0, 0, err
	}
	return pos + 4, payloadStart, nil
}

// patchUint32 overwrites the 4-byte little-endian value at absolute
// position pos, restoring the file's prior position afterward. This is
// the seek-write-restore pattern used for every forward-declared size or
// running total in the format.
func patchUint32(h *container.Handle, pos int64, value uint32) error {
	saved, err := h.File.QTell()
	if err != nil {
		return err
	}
	if _, err := h.File.QSeek(pos); err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	if _, err := h.File.Write(buf[:]); err != nil {
		return err
	}
	_, err = h.File.QSeek(saved)
	return err
}

// patchBytes overwrites arbitrary bytes at absolute position pos,
// restoring the file's prior position afterward.
func patchBytes(h *container.Handle, pos int64, value []byte) error {
	saved, err := h.File.QTell()
	if err != nil {
		return err
	}
	if _, err := h.File.QSeek(pos); err != nil {
		return err
	}
	if _, err := h.File.Write(value); err != nil {
		return err
	}
	_, err = h.File.QSeek(saved)
	return err
}

// chunkHeaderBytes renders an 8-byte chunk header into memory, for
// patching one into an already-reserved region (e.g. the JUNK chunk left
// behind when a master index shrinks) rather than writing it at the
// current file position.
func chunkHeaderBytes(tag fourcc.Tag, size uint32) []byte {
	var buf bytes.Buffer
	_ = fourcc.WriteChunkHeader(&buf, fourcc.ChunkHeader{ID: tag, Size: size})
	return buf.Bytes()
}
