// Package riffio is a thin facade over the host filesystem that guarantees
// 64-bit offsets on every platform and adds a per-handle seek base: a
// 64-bit value added to every 32-bit relative offset presented to upper
// layers. This is the single mechanism by which the rest of the engine
// addresses files larger than 4 GiB while still using 32-bit offsets
// internally to stay layout-compatible with the on-disk index formats.
package riffio

import (
	"io"
	"os"
)

// File wraps an *os.File with a seek base. Absolute operations (QSeek,
// QSeekFrom, QTell) bypass the base entirely and always address the file
// in true byte offsets. Relative operations (SetPos, GetPos) add or
// subtract the base, letting callers work in 32-bit offsets scoped to the
// current RIFF segment.
type File struct {
	f        *os.File
	seekBase int64
}

// Open opens an existing file for reading. The seek base starts at zero.
func Open(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Create opens name for writing, truncating it if it already exists. Per
// spec.md §4.1, write mode always creates (truncates) the target file.
func Create(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Close closes the underlying file handle.
func (mf *File) Close() error {
	return mf.f.Close()
}

// SetBase sets the seek base used by SetPos/GetPos.
func (mf *File) SetBase(base int64) {
	mf.seekBase = base
}

// Base returns the current seek base.
func (mf *File) Base() int64 {
	return mf.seekBase
}

// Read reads len(p) bytes from the current absolute position.
func (mf *File) Read(p []byte) (int, error) {
	return io.ReadFull(mf.f, p)
}

// Write writes p at the current absolute position.
func (mf *File) Write(p []byte) (int, error) {
	return mf.f.Write(p)
}

// QSeekFrom seeks to an absolute 64-bit address, bypassing the seek base
// entirely, relative to whence (io.SeekStart/Current/End).
func (mf *File) QSeekFrom(addr int64, whence int) (int64, error) {
	return mf.f.Seek(addr, whence)
}

// QSeek seeks to an absolute 64-bit address from the start of the file,
// bypassing the seek base.
func (mf *File) QSeek(addr int64) (int64, error) {
	return mf.QSeekFrom(addr, io.SeekStart)
}

// QTell returns the current absolute 64-bit position, bypassing the seek base.
func (mf *File) QTell() (int64, error) {
	return mf.f.Seek(0, io.SeekCurrent)
}

// SetPos seeks to a position expressed relative to the seek base. Only
// io.SeekStart applies the base, matching the original engine's
// File64SetPos: a relative or end-relative seek is not meaningful across
// a multi-segment file and is passed through unmodified.
func (mf *File) SetPos(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		offset += mf.seekBase
	}
	return mf.QSeekFrom(offset, whence)
}

// GetPos returns the current position relative to the seek base, as the
// 32-bit offset upper layers store in index entries and segment headers.
func (mf *File) GetPos() (uint32, error) {
	abs, err := mf.QTell()
	if err != nil {
		return 0, err
	}
	return uint32(abs - mf.seekBase), nil
}

// GetChar reads a single byte at the current position.
func (mf *File) GetChar() (byte, error) {
	var b [1]byte
	if _, err := mf.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// PutChar writes a single byte at the current position.
func (mf *File) PutChar(b byte) error {
	_, err := mf.Write([]byte{b})
	return err
}

// Sync flushes the file to stable storage.
func (mf *File) Sync() error {
	return mf.f.Sync()
}
