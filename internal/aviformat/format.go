// Package aviformat defines the on-disk structures of the file format
// described in SPEC_FULL.md §6.1/§9 (the former spec.md §6.1/§9) and
// their little-endian marshal/unmarshal methods. Both internal/reader
// and internal/writer build on these so the byte layout is defined in
// exactly one place.
//
// Struct layout and the binary.LittleEndian marshaling idiom are
// grounded on other_examples' avi-format.go.go, which defines the same
// family of structures (AVIMainHeader, AVIStreamHeader, BitmapInfoHeader,
// WaveFormatEx, IndexEntry) as plain Go structs read and written with
// encoding/binary rather than unsafe casts.
package aviformat

import (
	"encoding/binary"
	"io"

	"github.com/movidx/avi2/internal/fourcc"
)

// Main header flags (avih.dwFlags).
const (
	AVIF_HASINDEX      uint32 = 0x00000010
	AVIF_ISINTERLEAVED uint32 = 0x00000100
	AVIF_TRUSTCKTYPE   uint32 = 0x00000800
)

// Master/chunk index type and sub-type discriminators (bIndexType).
const (
	AVI_INDEX_OF_INDEXES byte = 0x00
	AVI_INDEX_OF_CHUNKS  byte = 0x01
	AVI_INDEX_STANDARD   byte = 0x00
)

// MainHeader is the avih payload: 56 bytes, 14 DWORDs (10 fields plus a
// 4-DWORD reserved tail), matching the classic AVI main header layout.
type MainHeader struct {
	MicroSecPerFrame     uint32
	MaxBytesPerSec        uint32
	PaddingGranularity    uint32
	Flags                 uint32
	TotalFrames           uint32
	InitialFrames         uint32
	Streams               uint32
	SuggestedBufferSize   uint32
	Width                 uint32
	Height                uint32
	Reserved              [4]uint32
}

const MainHeaderSize = 56

func (h MainHeader) Marshal() []byte {
	buf := make([]byte, MainHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], h.MicroSecPerFrame)
	le.PutUint32(buf[4:8], h.MaxBytesPerSec)
	le.PutUint32(buf[8:12], h.PaddingGranularity)
	le.PutUint32(buf[12:16], h.Flags)
	le.PutUint32(buf[16:20], h.TotalFrames)
	le.PutUint32(buf[20:24], h.InitialFrames)
	le.PutUint32(buf[24:28], h.Streams)
	le.PutUint32(buf[28:32], h.SuggestedBufferSize)
	le.PutUint32(buf[32:36], h.Width)
	le.PutUint32(buf[36:40], h.Height)
	for i, r := range h.Reserved {
		le.PutUint32(buf[40+i*4:44+i*4], r)
	}
	return buf
}

func UnmarshalMainHeader(buf []byte) MainHeader {
	le := binary.LittleEndian
	var h MainHeader
	h.MicroSecPerFrame = le.Uint32(buf[0:4])
	h.MaxBytesPerSec = le.Uint32(buf[4:8])
	h.PaddingGranularity = le.Uint32(buf[8:12])
	h.Flags = le.Uint32(buf[12:16])
	h.TotalFrames = le.Uint32(buf[16:20])
	h.InitialFrames = le.Uint32(buf[20:24])
	h.Streams = le.Uint32(buf[24:28])
	h.SuggestedBufferSize = le.Uint32(buf[28:32])
	h.Width = le.Uint32(buf[32:36])
	h.Height = le.Uint32(buf[36:40])
	for i := range h.Reserved {
		h.Reserved[i] = le.Uint32(buf[40+i*4 : 44+i*4])
	}
	return h
}

// StreamHeader is the strh payload. The writer always emits the full
// 56-byte form; the reader accepts 48-, 56-, or 64-byte forms, reading
// only the bytes declared by the chunk's own size and leaving any
// unread tail unconsulted, per SPEC_FULL.md §4.4/§9.
type StreamHeader struct {
	Type            fourcc.Tag
	Handler         fourcc.Tag
	Flags           uint32
	Priority        uint16
	Language        uint16
	InitialFrames   uint32
	Scale           uint32
	Rate            uint32
	Start           uint32
	Length          uint32
	SuggestedBuffer uint32
	Quality         uint32
	SampleSize      uint32
	FrameLeft       int16
	FrameTop        int16
	FrameRight      int16
	FrameBottom     int16
}

const StreamHeaderSize = 56

func (h StreamHeader) Marshal() []byte {
	buf := make([]byte, StreamHeaderSize)
	le := binary.LittleEndian
	copy(buf[0:4], h.Type[:])
	copy(buf[4:8], h.Handler[:])
	le.PutUint32(buf[8:12], h.Flags)
	le.PutUint16(buf[12:14], h.Priority)
	le.PutUint16(buf[14:16], h.Language)
	le.PutUint32(buf[16:20], h.InitialFrames)
	le.PutUint32(buf[20:24], h.Scale)
	le.PutUint32(buf[24:28], h.Rate)
	le.PutUint32(buf[28:32], h.Start)
	le.PutUint32(buf[32:36], h.Length)
	le.PutUint32(buf[36:40], h.SuggestedBuffer)
	le.PutUint32(buf[40:44], h.Quality)
	le.PutUint32(buf[44:48], h.SampleSize)
	le.PutUint16(buf[48:50], uint16(h.FrameLeft))
	le.PutUint16(buf[50:52], uint16(h.FrameTop))
	le.PutUint16(buf[52:54], uint16(h.FrameRight))
	le.PutUint16(buf[54:56], uint16(h.FrameBottom))
	return buf
}

// UnmarshalStreamHeader reads whatever prefix of the 48/56/64-byte forms
// is available in buf; fields beyond len(buf) are left zero.
func UnmarshalStreamHeader(buf []byte) StreamHeader {
	le := binary.LittleEndian
	var h StreamHeader
	get32 := func(off int) uint32 {
		if off+4 > len(buf) {
			return 0
		}
		return le.Uint32(buf[off : off+4])
	}
	get16 := func(off int) uint16 {
		if off+2 > len(buf) {
			return 0
		}
		return le.Uint16(buf[off : off+2])
	}
	if len(buf) >= 4 {
		copy(h.Type[:], buf[0:4])
	}
	if len(buf) >= 8 {
		copy(h.Handler[:], buf[4:8])
	}
	h.Flags = get32(8)
	h.Priority = get16(12)
	h.Language = get16(14)
	h.InitialFrames = get32(16)
	h.Scale = get32(20)
	h.Rate = get32(24)
	h.Start = get32(28)
	h.Length = get32(32)
	h.SuggestedBuffer = get32(36)
	h.Quality = get32(40)
	h.SampleSize = get32(44)
	h.FrameLeft = int16(get16(48))
	h.FrameTop = int16(get16(50))
	h.FrameRight = int16(get16(52))
	h.FrameBottom = int16(get16(54))
	return h
}

// BitmapInfoHeader is the video strf payload: 40 bytes fixed.
type BitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   fourcc.Tag
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

const BitmapInfoHeaderSize = 40

func (h BitmapInfoHeader) Marshal() []byte {
	buf := make([]byte, BitmapInfoHeaderSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], h.Size)
	le.PutUint32(buf[4:8], uint32(h.Width))
	le.PutUint32(buf[8:12], uint32(h.Height))
	le.PutUint16(buf[12:14], h.Planes)
	le.PutUint16(buf[14:16], h.BitCount)
	copy(buf[16:20], h.Compression[:])
	le.PutUint32(buf[20:24], h.SizeImage)
	le.PutUint32(buf[24:28], uint32(h.XPelsPerMeter))
	le.PutUint32(buf[28:32], uint32(h.YPelsPerMeter))
	le.PutUint32(buf[32:36], h.ClrUsed)
	le.PutUint32(buf[36:40], h.ClrImportant)
	return buf
}

func UnmarshalBitmapInfoHeader(buf []byte) BitmapInfoHeader {
	le := binary.LittleEndian
	var h BitmapInfoHeader
	h.Size = le.Uint32(buf[0:4])
	h.Width = int32(le.Uint32(buf[4:8]))
	h.Height = int32(le.Uint32(buf[8:12]))
	h.Planes = le.Uint16(buf[12:14])
	h.BitCount = le.Uint16(buf[14:16])
	copy(h.Compression[:], buf[16:20])
	h.SizeImage = le.Uint32(buf[20:24])
	h.XPelsPerMeter = int32(le.Uint32(buf[24:28]))
	h.YPelsPerMeter = int32(le.Uint32(buf[28:32]))
	h.ClrUsed = le.Uint32(buf[32:36])
	h.ClrImportant = le.Uint32(buf[36:40])
	return h
}

// WaveFormat is the audio strf prefix: 18 bytes fixed (the classic
// WAVEFORMATEX layout, stopping at cbSize). Any bytes declared by the
// chunk's own size beyond these 18 are preserved opaquely by the caller
// as ExtraFormatData rather than interpreted here.
type WaveFormat struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	ExtraSize      uint16
}

const WaveFormatSize = 18

func (w WaveFormat) Marshal() []byte {
	buf := make([]byte, WaveFormatSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], w.FormatTag)
	le.PutUint16(buf[2:4], w.Channels)
	le.PutUint32(buf[4:8], w.SamplesPerSec)
	le.PutUint32(buf[8:12], w.AvgBytesPerSec)
	le.PutUint16(buf[12:14], w.BlockAlign)
	le.PutUint16(buf[14:16], w.BitsPerSample)
	le.PutUint16(buf[16:18], w.ExtraSize)
	return buf
}

func UnmarshalWaveFormat(buf []byte) WaveFormat {
	le := binary.LittleEndian
	var w WaveFormat
	w.FormatTag = le.Uint16(buf[0:2])
	w.Channels = le.Uint16(buf[2:4])
	w.SamplesPerSec = le.Uint32(buf[4:8])
	w.AvgBytesPerSec = le.Uint32(buf[8:12])
	w.BlockAlign = le.Uint16(buf[12:14])
	w.BitsPerSample = le.Uint16(buf[14:16])
	w.ExtraSize = le.Uint16(buf[16:18])
	return w
}

// IndexChunkHeader is the 24-byte header shared by both the ix##
// chunk-index form and the indx master-index form; bIndexType tells
// them apart. BaseOffset carries the qwBaseOffset used by the
// chunk-index offset-normalization formula (SPEC_FULL.md §4.4); it is
// zero and unused in the master-index form, whose entries are already
// absolute.
type IndexChunkHeader struct {
	LongsPerEntry uint16
	SubType       byte
	Type          byte
	EntriesInUse  uint32
	ChunkID       fourcc.Tag
	BaseOffset    uint64
	Reserved      uint32
}

const IndexChunkHeaderSize = 24

func (h IndexChunkHeader) Marshal() []byte {
	buf := make([]byte, IndexChunkHeaderSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], h.LongsPerEntry)
	buf[2] = h.SubType
	buf[3] = h.Type
	le.PutUint32(buf[4:8], h.EntriesInUse)
	copy(buf[8:12], h.ChunkID[:])
	le.PutUint64(buf[12:20], h.BaseOffset)
	le.PutUint32(buf[20:24], h.Reserved)
	return buf
}

func UnmarshalIndexChunkHeader(buf []byte) IndexChunkHeader {
	le := binary.LittleEndian
	var h IndexChunkHeader
	h.LongsPerEntry = le.Uint16(buf[0:2])
	h.SubType = buf[2]
	h.Type = buf[3]
	h.EntriesInUse = le.Uint32(buf[4:8])
	copy(h.ChunkID[:], buf[8:12])
	h.BaseOffset = le.Uint64(buf[12:20])
	h.Reserved = le.Uint32(buf[20:24])
	return h
}

// StandardIndexEntry is the 8-byte chunk-index entry: (offset, size),
// layout-compatible with index.Entry so the reader may bulk-read
// directly into an index.Entry slice, per SPEC_FULL.md §4.3.
type StandardIndexEntry struct {
	Offset uint32
	Size   uint32
}

const StandardIndexEntrySize = 8

func (e StandardIndexEntry) Marshal() []byte {
	buf := make([]byte, StandardIndexEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], e.Offset)
	binary.LittleEndian.PutUint32(buf[4:8], e.Size)
	return buf
}

func UnmarshalStandardIndexEntry(buf []byte) StandardIndexEntry {
	return StandardIndexEntry{
		Offset: binary.LittleEndian.Uint32(buf[0:4]),
		Size:   binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// SuperIndexEntry is the 16-byte master-index entry: an absolute file
// offset to a chunk-index chunk, its size, and a duration (frame count
// for video; for audio, the total byte count divided by the block
// alignment, i.e. the sample count).
type SuperIndexEntry struct {
	Offset   uint64
	Size     uint32
	Duration uint32
}

const SuperIndexEntrySize = 16

func (e SuperIndexEntry) Marshal() []byte {
	buf := make([]byte, SuperIndexEntrySize)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], e.Offset)
	le.PutUint32(buf[8:12], e.Size)
	le.PutUint32(buf[12:16], e.Duration)
	return buf
}

func UnmarshalSuperIndexEntry(buf []byte) SuperIndexEntry {
	le := binary.LittleEndian
	return SuperIndexEntry{
		Offset:   le.Uint64(buf[0:8]),
		Size:     le.Uint32(buf[8:12]),
		Duration: le.Uint32(buf[12:16]),
	}
}

// LegacyIndexEntry is the 16-byte idx1 entry.
type LegacyIndexEntry struct {
	ChunkID     fourcc.Tag
	Flags       uint32
	ChunkOffset uint32
	ChunkLength uint32
}

const (
	LegacyIndexEntrySize = 16
	AVIIF_KEYFRAME       uint32 = 0x00000010
)

func (e LegacyIndexEntry) Marshal() []byte {
	buf := make([]byte, LegacyIndexEntrySize)
	le := binary.LittleEndian
	copy(buf[0:4], e.ChunkID[:])
	le.PutUint32(buf[4:8], e.Flags)
	le.PutUint32(buf[8:12], e.ChunkOffset)
	le.PutUint32(buf[12:16], e.ChunkLength)
	return buf
}

func UnmarshalLegacyIndexEntry(buf []byte) LegacyIndexEntry {
	le := binary.LittleEndian
	var e LegacyIndexEntry
	copy(e.ChunkID[:], buf[0:4])
	e.Flags = le.Uint32(buf[4:8])
	e.ChunkOffset = le.Uint32(buf[8:12])
	e.ChunkLength = le.Uint32(buf[12:16])
	return e
}

// VideoPropHeader is the vprp payload: 44-byte header plus one 32-byte
// field descriptor (progressive video carries exactly one).
type VideoPropHeader struct {
	FormatToken        uint32
	Standard            uint32
	VerticalRefreshRate uint32
	HTotalInT           uint32
	VTotalInLines       uint32
	FrameAspectRatio    uint32
	FrameWidthInPixels  uint32
	FrameHeightInLines  uint32
	FieldPerFrame       uint32
	CompressedBMHeight  uint32
	CompressedBMWidth   uint32
}

const VideoPropHeaderSize = 44

// FieldDesc is the 32-byte per-field descriptor following VideoPropHeader.
type FieldDesc struct {
	ValidBMHeight  uint32
	ValidBMWidth   uint32
	ValidBMXOffset uint32
	ValidBMYOffset uint32
	VideoXOffsetInT uint32
	VideoYValidStartLine uint32
	Reserved1      uint32
	Reserved2      uint32
}

const FieldDescSize = 32

func (h VideoPropHeader) Marshal() []byte {
	buf := make([]byte, VideoPropHeaderSize)
	le := binary.LittleEndian
	vals := []uint32{
		h.FormatToken, h.Standard, h.VerticalRefreshRate, h.HTotalInT,
		h.VTotalInLines, h.FrameAspectRatio, h.FrameWidthInPixels,
		h.FrameHeightInLines, h.FieldPerFrame, h.CompressedBMHeight, h.CompressedBMWidth,
	}
	for i, v := range vals {
		le.PutUint32(buf[i*4:i*4+4], v)
	}
	return buf
}

func UnmarshalVideoPropHeader(buf []byte) VideoPropHeader {
	le := binary.LittleEndian
	get := func(i int) uint32 { return le.Uint32(buf[i*4 : i*4+4]) }
	return VideoPropHeader{
		FormatToken: get(0), Standard: get(1), VerticalRefreshRate: get(2), HTotalInT: get(3),
		VTotalInLines: get(4), FrameAspectRatio: get(5), FrameWidthInPixels: get(6),
		FrameHeightInLines: get(7), FieldPerFrame: get(8), CompressedBMHeight: get(9), CompressedBMWidth: get(10),
	}
}

func (d FieldDesc) Marshal() []byte {
	buf := make([]byte, FieldDescSize)
	le := binary.LittleEndian
	vals := []uint32{
		d.ValidBMHeight, d.ValidBMWidth, d.ValidBMXOffset, d.ValidBMYOffset,
		d.VideoXOffsetInT, d.VideoYValidStartLine, d.Reserved1, d.Reserved2,
	}
	for i, v := range vals {
		le.PutUint32(buf[i*4:i*4+4], v)
	}
	return buf
}

// ReadFull is a small convenience wrapper kept here so writer/reader
// code reads uniformly through io.ReadFull without importing io solely
// for that in every call site's file.
func ReadFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
