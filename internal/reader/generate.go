package reader

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	internalerrors "github.com/movidx/avi2/pkg/errors"
)

// generateIndex synthesizes a frame index by walking every segment's
// movi list directly, classifying each chunk by its stream-numbered tag
// and optimistically marking every entry a keyframe, since no frame-type
// metadata survives outside an idx1 or master index. Mirrors
// GenerateIndex.
func (p *parser) generateIndex() error {
	h := p.h
	for seg := 0; seg < h.Segments.Len(); seg++ {
		base, _ := h.Segments.Base(seg)
		moviStart, moviEnd, err := p.locateSegmentMovi(seg, base)
		if err != nil {
			return err
		}

		if _, err := h.File.QSeek(moviStart); err != nil {
			return err
		}
		for {
			pos, err := h.File.QTell()
			if err != nil {
				return err
			}
			if pos >= moviEnd {
				break
			}

			canonical, _, ok, err := fourcc.ReadStreamTag(h.File)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					break
				}
				return err
			}
			var sizeBuf [4]byte
			if _, err := io.ReadFull(h.File, sizeBuf[:]); err != nil {
				return err
			}
			size := binary.LittleEndian.Uint32(sizeBuf[:])
			bodyStart, err := h.File.QTell()
			if err != nil {
				return err
			}

			if ok && !(canonical[0] == 'i' && canonical[1] == 'x') {
				kind := index.Video
				if isAudioTag(canonical) {
					kind = index.Audio
				}
				memOffset := uint32(bodyStart - base)
				if _, err := h.Index.Append(kind, memOffset, size, seg, true); err != nil {
					return err
				}
			}

			next := bodyStart + int64(fourcc.AlignSize(size))
			if next <= bodyStart {
				break
			}
			if _, err := h.File.QSeek(next); err != nil {
				return err
			}
		}
	}
	return nil
}

// locateSegmentMovi finds the [start, end) byte range of the payload of
// segment seg's movi list. Segment 0 reuses h.MoviStart, already found
// while parsing the header list; later segments (AVIX form, no hdrl)
// carry the movi LIST immediately after their RIFF/AVIX tag.
func (p *parser) locateSegmentMovi(seg int, base int64) (start, end int64, err error) {
	h := p.h
	if seg == 0 {
		moviListStart := base + int64(h.MoviStart) - 12
		if _, err = h.File.QSeek(moviListStart); err != nil {
			return 0, 0, err
		}
		hdr, err := fourcc.ReadChunkHeader(h.File)
		if err != nil {
			return 0, 0, err
		}
		start = base + int64(h.MoviStart)
		end = moviListStart + 8 + int64(fourcc.AlignSize(hdr.Size))
		return start, end, nil
	}

	if _, err = h.File.QSeek(base); err != nil {
		return 0, 0, err
	}
	riffHdr, err := fourcc.ReadChunkHeader(h.File)
	if err != nil {
		return 0, 0, err
	}
	if !riffHdr.ID.Equal(fourcc.RIFF) {
		return 0, 0, internalerrors.NewCorruptedError("segment does not begin with RIFF").WithSegmentIndex(seg)
	}
	if _, err = fourcc.ReadTag(h.File); err != nil { // AVIX form tag
		return 0, 0, err
	}
	listHdr, err := fourcc.ReadChunkHeader(h.File)
	if err != nil {
		return 0, 0, err
	}
	if !listHdr.ID.Equal(fourcc.LIST) {
		return 0, 0, internalerrors.NewCorruptedError("segment missing movi LIST").WithSegmentIndex(seg)
	}
	listForm, err := fourcc.ReadTag(h.File)
	if err != nil {
		return 0, 0, err
	}
	if !listForm.Equal(fourcc.MOVI) {
		return 0, 0, internalerrors.NewCorruptedError("segment's first LIST is not movi").WithSegmentIndex(seg)
	}
	start, err = h.File.QTell()
	if err != nil {
		return 0, 0, err
	}
	end = start - 4 + int64(fourcc.AlignSize(listHdr.Size))
	return start, end, nil
}
