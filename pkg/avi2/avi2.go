// Package avi2 is the public facade described in SPEC_FULL.md §4.6:
// open/close, set-video/set-audio, write-*-frame, seek-start,
// read-*-frame, and error-string lookup. It is the only package an
// embedding application imports directly; everything else under
// internal/ is wiring this package drives but never exposes.
//
// Restructured in the shape of the teacher's pkg/ignite/ignite.go: an
// Instance wrapping a context-scoped internal coordinator, built through
// Open with functional options, rather than a bare constructor
// returning a struct literal.
package avi2

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/movidx/avi2/internal/container"
	"github.com/movidx/avi2/internal/fourcc"
	"github.com/movidx/avi2/internal/index"
	"github.com/movidx/avi2/internal/reader"
	"github.com/movidx/avi2/internal/riffio"
	"github.com/movidx/avi2/internal/writer"
	internalerrors "github.com/movidx/avi2/pkg/errors"
	"github.com/movidx/avi2/pkg/filesys"
	"github.com/movidx/avi2/pkg/logger"
	"github.com/movidx/avi2/pkg/options"
	"github.com/movidx/avi2/pkg/segtable"
)

// Mode selects whether an Instance reads or writes its container file.
type Mode = container.Mode

const (
	ModeRead  = container.ModeRead
	ModeWrite = container.ModeWrite
)

// WriteMode re-exports the write sub-mode so callers never need to
// import pkg/options directly just to pick legacy/hybrid/modern.
type WriteMode = options.WriteMode

const (
	WriteModeLegacy = options.WriteModeLegacy
	WriteModeHybrid = options.WriteModeHybrid
	WriteModeModern = options.WriteModeModern
)

// Instance is one open container file: the primary entry point for
// reading or writing an AVI2 file, encapsulating the handle that
// internal/reader and internal/writer operate on directly.
type Instance struct {
	handle  *container.Handle
	options *options.Options
}

// Open opens path in the given mode and returns a ready Instance.
// Read mode parses the existing file (consulting the AutoIndex option
// if no usable index is found); write mode creates (truncating) the
// file and reserves its header region on the first frame write, per
// SPEC_FULL.md §4.6.
func Open(ctx context.Context, service, path string, mode Mode, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	idx, err := index.New(ctx, &index.Config{Logger: log})
	if err != nil {
		return nil, err
	}

	var f *riffio.File
	if mode == ModeWrite {
		if err := filesys.CreateDir(dirOf(path), 0755, true); err != nil {
			return nil, internalerrors.NewContainerError(
				err, internalerrors.ErrorCodeCantCreate, "could not create parent directory",
			).WithDetail("path", path)
		}
		f, err = riffio.Create(path)
		if err != nil {
			return nil, internalerrors.NewContainerError(
				err, internalerrors.ErrorCodeCantCreate, "could not create container file",
			).WithDetail("path", path)
		}
	} else {
		f, err = riffio.Open(path)
		if err != nil {
			return nil, internalerrors.NewContainerError(
				err, internalerrors.ErrorCodeNotExist, "could not open container file",
			).WithDetail("path", path)
		}
	}

	h := &container.Handle{
		File:     f,
		Mode:     mode,
		Options:  defaultOpts,
		Log:      log,
		Index:    idx,
		Segments: segtable.New(),
	}

	if mode == ModeRead {
		if err := reader.Open(h); err != nil {
			_ = f.Close()
			_ = idx.Close()
			return nil, err
		}
	}

	return &Instance{handle: h, options: &defaultOpts}, nil
}

// dirOf returns the parent directory of path, "." if path has none.
func dirOf(path string) string {
	i := lastSlash(path)
	if i < 0 {
		return "."
	}
	return path[:i]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}

// Close finalizes a write Instance (patching sizes and emitting the
// master/legacy indexes) and releases the file handle and index arrays.
// Both the writer's finalize error and the file-close error, if any, are
// reported together rather than one shadowing the other.
func (i *Instance) Close() error {
	if !i.handle.MarkClosed() {
		return nil
	}

	var err error
	if i.handle.Mode == ModeWrite {
		err = multierr.Append(err, writer.Close(i.handle))
	}
	err = multierr.Append(err, i.handle.File.Close())
	err = multierr.Append(err, i.handle.Index.Close())
	return err
}

// Log exposes the instance's structured logger, e.g. for the demo
// player to share one sink with the engine.
func (i *Instance) Log() *zap.SugaredLogger {
	return i.handle.Log
}

// Codec builds a fourcc.Tag from a four-character codec string, for
// callers that would otherwise need to import internal/fourcc directly
// to call SetVideo/SetAudio.
func Codec(s string) fourcc.Tag {
	var t fourcc.Tag
	copy(t[:], s)
	return t
}
