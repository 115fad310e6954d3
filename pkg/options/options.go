// Package options provides data structures and functions for configuring
// an opened container handle. It defines the parameters that control
// write-mode segmentation, auto-indexing on read, and the software-name
// string stamped into a written file's INFO list.
package options

import "strings"

// WriteMode selects which of the three on-disk layouts a write handle
// produces. See the mode matrix in SPEC_FULL.md §4.5.
type WriteMode int

const (
	// WriteModeLegacy produces a single RIFF segment with a legacy idx1
	// index only, silently dropping frames once the 2 GiB ceiling
	// (including the index) would be exceeded.
	WriteModeLegacy WriteMode = iota

	// WriteModeHybrid produces one or more RIFF segments; the first
	// segment carries both a legacy idx1 index and a master index, every
	// segment carries a chunk index. This is the default.
	WriteModeHybrid

	// WriteModeModern produces one or more RIFF segments with a master
	// index only; no segment carries idx1, and the first segment is
	// tagged AVIX instead of AVI.
	WriteModeModern
)

// String renders the write mode for logging.
func (m WriteMode) String() string {
	switch m {
	case WriteModeLegacy:
		return "legacy"
	case WriteModeHybrid:
		return "hybrid"
	case WriteModeModern:
		return "modern"
	default:
		return "unknown"
	}
}

// Options defines the configuration parameters for an opened container
// handle. Read handles consult AutoIndex only; write handles consult
// WriteMode, SoftwareName, and MaxSegments.
type Options struct {
	// WriteMode selects the on-disk layout produced by a write handle.
	//
	// Default: WriteModeHybrid
	WriteMode WriteMode `json:"writeMode"`

	// AutoIndex enables synthesizing an index by scanning the movie list
	// when a read-mode open finds no usable idx1 or master index.
	//
	// Default: true
	AutoIndex bool `json:"autoIndex"`

	// SoftwareName is stamped into the ISFT chunk of the INFO list on
	// write. Callers that embed this library in a product should set
	// their own name here rather than rely on the default.
	//
	// Default: "avi2 container engine"
	SoftwareName string `json:"softwareName"`

	// MaxSegments bounds how many RIFF segments a write handle will open
	// before reporting too-many-segments. Read handles do not consult it;
	// the segment table's own 128-entry limit bounds what they walk.
	//
	// Default: 128
	// Maximum: 128
	MaxSegments int `json:"maxSegments"`

	// SegmentSizeLimit is the soft per-segment movie-list payload ceiling
	// that triggers closing the current segment and opening a new one in
	// hybrid/modern write mode. Has no effect in legacy mode, which is
	// always bounded by the hard 2 GiB RIFF ceiling instead.
	//
	// Default: 1 GiB
	// Minimum: 16 MiB
	// Maximum: 2 GiB
	SegmentSizeLimit uint64 `json:"segmentSizeLimit"`
}

// OptionFunc is a function type that modifies the container handle's
// configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration
// values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		defaults := NewDefaultOptions()
		*o = defaults
	}
}

// WithWriteMode sets the on-disk layout a write handle produces.
func WithWriteMode(mode WriteMode) OptionFunc {
	return func(o *Options) {
		if mode >= WriteModeLegacy && mode <= WriteModeModern {
			o.WriteMode = mode
		}
	}
}

// WithAutoIndex enables or disables index synthesis when a read-mode open
// finds no usable index.
func WithAutoIndex(enabled bool) OptionFunc {
	return func(o *Options) {
		o.AutoIndex = enabled
	}
}

// WithSoftwareName sets the string stamped into the ISFT chunk on write.
func WithSoftwareName(name string) OptionFunc {
	return func(o *Options) {
		name = strings.TrimSpace(name)
		if name != "" {
			o.SoftwareName = name
		}
	}
}

// WithMaxSegments bounds how many RIFF segments a write handle will
// produce before reporting too-many-segments.
func WithMaxSegments(max int) OptionFunc {
	return func(o *Options) {
		if max > 0 && max <= MaxSegmentCount {
			o.MaxSegments = max
		}
	}
}

// WithSegmentSizeLimit sets the soft per-segment payload ceiling that
// triggers rollover in hybrid/modern write mode.
func WithSegmentSizeLimit(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSizeLimit && size <= MaxSegmentSizeLimit {
			o.SegmentSizeLimit = size
		}
	}
}
