package errors

// ContainerError is a specialized error type for failures reported by an
// open container handle: parse failures, write-frame rejections, and
// facade-level state violations. It embeds baseError to inherit chaining,
// structured details, and error codes, then adds the context a caller
// needs to locate the failing chunk inside a multi-segment file.
type ContainerError struct {
	*baseError

	// Offset is the absolute file offset where the fault was detected, or
	// -1 if the error is not tied to a specific position.
	offset int64

	// SegmentIndex is the index into the handle's segment table the fault
	// belongs to, or -1 if not applicable.
	segmentIndex int

	// ChunkTag is the four-character tag of the chunk being processed when
	// the fault was detected, empty if not applicable.
	chunkTag string
}

// NewContainerError creates a new container-specific error with the
// provided context.
func NewContainerError(err error, code ErrorCode, msg string) *ContainerError {
	return &ContainerError{baseError: NewBaseError(err, code, msg), offset: -1, segmentIndex: -1}
}

// Override base error methods to return *ContainerError instead of *baseError.

func (ce *ContainerError) WithMessage(msg string) *ContainerError {
	ce.baseError.WithMessage(msg)
	return ce
}

func (ce *ContainerError) WithCode(code ErrorCode) *ContainerError {
	ce.baseError.WithCode(code)
	return ce
}

func (ce *ContainerError) WithDetail(key string, value any) *ContainerError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithOffset records the absolute file offset where the fault was detected.
func (ce *ContainerError) WithOffset(offset int64) *ContainerError {
	ce.offset = offset
	return ce
}

// WithSegmentIndex records which segment table entry the fault belongs to.
func (ce *ContainerError) WithSegmentIndex(index int) *ContainerError {
	ce.segmentIndex = index
	return ce
}

// WithChunkTag records the four-character tag being processed when the
// fault was detected.
func (ce *ContainerError) WithChunkTag(tag string) *ContainerError {
	ce.chunkTag = tag
	return ce
}

// Offset returns the absolute file offset associated with the error, or -1.
func (ce *ContainerError) Offset() int64 {
	return ce.offset
}

// SegmentIndex returns the segment table index associated with the error,
// or -1.
func (ce *ContainerError) SegmentIndex() int {
	return ce.segmentIndex
}

// ChunkTag returns the chunk tag associated with the error.
func (ce *ContainerError) ChunkTag() string {
	return ce.chunkTag
}

// NewCorruptedError creates the error used for any structural mismatch
// found while parsing: a missing expected tag, an inconsistent size field,
// an out-of-range index offset, a duplicate avih.
func NewCorruptedError(reason string) *ContainerError {
	return NewContainerError(nil, ErrorCodeCorrupted, reason)
}

// NewWrongModeError creates the error used when a read operation is
// attempted on a write handle, or vice versa.
func NewWrongModeError(op string) *ContainerError {
	return NewContainerError(nil, ErrorCodeWrongMode, "operation not valid for this handle's mode").
		WithDetail("operation", op)
}

// NewEOFError creates the error used when a read cursor has advanced past
// the last frame of its stream.
func NewEOFError(stream string) *ContainerError {
	return NewContainerError(nil, ErrorCodeEOF, "no more frames in stream").
		WithDetail("stream", stream)
}

// NewFunctionOrderError creates the error used when set-video or set-audio
// is called after a frame has already been written.
func NewFunctionOrderError(op string) *ContainerError {
	return NewContainerError(nil, ErrorCodeFunctionOrder, "operation must be called before the first frame is written").
		WithDetail("operation", op)
}
