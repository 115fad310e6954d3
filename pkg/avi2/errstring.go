package avi2

import internalerrors "github.com/movidx/avi2/pkg/errors"

// errorStrings is the bounded, pure lookup table behind ErrorString,
// grounded on original_source/source/avi2_common.c's AVI_StrError.
var errorStrings = map[internalerrors.ErrorCode]string{
	internalerrors.ErrorCodeCorrupted:         "avi2 - File is corrupted",
	internalerrors.ErrorCodeNotExist:          "avi2 - File does not exist or is unreadable",
	internalerrors.ErrorCodeCantCreate:        "avi2 - Could not create AVI file",
	internalerrors.ErrorCodeWrongMode:         "avi2 - Function incompatible with the mode the file was opened",
	internalerrors.ErrorCodeMissingVideo:      "avi2 - AVI file missing video or MOVI list",
	internalerrors.ErrorCodeNoIndex:           "avi2 - No Index found",
	internalerrors.ErrorCodeBufferSize:        "avi2 - Buffer too small",
	internalerrors.ErrorCodeEOF:               "avi2 - No more frames",
	internalerrors.ErrorCodeTooManyChannels:   "avi2 - Too many audio channels",
	internalerrors.ErrorCodeBadParameter:      "avi2 - A function parameter is invalid",
	internalerrors.ErrorCodeFunctionOrder:     "avi2 - Function called out of order",
	internalerrors.ErrorCodeOverflow:          "avi2 - Overflow",
	internalerrors.ErrorCodeTooManySegments:   "avi2 - File too large",
	internalerrors.ErrorCodeNotSupported:      "avi2 - Unsupported Feature",
	internalerrors.ErrorCodeMalloc:            "avi2 - Out of memory",
	internalerrors.ErrorCodeCantWrite:         "avi2 - Unable to write AVI header",
	internalerrors.ErrorCodeStructBad:         "avi2 - AVI Structure Bad",
	internalerrors.ErrorCodeIndexKeyNotFound:  "avi2 - Frame not in file",
	internalerrors.ErrorCodeIndexInvalidSegmentID: "avi2 - The Stream is invalid",
}

// ErrorString maps an ErrorCode to its static, human-readable message,
// per SPEC_FULL.md §4.6's error-string operation. Unknown codes return
// the same "Unknown Error" fallback as the original's out-of-range
// index handling.
func ErrorString(code internalerrors.ErrorCode) string {
	if s, ok := errorStrings[code]; ok {
		return s
	}
	return "avi2 - Unknown Error"
}

// CodeOf extracts the ErrorCode from any error returned by this package,
// defaulting to ErrorCodeInternal if err does not carry one (e.g. a raw
// I/O error not wrapped by pkg/errors).
func CodeOf(err error) internalerrors.ErrorCode {
	type coder interface{ Code() internalerrors.ErrorCode }
	if c, ok := err.(coder); ok {
		return c.Code()
	}
	return internalerrors.ErrorCodeInternal
}
