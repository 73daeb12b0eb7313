package codec

import (
	"fmt"

	"github.com/tphakala/wavenc/internal/errors"
)

// ErrorCode mirrors the negative status codes of the LAME encoder API
type ErrorCode int

const (
	CodeBufferTooSmall ErrorCode = -1
	CodeAllocation     ErrorCode = -2
	CodeNotInitialized ErrorCode = -3
	CodePsychoAcoustic ErrorCode = -4

	// CodeProcessFailed reports an external encoder process that could not
	// be fed or exited unsuccessfully
	CodeProcessFailed ErrorCode = -100
)

// String returns the LAME description of the code
func (c ErrorCode) String() string {
	switch c {
	case CodeBufferTooSmall:
		return "mp3buf was too small"
	case CodeAllocation:
		return "malloc() problem"
	case CodeNotInitialized:
		return "lame_init_params() not called"
	case CodePsychoAcoustic:
		return "psycho acoustic problems"
	case CodeProcessFailed:
		return "encoder process failed"
	default:
		return fmt.Sprintf("unknown encoder error %d", int(c))
	}
}

// Error is a codec failure carrying a LAME-style status code
type Error struct {
	Code ErrorCode
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoder error %d (%s): %v", int(e.Code), e.Code, e.Err)
	}
	return fmt.Sprintf("encoder error %d (%s)", int(e.Code), e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps a coded failure for the worker; codec errors are reportable
func newError(code ErrorCode, cause error, operation string) error {
	return errors.New(&Error{Code: code, Err: cause}).
		Component("codec").
		Category(errors.CategoryCodec).
		Context("operation", operation).
		Context("code", int(code)).
		Build()
}

var (
	ErrFFmpegNotFound = errors.NewStd("ffmpeg binary not found")
	ErrInvalidParams  = errors.NewStd("invalid codec parameters")
)
