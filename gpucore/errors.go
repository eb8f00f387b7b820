package gpucore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure surfaced by the filter compiler.
type ErrorKind uint8

// Error kinds.
const (
	// KindUnknown is reported by KindOf for errors outside the taxonomy.
	KindUnknown ErrorKind = iota

	// KindUnavailable means no GPU backend, adapter or device could be
	// obtained.
	KindUnavailable

	// KindShader means an operation has no registered shader or its source
	// failed to compile.
	KindShader

	// KindPipeline means pipeline object creation failed for a valid shader.
	KindPipeline

	// KindResource means a texture, buffer or bind group could not be
	// created, written or read back.
	KindResource

	// KindValidation means a parameter is outside its valid range.
	KindValidation

	// KindUnsupported means an operation has no shader and no fallback.
	KindUnsupported
)

// Sentinel errors, one per kind. Every *Error matches the sentinel of its
// kind with errors.Is.
var (
	ErrUnavailable       = errors.New("gpucore: GPU unavailable")
	ErrShader            = errors.New("gpucore: shader error")
	ErrPipeline          = errors.New("gpucore: pipeline creation failed")
	ErrResource          = errors.New("gpucore: GPU resource error")
	ErrValidation        = errors.New("gpucore: invalid parameter")
	ErrUnsupportedFilter = errors.New("gpucore: unsupported filter")
)

// Unavailability stages.
var (
	ErrNoBackend = fmt.Errorf("%w: no backend", ErrUnavailable)
	ErrNoAdapter = fmt.Errorf("%w: no adapter", ErrUnavailable)
	ErrNoDevice  = fmt.Errorf("%w: no device", ErrUnavailable)
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindUnavailable: "unavailable",
	KindShader:      "shader",
	KindPipeline:    "pipeline",
	KindResource:    "resource",
	KindValidation:  "validation",
	KindUnsupported: "unsupported",
}

// String returns the kind name.
func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnavailable:
		return ErrUnavailable
	case KindShader:
		return ErrShader
	case KindPipeline:
		return ErrPipeline
	case KindResource:
		return ErrResource
	case KindValidation:
		return ErrValidation
	case KindUnsupported:
		return ErrUnsupportedFilter
	}
	return nil
}

// Error is a classified failure.
type Error struct {
	Kind ErrorKind

	// Op is the step that failed, e.g. "create texture".
	Op string

	// Name is the filter operation or resource involved, if any.
	Name string

	// Err is the underlying cause. May be nil.
	Err error
}

// NewError returns an *Error of the given kind.
func NewError(kind ErrorKind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

func (e *Error) Error() string {
	msg := "filtergraph: " + e.Kind.String() + " error: " + e.Op
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first classified error in err's chain.
// Bare unavailability sentinels report KindUnavailable.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrUnavailable) {
		return KindUnavailable
	}
	return KindUnknown
}
