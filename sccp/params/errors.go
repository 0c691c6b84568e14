package params

import "errors"

// Decode/encode sentinel errors shared by every parameter type in this
// package, so callers of sccp's codec can branch on failure class instead
// of string-matching.
var (
	ErrTooShort       = errors.New("params: buffer too short")
	ErrInvalidSubtype = errors.New("params: invalid global title indicator subtype")
	ErrPointerOverflow = errors.New("params: pointer value exceeds field range")
	ErrUnknownIndicator = errors.New("params: unknown address indicator component")
)
