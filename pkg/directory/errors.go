package directory

import "errors"

var (
	// ErrIndexOutOfRange is returned by Remove for an index outside the table
	ErrIndexOutOfRange = errors.New("mapping index out of range")

	// ErrInvalidMapping is returned for a mapping with a blank department or OU
	ErrInvalidMapping = errors.New("invalid department mapping")
)
