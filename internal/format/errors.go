package format

import "errors"

// ErrBadSizeString is an error that occurs when a user-supplied size
// string cannot be parsed as an integer with an optional k/M/G/T/P/E
// suffix.
var ErrBadSizeString = errors.New("invalid size string")
