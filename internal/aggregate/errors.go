package aggregate

import "errors"

// ErrZeroBatchSize is an error that occurs when a size histogram is
// requested with a batch size of zero.
var ErrZeroBatchSize = errors.New("size-histogram batch size must be greater than 0")
