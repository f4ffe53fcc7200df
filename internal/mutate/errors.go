package mutate

import "errors"

// ErrNoFreeTempPath is an error that occurs when no unused sibling
// temporary path can be found next to a hardlink target.
var ErrNoFreeTempPath = errors.New("no free temporary path")
