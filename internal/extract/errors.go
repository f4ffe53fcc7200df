package extract

import "errors"

var (
	// ErrDestinationExists is an error that occurs when the extraction
	// destination already exists.
	ErrDestinationExists = errors.New("destination exists")

	// ErrChecksumMismatch is an error that occurs when the checksums of
	// the bytes read and the bytes written diverge during a copy.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
