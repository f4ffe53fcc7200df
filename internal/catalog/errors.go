package catalog

import "errors"

var (
	// ErrTruncated is an error that occurs when a sidecar ends before a
	// declared field or section is complete.
	ErrTruncated = errors.New("unexpected end of sidecar")

	// ErrBadMagic is an error that occurs when a sidecar does not start
	// with the DirDB tag.
	ErrBadMagic = errors.New("invalid sidecar tag")

	// ErrBadVersion is an error that occurs when a sidecar declares an
	// unsupported format version.
	ErrBadVersion = errors.New("unsupported sidecar version")

	// ErrBadSectionTag is an error that occurs when a section tag is
	// missing or out of order.
	ErrBadSectionTag = errors.New("missing section tag")

	// ErrBadEntrySize is an error that occurs when a declared entry
	// stride is smaller than the fixed fields it must cover.
	ErrBadEntrySize = errors.New("unsupported entry size")

	// ErrBadTocIndex is an error that occurs when TOC file indices are
	// decreasing, out of range, or absent despite file entries.
	ErrBadTocIndex = errors.New("inconsistent TOC")

	// ErrBadStringOffset is an error that occurs when a file entry
	// references a name offset outside the STRINGS blob.
	ErrBadStringOffset = errors.New("invalid name offset")

	// ErrBadString is an error that occurs when a length-prefixed
	// string exceeds the STRINGS blob.
	ErrBadString = errors.New("invalid string encoding")

	// ErrShortDigest is an error that occurs when the hasher yields
	// fewer digest bytes than a fingerprint requires.
	ErrShortDigest = errors.New("unexpected short digest")
)
