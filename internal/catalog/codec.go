package catalog

import (
	"encoding/binary"
	"fmt"

	"github.com/desertwitch/treeop/internal/sha3"
)

// Version is the sidecar format version this codec reads and writes.
const Version = 1

const (
	tocEntryBytes  = 16
	fileEntryBytes = 48
)

// Eight-byte ASCII tags, zero padded, interpreted as little-endian u64.
//
//nolint:gochecknoglobals
var (
	tagDirDB   = makeTag("DirDB")
	tagTOC     = makeTag("TOC")
	tagFiles   = makeTag("FILES")
	tagStrings = makeTag("STRINGS")
)

func makeTag(tag string) uint64 {
	var value uint64
	for i := 0; i < len(tag) && i < 8; i++ {
		value |= uint64(tag[i]) << (8 * i)
	}

	return value
}

// Encode serializes sorted file entries into the canonical sidecar
// blob: header, TOC, FILES, STRINGS, minimal strides, no padding.
func Encode(files []FileEntry) []byte {
	type tocEntry struct {
		size      uint64
		fileIndex uint64
	}

	var toc []tocEntry
	for i := range files {
		if i == 0 || files[i].Size != files[i-1].Size {
			toc = append(toc, tocEntry{size: files[i].Size, fileIndex: uint64(i)})
		}
	}

	var strings []byte
	nameOffsets := make([]uint64, len(files))
	for i := range files {
		nameOffsets[i] = uint64(len(strings))
		strings = appendLengthString(strings, files[i].Name)
	}

	out := make([]byte, 0, 6*8+len(toc)*tocEntryBytes+3*8+len(files)*fileEntryBytes+2*8+len(strings))
	out = binary.LittleEndian.AppendUint64(out, tagDirDB)
	out = binary.LittleEndian.AppendUint64(out, Version)

	out = binary.LittleEndian.AppendUint64(out, tagTOC)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(toc)))
	out = binary.LittleEndian.AppendUint64(out, tocEntryBytes)
	for _, entry := range toc {
		out = binary.LittleEndian.AppendUint64(out, entry.size)
		out = binary.LittleEndian.AppendUint64(out, entry.fileIndex)
	}

	out = binary.LittleEndian.AppendUint64(out, tagFiles)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(files)))
	out = binary.LittleEndian.AppendUint64(out, fileEntryBytes)
	for i := range files {
		file := &files[i]
		out = binary.LittleEndian.AppendUint64(out, nameOffsets[i])
		out = binary.LittleEndian.AppendUint64(out, file.Hash.Lo)
		out = binary.LittleEndian.AppendUint64(out, file.Hash.Hi)
		out = binary.LittleEndian.AppendUint64(out, file.Inode)
		out = binary.LittleEndian.AppendUint64(out, file.Mtime)
		out = binary.LittleEndian.AppendUint64(out, file.NumLinks)
	}

	out = binary.LittleEndian.AppendUint64(out, tagStrings)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(strings)))
	out = append(out, strings...)

	return out
}

// appendLengthString appends a length-prefixed string: lengths up to
// 0xfc in one byte, then 0xff+u16, 0xfe+u32, 0xfd+u64 (little endian).
func appendLengthString(out []byte, s string) []byte {
	switch length := uint64(len(s)); {
	case length <= 0xfc:
		out = append(out, byte(length))
	case length <= 0xffff:
		out = append(out, 0xff)
		out = binary.LittleEndian.AppendUint16(out, uint16(length))
	case length <= 0xffffffff:
		out = append(out, 0xfe)
		out = binary.LittleEndian.AppendUint32(out, uint32(length))
	default:
		out = append(out, 0xfd)
		out = binary.LittleEndian.AppendUint64(out, length)
	}

	return append(out, s...)
}

// readLengthStringAt decodes a length-prefixed string at offset.
func readLengthStringAt(strings []byte, offset uint64) (string, error) {
	if offset >= uint64(len(strings)) {
		return "", fmt.Errorf("%w: offset %d beyond %d blob bytes", ErrBadStringOffset, offset, len(strings))
	}

	pos := offset
	prefix := strings[pos]
	pos++

	var length uint64
	switch {
	case prefix <= 0xfc:
		length = uint64(prefix)
	case prefix == 0xff:
		if pos+2 > uint64(len(strings)) {
			return "", fmt.Errorf("%w: truncated u16 length", ErrBadString)
		}
		length = uint64(binary.LittleEndian.Uint16(strings[pos:]))
		pos += 2
	case prefix == 0xfe:
		if pos+4 > uint64(len(strings)) {
			return "", fmt.Errorf("%w: truncated u32 length", ErrBadString)
		}
		length = uint64(binary.LittleEndian.Uint32(strings[pos:]))
		pos += 4
	default: // 0xfd
		if pos+8 > uint64(len(strings)) {
			return "", fmt.Errorf("%w: truncated u64 length", ErrBadString)
		}
		length = binary.LittleEndian.Uint64(strings[pos:])
		pos += 8
	}

	if pos+length > uint64(len(strings)) || pos+length < pos {
		return "", fmt.Errorf("%w: length %d beyond blob", ErrBadString, length)
	}

	return string(strings[pos : pos+length]), nil
}

// decoder walks a sidecar blob with bounds checking.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) readU64(what string) (uint64, error) {
	if d.pos+8 > len(d.data) {
		return 0, fmt.Errorf("%w: reading %s", ErrTruncated, what)
	}
	value := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8

	return value, nil
}

// Decode parses a sidecar blob into file entries. Any structural
// violation yields an error naming the failing field; no partial
// result is returned. Trailing bytes within a declared entry stride
// are ignored so future fields can be added compatibly.
//
//nolint:funlen,gocognit
func Decode(data []byte) ([]FileEntry, error) {
	d := &decoder{data: data}

	tag, err := d.readU64("DirDB tag")
	if err != nil {
		return nil, err
	}
	if tag != tagDirDB {
		return nil, fmt.Errorf("%w: 0x%016x", ErrBadMagic, tag)
	}
	version, err := d.readU64("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	tag, err = d.readU64("TOC tag")
	if err != nil {
		return nil, err
	}
	if tag != tagTOC {
		return nil, fmt.Errorf("%w: TOC", ErrBadSectionTag)
	}
	tocCount, err := d.readU64("TOC count")
	if err != nil {
		return nil, err
	}
	tocStride, err := d.readU64("TOC entry size")
	if err != nil {
		return nil, err
	}
	if tocStride < tocEntryBytes || tocStride > uint64(len(data)) {
		return nil, fmt.Errorf("%w: TOC entry size %d", ErrBadEntrySize, tocStride)
	}
	if tocCount > uint64(len(data))/tocStride {
		return nil, fmt.Errorf("%w: %d TOC entries exceed sidecar", ErrTruncated, tocCount)
	}

	type tocEntry struct {
		size      uint64
		fileIndex uint64
	}
	tocEntries := make([]tocEntry, 0, tocCount)
	for i := uint64(0); i < tocCount; i++ {
		entryStart := d.pos
		var entry tocEntry
		if entry.size, err = d.readU64("TOC size"); err != nil {
			return nil, err
		}
		if entry.fileIndex, err = d.readU64("TOC fileIndex"); err != nil {
			return nil, err
		}
		entryEnd := entryStart + int(tocStride)
		if entryEnd > len(data) {
			return nil, fmt.Errorf("%w: reading TOC entry %d", ErrTruncated, i)
		}
		d.pos = entryEnd
		tocEntries = append(tocEntries, entry)
	}

	tag, err = d.readU64("FILES tag")
	if err != nil {
		return nil, err
	}
	if tag != tagFiles {
		return nil, fmt.Errorf("%w: FILES", ErrBadSectionTag)
	}
	fileCount, err := d.readU64("file count")
	if err != nil {
		return nil, err
	}
	fileStride, err := d.readU64("file entry size")
	if err != nil {
		return nil, err
	}
	if fileStride < fileEntryBytes || fileStride > uint64(len(data)) {
		return nil, fmt.Errorf("%w: file entry size %d", ErrBadEntrySize, fileStride)
	}
	if fileCount > uint64(len(data))/fileStride {
		return nil, fmt.Errorf("%w: %d file entries exceed sidecar", ErrTruncated, fileCount)
	}

	type rawFileEntry struct {
		nameOffset uint64
		hash       sha3.Hash128
		inode      uint64
		mtime      uint64
		numLinks   uint64
	}
	rawEntries := make([]rawFileEntry, 0, fileCount)
	for i := uint64(0); i < fileCount; i++ {
		entryStart := d.pos
		var entry rawFileEntry
		if entry.nameOffset, err = d.readU64("nameOffset"); err != nil {
			return nil, err
		}
		if entry.hash.Lo, err = d.readU64("hashLo"); err != nil {
			return nil, err
		}
		if entry.hash.Hi, err = d.readU64("hashHi"); err != nil {
			return nil, err
		}
		if entry.inode, err = d.readU64("inode"); err != nil {
			return nil, err
		}
		if entry.mtime, err = d.readU64("mtime"); err != nil {
			return nil, err
		}
		if entry.numLinks, err = d.readU64("numLinks"); err != nil {
			return nil, err
		}
		entryEnd := entryStart + int(fileStride)
		if entryEnd > len(data) {
			return nil, fmt.Errorf("%w: reading file entry %d", ErrTruncated, i)
		}
		d.pos = entryEnd
		rawEntries = append(rawEntries, entry)
	}

	tag, err = d.readU64("STRINGS tag")
	if err != nil {
		return nil, err
	}
	if tag != tagStrings {
		return nil, fmt.Errorf("%w: STRINGS", ErrBadSectionTag)
	}
	stringsSize, err := d.readU64("strings size")
	if err != nil {
		return nil, err
	}
	if uint64(d.pos)+stringsSize > uint64(len(data)) {
		return nil, fmt.Errorf("%w: reading STRINGS blob", ErrTruncated)
	}
	strings := data[d.pos : uint64(d.pos)+stringsSize]

	// Reconstruct per-file sizes from TOC runs.
	if fileCount > 0 && len(tocEntries) == 0 {
		return nil, fmt.Errorf("%w: no TOC runs for %d files", ErrBadTocIndex, fileCount)
	}
	sizes := make([]uint64, fileCount)
	for i := range tocEntries {
		start := tocEntries[i].fileIndex
		end := fileCount
		if i+1 < len(tocEntries) {
			end = tocEntries[i+1].fileIndex
		}
		if start > end || end > fileCount {
			return nil, fmt.Errorf("%w: run %d spans [%d, %d) of %d files", ErrBadTocIndex, i, start, end, fileCount)
		}
		for j := start; j < end; j++ {
			sizes[j] = tocEntries[i].size
		}
	}

	files := make([]FileEntry, 0, fileCount)
	for i := range rawEntries {
		raw := &rawEntries[i]
		name, err := readLengthStringAt(strings, raw.nameOffset)
		if err != nil {
			return nil, err
		}
		files = append(files, FileEntry{
			Name:     name,
			Size:     sizes[i],
			Hash:     raw.hash,
			Inode:    raw.inode,
			Mtime:    raw.mtime,
			NumLinks: raw.numLinks,
		})
	}

	return files, nil
}
