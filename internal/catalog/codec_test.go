package catalog

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/desertwitch/treeop/internal/sha3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []FileEntry {
	files := []FileEntry{
		{Name: "abc.txt", Size: 3, Hash: sha3.Hash128{Lo: 1, Hi: 2}, Inode: 10, Mtime: 100, NumLinks: 1},
		{Name: "abd.txt", Size: 3, Hash: sha3.Hash128{Lo: 3, Hi: 4}, Inode: 11, Mtime: 101, NumLinks: 1},
		{Name: "hello.bin", Size: 5, Hash: sha3.Hash128{Lo: 5, Hi: 6}, Inode: 12, Mtime: 102, NumLinks: 2},
	}
	sortEntries(files)

	return files
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	files := sampleEntries()
	blob := Encode(files)

	decoded, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, files, decoded)
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()

	files := sampleEntries()
	blob := Encode(files)

	decoded, err := Decode(blob)
	require.NoError(t, err)

	// Re-serializing a decoded catalog is byte-identical.
	assert.Equal(t, blob, Encode(decoded))
}

func TestEncodeDecode_Empty(t *testing.T) {
	t.Parallel()

	blob := Encode(nil)

	decoded, err := Decode(blob)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecode_BadMagic(t *testing.T) {
	t.Parallel()

	blob := Encode(nil)
	blob[0] ^= 0xff

	_, err := Decode(blob)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecode_BadVersion(t *testing.T) {
	t.Parallel()

	blob := Encode(nil)
	binary.LittleEndian.PutUint64(blob[8:], 99)

	_, err := Decode(blob)
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestDecode_Truncated(t *testing.T) {
	t.Parallel()

	blob := Encode(sampleEntries())
	for _, cut := range []int{4, 20, 40, len(blob) - 1} {
		_, err := Decode(blob[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestDecode_BadTocStride(t *testing.T) {
	t.Parallel()

	blob := Encode(sampleEntries())
	// TOC entry size field sits after header and TOC tag/count.
	binary.LittleEndian.PutUint64(blob[4*8:], 8)

	_, err := Decode(blob)
	assert.ErrorIs(t, err, ErrBadEntrySize)
}

func TestDecode_MissingTocForFiles(t *testing.T) {
	t.Parallel()

	files := sampleEntries()
	blob := Encode(files)
	// Claim zero TOC entries while keeping the file entries; the TOC
	// bytes are then misparsed as section tags, or the run check fires.
	binary.LittleEndian.PutUint64(blob[3*8:], 0)

	_, err := Decode(blob)
	assert.Error(t, err)
}

func TestDecode_BadNameOffset(t *testing.T) {
	t.Parallel()

	files := []FileEntry{{Name: "a", Size: 1}}
	blob := Encode(files)

	// First file entry's nameOffset follows TOC (1 entry) and headers.
	nameOffsetPos := 5*8 + 16 + 3*8
	binary.LittleEndian.PutUint64(blob[nameOffsetPos:], 9999)

	_, err := Decode(blob)
	assert.ErrorIs(t, err, ErrBadStringOffset)
}

func TestDecode_ForwardCompatibleStrides(t *testing.T) {
	t.Parallel()

	// Hand-build a blob with widened strides; the extra bytes per entry
	// must be ignored.
	var blob []byte
	u64 := func(v uint64) { blob = binary.LittleEndian.AppendUint64(blob, v) }

	u64(makeTag("DirDB"))
	u64(Version)

	u64(makeTag("TOC"))
	u64(1)
	u64(24) // widened stride
	u64(3)  // size
	u64(0)  // fileIndex
	u64(0xdeadbeef)

	u64(makeTag("FILES"))
	u64(1)
	u64(56) // widened stride
	u64(0)  // nameOffset
	u64(7)  // hashLo
	u64(8)  // hashHi
	u64(42) // inode
	u64(9)  // mtime
	u64(1)  // numLinks
	u64(0xdeadbeef)

	u64(makeTag("STRINGS"))
	u64(2)
	blob = append(blob, 1, 'x')

	decoded, err := Decode(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, FileEntry{
		Name: "x", Size: 3, Hash: sha3.Hash128{Lo: 7, Hi: 8},
		Inode: 42, Mtime: 9, NumLinks: 1,
	}, decoded[0])
}

func TestLengthStrings_AllPrefixForms(t *testing.T) {
	t.Parallel()

	for _, length := range []int{0, 1, 0xfc, 0xfd, 0xffff, 0x10000} {
		s := strings.Repeat("n", length)
		blob := appendLengthString(nil, s)

		got, err := readLengthStringAt(blob, 0)
		require.NoError(t, err, "length %d", length)
		assert.Equal(t, s, got, "length %d", length)
	}
}

func TestSortEntries_SizeThenName(t *testing.T) {
	t.Parallel()

	files := []FileEntry{
		{Name: "hello", Size: 5},
		{Name: "abd", Size: 3},
		{Name: "abc", Size: 3},
	}
	sortEntries(files)

	assert.Equal(t, "abc", files[0].Name)
	assert.Equal(t, "abd", files[1].Name)
	assert.Equal(t, "hello", files[2].Name)
}
