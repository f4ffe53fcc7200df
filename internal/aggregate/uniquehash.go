package aggregate

import (
	"sort"

	"github.com/desertwitch/treeop/internal/sha3"
)

// MinUniqueHashBits returns the length in bits of the shortest hash
// prefix that still separates every distinct fingerprint in the DB:
// the maximum common leading-bit count between adjacent distinct
// sorted hashes, plus one, capped at 128. Fewer than two distinct
// hashes yield 0.
func (db *DB) MinUniqueHashBits() int {
	var hashes []sha3.Hash128
	for _, dir := range db.Dirs {
		for i := range dir.Files {
			hashes = append(hashes, dir.Files[i].Hash)
		}
	}

	return minUniqueHashBits(hashes)
}

func minUniqueHashBits(hashes []sha3.Hash128) int {
	if len(hashes) <= 1 {
		return 0
	}

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Compare(hashes[j]) < 0
	})

	// Deduplicate in place; identical hashes share all 128 bits and
	// must not count towards the prefix length.
	distinct := hashes[:1]
	for _, h := range hashes[1:] {
		if h != distinct[len(distinct)-1] {
			distinct = append(distinct, h)
		}
	}
	if len(distinct) <= 1 {
		return 0
	}

	// After sorting, the longest common prefix between any two distinct
	// hashes occurs between neighbors.
	maxCommon := 0
	for i := 1; i < len(distinct); i++ {
		maxCommon = max(maxCommon, sha3.CommonLeadingBits(distinct[i-1], distinct[i]))
	}

	return min(128, maxCommon+1)
}

// UniqueHashHexLen converts MinUniqueHashBits into a hex-digit count,
// clamped to [4, 32], for truncated hash columns in listings.
func (db *DB) UniqueHashHexLen() int {
	nibbles := (db.MinUniqueHashBits() + 3) / 4

	return min(32, max(4, nibbles))
}
