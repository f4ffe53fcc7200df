package aggregate

import (
	"fmt"
	"io"
	"strconv"

	"github.com/desertwitch/treeop/internal/format"
)

// ListFiles writes one aligned row per cataloged file: size, hash
// prefix (truncated to the unique length), optionally inode and link
// count, mtime and path.
func (db *DB) ListFiles(w io.Writer, showInodeLinks bool) {
	renderListRows(w, db.AllRefs(), showInodeLinks, db.UniqueHashHexLen())
}

// renderListRows aligns and prints file rows with a common column
// layout, sized to the widest value per column.
func renderListRows(w io.Writer, refs []FileRef, showInodeLinks bool, hashLen int) {
	type row struct {
		size     string
		hash     string
		inode    string
		date     string
		numLinks string
		path     string
	}

	rows := make([]row, 0, len(refs))
	var widthSize, widthHash, widthInode, widthDate, widthLinks int

	for _, ref := range refs {
		hex := ref.Hash.Hex()
		r := row{
			size:     strconv.FormatUint(ref.Size, 10),
			hash:     hex[:min(hashLen, len(hex))],
			inode:    strconv.FormatUint(ref.Inode, 10),
			date:     format.FormatFiletime(ref.Mtime),
			numLinks: strconv.FormatUint(ref.NumLinks, 10),
			path:     ref.Path,
		}

		widthSize = max(widthSize, len(r.size))
		widthHash = max(widthHash, len(r.hash))
		widthDate = max(widthDate, len(r.date))
		if showInodeLinks {
			widthInode = max(widthInode, len(r.inode))
			widthLinks = max(widthLinks, len(r.numLinks))
		}

		rows = append(rows, r)
	}

	for _, r := range rows {
		fmt.Fprintf(w, "%s %s ", format.PadLeft(r.size, widthSize), format.PadLeft(r.hash, widthHash))
		if showInodeLinks {
			fmt.Fprintf(w, "%s ", format.PadLeft(r.inode, widthInode))
		}
		fmt.Fprintf(w, "%s ", format.PadLeft(r.date, widthDate))
		if showInodeLinks {
			fmt.Fprintf(w, "%s ", format.PadLeft(r.numLinks, widthLinks))
		}
		fmt.Fprintln(w, r.path)
	}
}
