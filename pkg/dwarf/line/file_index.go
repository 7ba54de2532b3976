package line

import (
	"sort"

	"github.com/derekparker/trie"
)

// FileRef is a file of a line number program together with the value of
// the file register that selects it.
type FileRef struct {
	Path  string
	Index uint64
}

// FileIndex finds the files of a line number program by path prefix.
type FileIndex struct {
	t *trie.Trie
}

// NewFileIndex indexes the files of hdr and the files in defined, which
// were added by DW_LINE_define_file. Paths are joined with their include
// directory, files without a path are not indexed.
func NewFileIndex(hdr *Header, defined []FileEntry) *FileIndex {
	fi := &FileIndex{t: trie.New()}
	idx := hdr.FirstFileIndex()
	for _, files := range [][]FileEntry{hdr.FileNames, defined} {
		for i := range files {
			if p := hdr.FilePath(&files[i]); p != "" {
				fi.add(p, idx)
			}
			idx++
		}
	}
	return fi
}

func (fi *FileIndex) add(path string, idx uint64) {
	if n, ok := fi.t.Find(path); ok {
		idxs := n.Meta().(*[]uint64)
		*idxs = append(*idxs, idx)
		return
	}
	fi.t.Add(path, &[]uint64{idx})
}

// Lookup returns all the files whose path starts with prefix, sorted by
// path and index.
func (fi *FileIndex) Lookup(prefix string) []FileRef {
	var r []FileRef
	for _, p := range fi.t.PrefixSearch(prefix) {
		n, ok := fi.t.Find(p)
		if !ok {
			continue
		}
		for _, idx := range *n.Meta().(*[]uint64) {
			r = append(r, FileRef{Path: p, Index: idx})
		}
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].Path != r[j].Path {
			return r[i].Path < r[j].Path
		}
		return r[i].Index < r[j].Index
	})
	return r
}
