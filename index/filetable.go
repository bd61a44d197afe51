package index

import "github.com/kev0960/crep/plumbing"

// FileTable maintains the path <-> FileID assignment described by spec §3:
// dense, non-negative IDs assigned the first time a path is seen, and kept
// stable across delete+re-add of the same path.
type FileTable struct {
	idByPath map[string]plumbing.FileID
	pathByID []string
}

// NewFileTable returns an empty table.
func NewFileTable() *FileTable {
	return &FileTable{idByPath: make(map[string]plumbing.FileID)}
}

// IDFor returns path's FileID, assigning a new one the first time path is
// seen.
func (t *FileTable) IDFor(path string) plumbing.FileID {
	if id, ok := t.idByPath[path]; ok {
		return id
	}
	id := plumbing.FileID(len(t.pathByID))
	t.idByPath[path] = id
	t.pathByID = append(t.pathByID, path)
	return id
}

// Lookup returns the FileID already assigned to path, if any.
func (t *FileTable) Lookup(path string) (plumbing.FileID, bool) {
	id, ok := t.idByPath[path]
	return id, ok
}

// Path returns the path assigned to id.
func (t *FileTable) Path(id plumbing.FileID) (string, bool) {
	if int(id) < 0 || int(id) >= len(t.pathByID) {
		return "", false
	}
	return t.pathByID[id], true
}

// Len returns the number of distinct paths ever seen.
func (t *FileTable) Len() int {
	return len(t.pathByID)
}
