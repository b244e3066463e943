package engine

import "sync"

// DirectoryIndex maps local directory paths to their remote container
// ids for the duration of one run. Folder creation is the only writer
// and runs on the executor's synchronous path, so a path is always
// present before any work item naming it as a parent is dispatched.
// Readers are concurrent file workers.
type DirectoryIndex struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewDirectoryIndex returns an empty index.
func NewDirectoryIndex() *DirectoryIndex {
	return &DirectoryIndex{ids: make(map[string]string)}
}

// Set records the remote container id for a local path. Each path is
// written exactly once per run.
func (d *DirectoryIndex) Set(path, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[path] = id
}

// Get returns the remote container id for a local path.
func (d *DirectoryIndex) Get(path string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[path]
	return id, ok
}

// Len reports the number of mapped paths.
func (d *DirectoryIndex) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.ids)
}
