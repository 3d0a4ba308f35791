// Package notebook holds the selection state shared by the chat and note services.
package notebook

import "sync"

// Context is the currently open notebook and the sources selected in it.
// It is safe for concurrent use.
type Context struct {
	mu         sync.RWMutex
	notebookID string
	selected   []string
}

func NewContext() *Context {
	return &Context{}
}

// Open switches to notebookID and clears the source selection.
func (c *Context) Open(notebookID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notebookID = notebookID
	c.selected = nil
}

func (c *Context) NotebookID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notebookID
}

// Select replaces the selected source ids. Duplicates and blanks are dropped.
func (c *Context) Select(fileIDs []string) {
	seen := make(map[string]struct{}, len(fileIDs))
	ids := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = ids
}

// SelectedSources returns a copy of the selected source ids.
func (c *Context) SelectedSources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.selected...)
}
