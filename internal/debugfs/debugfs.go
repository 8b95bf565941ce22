// Package debugfs is an in-process tree of read-only status files. Each
// file renders itself on read through a ShowFunc.
package debugfs

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	scmd "github.com/ehrlich-b/go-scmd"
)

// ShowFunc writes a file's current contents.
type ShowFunc func(w io.Writer) error

// Dir is a directory node. It is safe for concurrent use.
type Dir struct {
	name   string
	parent *Dir

	mu    sync.RWMutex
	dirs  map[string]*Dir
	files map[string]ShowFunc
}

// NewRoot returns an empty root directory.
func NewRoot() *Dir {
	return newDir("", nil)
}

func newDir(name string, parent *Dir) *Dir {
	return &Dir{
		name:   name,
		parent: parent,
		dirs:   make(map[string]*Dir),
		files:  make(map[string]ShowFunc),
	}
}

// Name returns the directory's own name, empty for the root.
func (d *Dir) Name() string { return d.name }

// Path returns the directory's path from the root.
func (d *Dir) Path() string {
	if d.parent == nil {
		return ""
	}
	if p := d.parent.Path(); p != "" {
		return p + "/" + d.name
	}
	return d.name
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return scmd.NewError("DEBUGFS", scmd.ErrCodeInvalidParameters, fmt.Sprintf("invalid name %q", name))
	}
	return nil
}

// Mkdir creates a subdirectory.
func (d *Dir) Mkdir(name string) (*Dir, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exists(name) {
		return nil, scmd.NewError("MKDIR", scmd.ErrCodeExists, d.join(name))
	}
	sub := newDir(name, d)
	d.dirs[name] = sub
	return sub, nil
}

// Create adds a file rendered by fn.
func (d *Dir) Create(name string, fn ShowFunc) error {
	if err := validName(name); err != nil {
		return err
	}
	if fn == nil {
		return scmd.NewError("CREATE", scmd.ErrCodeInvalidParameters, "nil show function")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.exists(name) {
		return scmd.NewError("CREATE", scmd.ErrCodeExists, d.join(name))
	}
	d.files[name] = fn
	return nil
}

// Remove deletes a file or a whole subdirectory.
func (d *Dir) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; ok {
		delete(d.files, name)
		return nil
	}
	if _, ok := d.dirs[name]; ok {
		delete(d.dirs, name)
		return nil
	}
	return scmd.NewError("REMOVE", scmd.ErrCodeNotFound, d.join(name))
}

// exists must be called with mu held.
func (d *Dir) exists(name string) bool {
	_, isFile := d.files[name]
	_, isDir := d.dirs[name]
	return isFile || isDir
}

func (d *Dir) join(name string) string {
	if p := d.Path(); p != "" {
		return p + "/" + name
	}
	return name
}

// List returns the names of the directory's entries in order.
// Subdirectories end in "/".
func (d *Dir) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.dirs)+len(d.files))
	for name := range d.dirs {
		names = append(names, name+"/")
	}
	for name := range d.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves a slash-separated directory path.
func (d *Dir) Lookup(path string) (*Dir, error) {
	cur := d
	for _, part := range splitPath(path) {
		cur.mu.RLock()
		next, ok := cur.dirs[part]
		cur.mu.RUnlock()
		if !ok {
			return nil, scmd.NewError("LOOKUP", scmd.ErrCodeNotFound, path)
		}
		cur = next
	}
	return cur, nil
}

// Read renders the file at path into w.
func (d *Dir) Read(path string, w io.Writer) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return scmd.NewError("READ", scmd.ErrCodeInvalidParameters, "empty path")
	}
	dir, err := d.Lookup(strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return scmd.NewError("READ", scmd.ErrCodeNotFound, path)
	}
	dir.mu.RLock()
	fn, ok := dir.files[parts[len(parts)-1]]
	dir.mu.RUnlock()
	if !ok {
		return scmd.NewError("READ", scmd.ErrCodeNotFound, path)
	}
	return fn(w)
}

// ReadString is Read into a string.
func (d *Dir) ReadString(path string) (string, error) {
	var sb strings.Builder
	err := d.Read(path, &sb)
	return sb.String(), err
}

// Walk calls fn with the path of every file under d in lexical order. A
// non-nil error from fn stops the walk and is returned.
func (d *Dir) Walk(fn func(path string) error) error {
	return d.walk("", fn)
}

func (d *Dir) walk(prefix string, fn func(path string) error) error {
	for _, name := range d.List() {
		if sub, ok := strings.CutSuffix(name, "/"); ok {
			d.mu.RLock()
			child := d.dirs[sub]
			d.mu.RUnlock()
			if child == nil {
				continue
			}
			if err := child.walk(prefix+sub+"/", fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(prefix + name); err != nil {
			return err
		}
	}
	return nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}
