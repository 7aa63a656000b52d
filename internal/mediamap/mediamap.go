// Package mediamap maps canonical media paths to in-memory blobs for one
// ingestion session.
package mediamap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrReleased      = errors.New("media map released")
	ErrDuplicatePath = errors.New("media path already present")
	ErrNotFound      = errors.New("media not found")
)

// Ref is the addressable reference to one blob.
type Ref struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
	Address  string `json:"address"`
}

type blob struct {
	ref  Ref
	data []byte
}

// Map owns every blob until Release. Entries are only ever added; an
// existing path is never replaced.
type Map struct {
	session uuid.UUID

	mu       sync.RWMutex
	byPath   map[string]*blob
	byID     map[string]*blob
	released bool
}

// New returns an empty map with a fresh session identity.
func New() *Map {
	return &Map{
		session: uuid.New(),
		byPath:  make(map[string]*blob),
		byID:    make(map[string]*blob),
	}
}

func (m *Map) Session() string {
	return m.session.String()
}

// Add stores data under path and returns its reference.
func (m *Map) Add(path, mimeType string, data []byte) (Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return Ref{}, ErrReleased
	}
	if _, exists := m.byPath[path]; exists {
		return Ref{}, fmt.Errorf("add %q: %w", path, ErrDuplicatePath)
	}
	id := uuid.NewString()
	b := &blob{
		ref: Ref{
			ID:       id,
			Path:     path,
			MIMEType: mimeType,
			Size:     len(data),
			Address:  "blob:" + m.session.String() + "/" + id,
		},
		data: data,
	}
	m.byPath[path] = b
	m.byID[id] = b
	return b.ref, nil
}

// Lookup returns the reference stored for path.
func (m *Map) Lookup(path string) (Ref, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.released {
		return Ref{}, false
	}
	b, ok := m.byPath[path]
	if !ok {
		return Ref{}, false
	}
	return b.ref, true
}

// Has reports whether path resolves to a live blob.
func (m *Map) Has(path string) bool {
	_, ok := m.Lookup(path)
	return ok
}

// Bytes returns the blob stored for path. The slice is shared and must not
// be modified.
func (m *Map) Bytes(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.released {
		return nil, ErrReleased
	}
	b, ok := m.byPath[path]
	if !ok {
		return nil, fmt.Errorf("bytes %q: %w", path, ErrNotFound)
	}
	return b.data, nil
}

// ByID resolves a reference id to its blob.
func (m *Map) ByID(id string) (Ref, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.released {
		return Ref{}, nil, ErrReleased
	}
	b, ok := m.byID[id]
	if !ok {
		return Ref{}, nil, fmt.Errorf("blob %q: %w", id, ErrNotFound)
	}
	return b.ref, b.data, nil
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPath)
}

// Paths returns every stored path in sorted order.
func (m *Map) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byPath))
	for p := range m.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Release drops every blob at once and returns how many were held. The map
// is unusable afterwards; a later Release is a no-op.
func (m *Map) Release() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return 0
	}
	count := len(m.byPath)
	for _, b := range m.byPath {
		b.data = nil
	}
	m.byPath = nil
	m.byID = nil
	m.released = true
	return count
}

func (m *Map) Released() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.released
}
