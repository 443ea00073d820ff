package capture

import (
	"fmt"
	"sync"

	bderrors "github.com/a3tai/mcp-biodata/internal/biodata/errors"
	"github.com/a3tai/mcp-biodata/internal/biodata/layout"
)

// Stage holds the documents currently mounted for display, keyed by ID.
// The capture engine resolves its handle here.
type Stage struct {
	mu    sync.Mutex
	nodes map[string]*mountedNode
}

type mountedNode struct {
	doc     *layout.Document
	visible bool
}

// NewStage creates an empty stage
func NewStage() *Stage {
	return &Stage{nodes: make(map[string]*mountedNode)}
}

// Mount shows a copy of doc under doc.ID, replacing any previous document
func (s *Stage) Mount(doc *layout.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[doc.ID] = &mountedNode{doc: doc.Clone(), visible: true}
}

// Unmount removes the document with the given ID
func (s *Stage) Unmount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// SetVisible shows or hides a mounted document
func (s *Stage) SetVisible(id string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return notFound(id)
	}
	n.visible = visible
	return nil
}

// Lookup returns a copy of the mounted document and whether it is visible
func (s *Stage) Lookup(id string) (*layout.Document, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false, false
	}
	return n.doc.Clone(), n.visible, true
}

// Acquire applies style to the mounted document and returns a Lease holding
// an off-screen copy taken with the style applied. The previous style is
// restored by Lease.Release.
func (s *Stage) Acquire(id string, style layout.Style) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, notFound(id)
	}

	lease := &Lease{
		stage:    s,
		id:       id,
		target:   n.doc,
		previous: n.doc.Style,
		visible:  n.visible,
	}
	n.doc.Style = style
	lease.snapshot = n.doc.Clone()
	return lease, nil
}

// Lease is a scoped style override on a mounted document
type Lease struct {
	stage    *Stage
	id       string
	target   *layout.Document
	previous layout.Style
	snapshot *layout.Document
	visible  bool
	once     sync.Once
}

// Document is the off-screen copy to rasterize
func (l *Lease) Document() *layout.Document {
	return l.snapshot
}

// Visible reports whether the document was visible when the lease was taken
func (l *Lease) Visible() bool {
	return l.visible
}

// Release restores the previous style. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.stage.mu.Lock()
		defer l.stage.mu.Unlock()
		// a document remounted in the meantime keeps its own style
		if n, ok := l.stage.nodes[l.id]; ok && n.doc == l.target {
			n.doc.Style = l.previous
		}
	})
}

func notFound(id string) error {
	return bderrors.NewWithCode(bderrors.KindCapture, bderrors.CodeElementNotFound,
		fmt.Sprintf("element %q not found", id))
}
