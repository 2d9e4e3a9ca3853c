// Package view derives the denormalized document consumed by rendering
// and UI code: every canvas with its layers resolved, ordered and
// hydrated. The derivation is pure; the model only caches the last
// result and recomputes it whenever the store reports a merge.
package view

import (
	"sync"

	"SharedCanvas/internal/doc"
)

// CanvasView is one canvas with its hydrated layers in stacking order,
// bottom to top.
type CanvasView struct {
	Canvas doc.Canvas
	Layers []doc.Layer
}

// Derive builds the full view from the store's current snapshot. Ids in
// a sequence that have no layer record yet (a transient state while a
// concurrent create or delete merges) are skipped silently. Deriving
// twice from the same snapshot yields structurally identical output.
func Derive(s *doc.Store) []CanvasView {
	canvases := s.Canvases()
	out := make([]CanvasView, 0, len(canvases))
	for _, c := range canvases {
		ids := s.LayerIDs(c.ID)
		layers := make([]doc.Layer, 0, len(ids))
		for _, id := range ids {
			if l, ok := s.Layer(id); ok {
				layers = append(layers, l)
			}
		}
		out = append(out, CanvasView{Canvas: c, Layers: layers})
	}
	return out
}

// Model keeps the latest derived view and notifies one listener on
// every change.
type Model struct {
	mu       sync.RWMutex
	store    *doc.Store
	canvases []CanvasView
	onChange func()
}

// NewModel derives the initial view and re-derives on every store
// notification.
func NewModel(s *doc.Store) *Model {
	m := &Model{store: s}
	m.canvases = Derive(s)
	s.Observe(m.rebuild)
	return m
}

// SetOnChange registers the listener fired after each re-derivation.
func (m *Model) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Canvases returns the last derived view.
func (m *Model) Canvases() []CanvasView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CanvasView, len(m.canvases))
	copy(out, m.canvases)
	return out
}

// Canvas returns one canvas's view by id.
func (m *Model) Canvas(canvasID string) (CanvasView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cv := range m.canvases {
		if cv.Canvas.ID == canvasID {
			return cv, true
		}
	}
	return CanvasView{}, false
}

func (m *Model) rebuild() {
	next := Derive(m.store)
	m.mu.Lock()
	m.canvases = next
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}
