// Package session turns raw pointer input into committed layer bounds.
// Each interaction is a small state machine: idle, dragging or resizing.
// While the pointer moves, candidate bounds are published as a local,
// unreplicated preview so the screen tracks the cursor every frame; the
// document store is written exactly once, on pointer-up. Replicating
// every intermediate frame would spam the network, show half-finished
// states on other clients, and widen the window for two peers' edits to
// the same layer to interleave badly.
package session

import (
	"time"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/geom"
)

// Phase is the controller's current state.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Resizing
)

// previewInterval caps preview fan-out at roughly 60 updates a second.
// The final sample is never dropped: End commits whatever the last move
// computed.
const previewInterval = time.Second / 60

// Controller runs one pointer interaction at a time. A pointer-down
// while a session is active is ignored until the session returns to
// Idle. It is meant to live on the host environment's event loop and is
// not safe for concurrent use from multiple goroutines.
type Controller struct {
	store *doc.Store

	// lockAspect is re-read on every pointer move, so toggling the
	// modifier mid-drag switches the resize math immediately.
	lockAspect func() bool
	onPreview  func(layerID string, bottomLeft, topRight geom.Point)

	phase   Phase
	layerID string
	handle  int
	ratio   geom.Fraction

	// Session-start reference frame. Bounds are recomputed from these
	// plus the current pointer alone, so no rounding error accumulates
	// across samples and the pivot never drifts.
	startBL, startTR geom.Point
	startPointer     geom.Point
	pivot            geom.Point

	curBL, curTR geom.Point
	moved        bool
	lastPreview  time.Time
}

// NewController wires a controller to the store it commits into.
func NewController(store *doc.Store) *Controller {
	return &Controller{
		store:      store,
		lockAspect: func() bool { return false },
	}
}

// SetAspectLockFunc installs the live modifier-key probe.
func (c *Controller) SetAspectLockFunc(fn func() bool) {
	if fn != nil {
		c.lockAspect = fn
	}
}

// SetOnPreview installs the preview sink, typically the render layer's
// in-memory override for the active layer's bounds.
func (c *Controller) SetOnPreview(fn func(layerID string, bottomLeft, topRight geom.Point)) {
	c.onPreview = fn
}

// Phase returns the current state.
func (c *Controller) Phase() Phase {
	return c.phase
}

// ActiveLayer returns the layer under interaction, or "".
func (c *Controller) ActiveLayer() string {
	if c.phase == Idle {
		return ""
	}
	return c.layerID
}

// PreviewBounds returns the candidate bounds of the in-flight session.
func (c *Controller) PreviewBounds() (bottomLeft, topRight geom.Point, ok bool) {
	if c.phase == Idle || !c.moved {
		return geom.Point{}, geom.Point{}, false
	}
	return c.curBL, c.curTR, true
}

// Begin starts a session from a pointer-down. layers are the canvas's
// layers in stacking order, bottom to top; selectedID is the layer
// whose handles are visible. A handle hit on the selected layer starts
// a resize; otherwise the topmost layer under the point starts a drag.
// Returns the layer id the session latched onto, or "" when the press
// hit nothing (or a session is already active).
func (c *Controller) Begin(layers []doc.Layer, selectedID string, p geom.Point, tolerance float64) string {
	if c.phase != Idle {
		return ""
	}

	// Handle hit-testing outranks body hit-testing.
	if selectedID != "" {
		for _, l := range layers {
			if l.ID != selectedID {
				continue
			}
			if h, ok := geom.HandleAt(l.BottomLeft, l.TopRight, p, tolerance); ok {
				c.phase = Resizing
				c.layerID = l.ID
				c.handle = h
				c.startBL, c.startTR = l.BottomLeft, l.TopRight
				c.pivot = geom.Corner(l.BottomLeft, l.TopRight, geom.OppositeHandle(h))
				c.ratio = l.AspectRatio()
				c.startPointer = p
				c.curBL, c.curTR = l.BottomLeft, l.TopRight
				c.moved = false
				return l.ID
			}
			break
		}
	}

	// Topmost layer wins: test in reverse stacking order.
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if geom.Contains(l.BottomLeft, l.TopRight, p) {
			c.phase = Dragging
			c.layerID = l.ID
			c.startBL, c.startTR = l.BottomLeft, l.TopRight
			c.startPointer = p
			c.curBL, c.curTR = l.BottomLeft, l.TopRight
			c.moved = false
			return l.ID
		}
	}
	return ""
}

// Update recomputes candidate bounds from a pointer-move sample and
// publishes them as a preview, throttled to previewInterval.
func (c *Controller) Update(p geom.Point) {
	switch c.phase {
	case Dragging:
		dx := p.X - c.startPointer.X
		dy := p.Y - c.startPointer.Y
		c.curBL = c.startBL.Translate(dx, dy)
		c.curTR = c.startTR.Translate(dx, dy)
	case Resizing:
		c.curBL, c.curTR = geom.ResizedBounds(p, c.pivot, c.handle, c.lockAspect(), c.ratio)
	default:
		return
	}
	c.moved = true

	if c.onPreview != nil {
		now := time.Now()
		if now.Sub(c.lastPreview) >= previewInterval {
			c.lastPreview = now
			c.onPreview(c.layerID, c.curBL, c.curTR)
		}
	}
}

// End finishes the session on pointer-up. The bounds from the last move
// sample are committed to the store exactly once; a click with no prior
// move commits nothing. Reports whether a commit happened.
func (c *Controller) End() bool {
	if c.phase == Idle {
		return false
	}
	committed := false
	if c.moved {
		bl, tr := c.curBL, c.curTR
		c.store.UpdateLayer(c.layerID, doc.LayerPatch{BottomLeft: &bl, TopRight: &tr})
		committed = true
	}
	c.reset()
	return committed
}

// Cancel aborts the session without a store write, e.g. on focus loss.
// The preview is rolled back to the session-start bounds so the screen
// shows the last committed state again.
func (c *Controller) Cancel() {
	if c.phase == Idle {
		return
	}
	if c.moved && c.onPreview != nil {
		c.onPreview(c.layerID, c.startBL, c.startTR)
	}
	c.reset()
}

func (c *Controller) reset() {
	c.phase = Idle
	c.layerID = ""
	c.moved = false
	c.ratio = geom.Fraction{}
}
