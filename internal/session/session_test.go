package session

import (
	"math"
	"testing"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/geom"
)

func setup(t *testing.T) (*doc.Store, *Controller, string, string) {
	t.Helper()
	s := doc.New()
	c, err := s.CreateCanvas(800, 600, doc.Background{Color: "#ffffff"})
	if err != nil {
		t.Fatalf("CreateCanvas: %v", err)
	}
	// A 200x100 layer with its top-left at (0, 0).
	id, ok := s.AddLayer(c, doc.Layer{
		BottomLeft:     geom.Point{X: 0, Y: 100},
		TopRight:       geom.Point{X: 200, Y: 0},
		OriginalWidth:  200,
		OriginalHeight: 100,
	})
	if !ok {
		t.Fatal("AddLayer failed")
	}
	return s, NewController(s), c, id
}

func layers(t *testing.T, s *doc.Store, c string) []doc.Layer {
	t.Helper()
	out := make([]doc.Layer, 0)
	for _, id := range s.LayerIDs(c) {
		l, ok := s.Layer(id)
		if !ok {
			t.Fatalf("layer %s missing", id)
		}
		out = append(out, l)
	}
	return out
}

func TestDragCommitsOnceOnPointerUp(t *testing.T) {
	s, ctl, c, id := setup(t)

	writes := 0
	s.Observe(func() { writes++ })

	got := ctl.Begin(layers(t, s, c), "", geom.Point{X: 50, Y: 50}, 10)
	if got != id {
		t.Fatalf("Begin latched onto %q, want %q", got, id)
	}
	if ctl.Phase() != Dragging {
		t.Fatalf("phase = %v, want Dragging", ctl.Phase())
	}

	// Many intermediate samples: none may hit the store.
	for i := 1; i <= 20; i++ {
		ctl.Update(geom.Point{X: 50 + float64(i), Y: 50 + float64(i)})
	}
	if writes != 0 {
		t.Fatalf("previews reached the store: %d writes", writes)
	}

	if !ctl.End() {
		t.Fatal("End did not commit")
	}
	l, _ := s.Layer(id)
	if l.BottomLeft != (geom.Point{X: 20, Y: 120}) || l.TopRight != (geom.Point{X: 220, Y: 20}) {
		t.Fatalf("committed bounds wrong: %+v", l)
	}
	if ctl.Phase() != Idle {
		t.Fatal("controller did not return to Idle")
	}
}

func TestClickWithoutMoveCommitsNothing(t *testing.T) {
	s, ctl, c, id := setup(t)

	ctl.Begin(layers(t, s, c), "", geom.Point{X: 50, Y: 50}, 10)
	if ctl.End() {
		t.Fatal("plain click produced a commit")
	}
	l, _ := s.Layer(id)
	if l.BottomLeft != (geom.Point{X: 0, Y: 100}) {
		t.Fatalf("click moved the layer: %+v", l)
	}
}

func TestTopmostLayerWins(t *testing.T) {
	s, ctl, c, bottom := setup(t)
	top, _ := s.AddLayer(c, doc.Layer{
		BottomLeft:     geom.Point{X: 40, Y: 90},
		TopRight:       geom.Point{X: 160, Y: 10},
		OriginalWidth:  120,
		OriginalHeight: 80,
	})

	// The point is inside both layers; the later sequence entry is on
	// top and must win.
	got := ctl.Begin(layers(t, s, c), "", geom.Point{X: 100, Y: 50}, 10)
	if got != top {
		t.Fatalf("Begin latched onto %q, want topmost %q", got, top)
	}
	ctl.Cancel()

	// A point only the bottom layer covers.
	got = ctl.Begin(layers(t, s, c), "", geom.Point{X: 10, Y: 50}, 10)
	if got != bottom {
		t.Fatalf("Begin latched onto %q, want %q", got, bottom)
	}
}

func TestHandleHitOutranksBody(t *testing.T) {
	s, ctl, c, id := setup(t)

	// Top-right corner of the selected layer, inside handle tolerance
	// and inside the body of the layer itself.
	got := ctl.Begin(layers(t, s, c), id, geom.Point{X: 197, Y: 3}, 12)
	if got != id || ctl.Phase() != Resizing {
		t.Fatalf("expected resize on %q, got %q in phase %v", id, got, ctl.Phase())
	}
}

// The end-to-end resize scenario: 200x100 layer, top-right handle,
// aspect lock held, dragged to a point implying width 400. The
// committed height must be 200, since the original ratio is 2.
func TestAspectLockedResizeScenario(t *testing.T) {
	s, ctl, c, id := setup(t)

	lock := true
	ctl.SetAspectLockFunc(func() bool { return lock })

	got := ctl.Begin(layers(t, s, c), id, geom.Point{X: 200, Y: 0}, 12)
	if got != id || ctl.Phase() != Resizing {
		t.Fatalf("did not start resizing: %q phase %v", got, ctl.Phase())
	}

	ctl.Update(geom.Point{X: 400, Y: -300})
	if !ctl.End() {
		t.Fatal("End did not commit")
	}

	l, _ := s.Layer(id)
	box := l.Bounds()
	if math.Abs(box.Width-400) > 1e-9 || math.Abs(box.Height-200) > 1e-9 {
		t.Fatalf("committed %vx%v, want 400x200", box.Width, box.Height)
	}
	// Pivot was the bottom-left corner at session start.
	if l.BottomLeft != (geom.Point{X: 0, Y: 100}) {
		t.Fatalf("pivot drifted: %+v", l.BottomLeft)
	}
}

// Toggling the modifier mid-drag switches the math immediately, and the
// result depends only on the session-start frame plus the latest
// pointer sample.
func TestAspectLockResampledPerMove(t *testing.T) {
	s, ctl, c, id := setup(t)

	lock := false
	ctl.SetAspectLockFunc(func() bool { return lock })

	ctl.Begin(layers(t, s, c), id, geom.Point{X: 200, Y: 0}, 12)

	ctl.Update(geom.Point{X: 300, Y: -40})
	bl, tr, _ := ctl.PreviewBounds()
	free := geom.BoundingBox(bl, tr)
	if free.Width != 300 || free.Height != 140 {
		t.Fatalf("unlocked preview %vx%v, want 300x140", free.Width, free.Height)
	}

	lock = true
	ctl.Update(geom.Point{X: 300, Y: -40})
	bl, tr, _ = ctl.PreviewBounds()
	locked := geom.BoundingBox(bl, tr)
	if math.Abs(locked.Width-2*locked.Height) > 1e-9 {
		t.Fatalf("locked preview %vx%v breaks the 2:1 ratio", locked.Width, locked.Height)
	}
	ctl.Cancel()
}

func TestSessionsAreNotReentrant(t *testing.T) {
	s, ctl, c, id := setup(t)

	first := ctl.Begin(layers(t, s, c), "", geom.Point{X: 50, Y: 50}, 10)
	if first != id {
		t.Fatal("first Begin failed")
	}
	if again := ctl.Begin(layers(t, s, c), "", geom.Point{X: 60, Y: 60}, 10); again != "" {
		t.Fatalf("nested Begin latched onto %q", again)
	}
	if ctl.Phase() != Dragging {
		t.Fatal("nested Begin disturbed the active session")
	}
}

func TestCancelRestoresPreviewAndSkipsCommit(t *testing.T) {
	s, ctl, c, id := setup(t)

	var lastBL, lastTR geom.Point
	previews := 0
	ctl.SetOnPreview(func(_ string, bl, tr geom.Point) {
		lastBL, lastTR = bl, tr
		previews++
	})

	ctl.Begin(layers(t, s, c), "", geom.Point{X: 50, Y: 50}, 10)
	ctl.Update(geom.Point{X: 150, Y: 150})
	ctl.Cancel()

	if previews == 0 {
		t.Fatal("no previews published")
	}
	if lastBL != (geom.Point{X: 0, Y: 100}) || lastTR != (geom.Point{X: 200, Y: 0}) {
		t.Fatalf("cancel did not restore start bounds: %v %v", lastBL, lastTR)
	}
	l, _ := s.Layer(id)
	if l.BottomLeft != (geom.Point{X: 0, Y: 100}) {
		t.Fatalf("cancel wrote to the store: %+v", l)
	}
	if ctl.End() {
		t.Fatal("End after Cancel committed")
	}
}

// A peer deletes the layer's canvas mid-drag: our commit lands on a
// dead id and must be a silent no-op.
func TestCommitAfterConcurrentDelete(t *testing.T) {
	s, ctl, c, id := setup(t)

	ctl.Begin(layers(t, s, c), "", geom.Point{X: 50, Y: 50}, 10)
	ctl.Update(geom.Point{X: 90, Y: 90})

	s.DeleteCanvas(c) // the "remote" delete merges in mid-drag

	ctl.End()
	if _, ok := s.Layer(id); ok {
		t.Fatal("commit resurrected a deleted layer")
	}
}
