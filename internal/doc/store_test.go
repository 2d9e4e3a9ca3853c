package doc

import (
	"math"
	"reflect"
	"testing"

	"SharedCanvas/internal/geom"
)

func newCanvas(t *testing.T, s *Store) string {
	t.Helper()
	id, err := s.CreateCanvas(800, 600, Background{Color: "#ffffff"})
	if err != nil {
		t.Fatalf("CreateCanvas: %v", err)
	}
	return id
}

func TestCreateCanvasValidation(t *testing.T) {
	s := New()
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 600},
		{"negative height", 800, -1},
		{"both zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateCanvas(tt.w, tt.h, Background{}); err != ErrInvalidSize {
				t.Errorf("CreateCanvas(%d, %d) err = %v, want ErrInvalidSize", tt.w, tt.h, err)
			}
		})
	}
	if len(s.Canvases()) != 0 {
		t.Fatal("rejected canvas was stored anyway")
	}
}

func TestAddLayerUnknownCanvas(t *testing.T) {
	s := New()
	if _, ok := s.AddLayer("no-such-canvas", Layer{}); ok {
		t.Fatal("AddLayer accepted an unknown canvas")
	}
}

func TestAddLayerDefaultsAndHydration(t *testing.T) {
	s := New()
	c := newCanvas(t, s)

	id, ok := s.AddLayer(c, Layer{
		Kind:           KindImage,
		OriginalWidth:  200,
		OriginalHeight: 100,
		Source:         "file:///tmp/cat.png",
		MediaType:      "image/png",
		Animated:       true,
	})
	if !ok {
		t.Fatal("AddLayer failed")
	}

	l, ok := s.Layer(id)
	if !ok {
		t.Fatal("layer not hydrated")
	}
	if l.Kind != KindImage || l.Source != "file:///tmp/cat.png" || !l.Animated {
		t.Errorf("image fields lost: %+v", l)
	}
	box := l.Bounds()
	if box.Width != 200 || box.Height != 100 {
		t.Errorf("default bounds %vx%v, want original size 200x100", box.Width, box.Height)
	}
	if got := l.AspectRatio(); got != geom.NewFraction(2, 1) {
		t.Errorf("AspectRatio() = %v, want 2/1", got)
	}
	if got := s.LayerIDs(c); !reflect.DeepEqual(got, []string{id}) {
		t.Errorf("sequence = %v, want [%s]", got, id)
	}
}

func TestAddLayerSeedsOrderFromLayerOrder(t *testing.T) {
	s := New()
	c := newCanvas(t, s)

	top, _ := s.AddLayer(c, Layer{LayerOrder: 20})
	bottom, _ := s.AddLayer(c, Layer{LayerOrder: 10})
	mid, _ := s.AddLayer(c, Layer{LayerOrder: 15})

	if got := s.LayerIDs(c); !reflect.DeepEqual(got, []string{bottom, mid, top}) {
		t.Fatalf("sequence = %v, want bottom,mid,top", got)
	}
}

func TestUpdateLayer(t *testing.T) {
	s := New()
	c := newCanvas(t, s)
	id, _ := s.AddLayer(c, Layer{})

	bl := geom.Point{X: 5, Y: 105}
	tr := geom.Point{X: 55, Y: 5}
	s.UpdateLayer(id, LayerPatch{BottomLeft: &bl, TopRight: &tr})

	l, _ := s.Layer(id)
	if l.BottomLeft != bl || l.TopRight != tr {
		t.Fatalf("corners not updated: %+v", l)
	}

	// Unknown id: silent no-op.
	s.UpdateLayer("ghost", LayerPatch{BottomLeft: &bl})

	// Non-finite corners are rejected outright.
	bad := geom.Point{X: math.NaN(), Y: 0}
	s.UpdateLayer(id, LayerPatch{BottomLeft: &bad})
	l, _ = s.Layer(id)
	if l.BottomLeft != bl {
		t.Fatal("non-finite corner was persisted")
	}

	// Degenerate rects are clamped to a minimum extent on commit.
	same := geom.Point{X: 10, Y: 10}
	s.UpdateLayer(id, LayerPatch{BottomLeft: &same, TopRight: &same})
	l, _ = s.Layer(id)
	if box := l.Bounds(); box.Width == 0 || box.Height == 0 {
		t.Fatalf("degenerate rect committed: %vx%v", box.Width, box.Height)
	}
}

func TestMoveLayerUpThenDownRestores(t *testing.T) {
	s := New()
	c := newCanvas(t, s)
	var ids []string
	for i := 0; i < 4; i++ {
		id, _ := s.AddLayer(c, Layer{})
		ids = append(ids, id)
	}

	before := s.LayerIDs(c)
	s.MoveLayer(c, ids[1], Up)
	s.MoveLayer(c, ids[1], Down)
	if got := s.LayerIDs(c); !reflect.DeepEqual(got, before) {
		t.Fatalf("up+down changed the sequence: %v -> %v", before, got)
	}

	// Boundary moves and unknown ids are no-ops.
	s.MoveLayer(c, ids[3], Up)
	s.MoveLayer(c, ids[0], Down)
	s.MoveLayer(c, "ghost", Up)
	s.MoveLayer("ghost", ids[0], Up)
	if got := s.LayerIDs(c); !reflect.DeepEqual(got, before) {
		t.Fatalf("boundary/unknown moves changed the sequence: %v", got)
	}
}

func TestRemoveLayer(t *testing.T) {
	s := New()
	c := newCanvas(t, s)
	a, _ := s.AddLayer(c, Layer{})
	b, _ := s.AddLayer(c, Layer{})

	s.RemoveLayer(c, a)
	if _, ok := s.Layer(a); ok {
		t.Fatal("removed layer still hydrates")
	}
	if got := s.LayerIDs(c); !reflect.DeepEqual(got, []string{b}) {
		t.Fatalf("sequence = %v, want [%s]", got, b)
	}

	// Wrong canvas or unknown ids: no-op.
	s.RemoveLayer("other", b)
	if _, ok := s.Layer(b); !ok {
		t.Fatal("RemoveLayer with wrong canvas deleted the layer")
	}
}

func TestDeleteCanvasCascades(t *testing.T) {
	s := New()
	c := newCanvas(t, s)
	id, _ := s.AddLayer(c, Layer{})

	s.DeleteCanvas(c)
	if _, ok := s.Canvas(c); ok {
		t.Fatal("canvas record survived delete")
	}
	if _, ok := s.Layer(id); ok {
		t.Fatal("layer record survived canvas delete")
	}
	if got := s.LayerIDs(c); len(got) != 0 {
		t.Fatalf("sequence survived canvas delete: %v", got)
	}

	s.DeleteCanvas("ghost") // no-op
}

func TestObserveFiresOnMutation(t *testing.T) {
	s := New()
	fired := 0
	s.Observe(func() { fired++ })
	newCanvas(t, s)
	if fired == 0 {
		t.Fatal("Observe callback never fired")
	}
}

// Two replicas each add a layer to the same canvas while disconnected,
// then exchange ops in either order: both must end with identical
// sequences containing both layers.
func TestConcurrentAddLayerConverges(t *testing.T) {
	a := New()
	c := newCanvas(t, a)

	b := New()
	b.Doc().Apply(a.Doc().Ops())

	la, _ := a.AddLayer(c, Layer{})
	lb, _ := b.AddLayer(c, Layer{})

	// Deliver in opposite orders on the two replicas.
	b.Doc().Apply(a.Doc().Ops())
	a.Doc().Apply(b.Doc().Ops())

	seqA := a.LayerIDs(c)
	seqB := b.LayerIDs(c)
	if !reflect.DeepEqual(seqA, seqB) {
		t.Fatalf("sequences diverged: a=%v b=%v", seqA, seqB)
	}
	found := map[string]bool{}
	for _, id := range seqA {
		found[id] = true
	}
	if !found[la] || !found[lb] || len(seqA) != 2 {
		t.Fatalf("layers lost or duplicated: %v", seqA)
	}
}

// A peer deletes the canvas while another replica is mid-drag on one of
// its layers: the eventual commit must be a no-op and the dead layer
// must not reappear.
func TestUpdateAfterConcurrentCanvasDelete(t *testing.T) {
	a := New()
	c := newCanvas(t, a)
	id, _ := a.AddLayer(c, Layer{})

	b := New()
	b.Doc().Apply(a.Doc().Ops())

	a.DeleteCanvas(c)
	b.Doc().Apply(a.Doc().Ops())

	// b's drag ends after the delete merged in.
	bl := geom.Point{X: 1, Y: 2}
	b.UpdateLayer(id, LayerPatch{BottomLeft: &bl})

	a.Doc().Apply(b.Doc().Ops())
	for _, s := range []*Store{a, b} {
		if _, ok := s.Layer(id); ok {
			t.Fatal("layer of a deleted canvas reappeared")
		}
		if len(s.Canvases()) != 0 {
			t.Fatal("deleted canvas reappeared")
		}
	}
}
