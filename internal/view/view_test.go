package view

import (
	"reflect"
	"testing"

	"SharedCanvas/internal/doc"
)

func TestDeriveIsIdempotent(t *testing.T) {
	s := doc.New()
	c, _ := s.CreateCanvas(800, 600, doc.Background{Color: "#ffffff"})
	s.AddLayer(c, doc.Layer{})
	s.AddLayer(c, doc.Layer{Kind: doc.KindImage, Source: "x.png"})

	first := Derive(s)
	second := Derive(s)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two derivations of the same snapshot differ")
	}
	if len(first) != 1 || len(first[0].Layers) != 2 {
		t.Fatalf("unexpected view shape: %+v", first)
	}
}

func TestDeriveSkipsDanglingIDs(t *testing.T) {
	s := doc.New()
	c, _ := s.CreateCanvas(800, 600, doc.Background{})
	id, _ := s.AddLayer(c, doc.Layer{})

	// Simulate the transient state where the sequence references a
	// layer whose record has merged away: tombstone the registry entry
	// directly, leaving the id in the sequence.
	s.Doc().DeleteKey("layers", id)

	views := Derive(s)
	if len(views) != 1 {
		t.Fatalf("want 1 canvas, got %d", len(views))
	}
	if len(views[0].Layers) != 0 {
		t.Fatalf("dangling id was hydrated: %+v", views[0].Layers)
	}
}

func TestModelTracksStore(t *testing.T) {
	s := doc.New()
	m := NewModel(s)

	changes := 0
	m.SetOnChange(func() { changes++ })

	c, _ := s.CreateCanvas(400, 300, doc.Background{})
	if changes == 0 {
		t.Fatal("model did not observe the store")
	}

	id, _ := s.AddLayer(c, doc.Layer{})
	cv, ok := m.Canvas(c)
	if !ok || len(cv.Layers) != 1 || cv.Layers[0].ID != id {
		t.Fatalf("model view stale: %+v", cv)
	}

	s.DeleteCanvas(c)
	if got := m.Canvases(); len(got) != 0 {
		t.Fatalf("deleted canvas still in view: %+v", got)
	}
}

func TestModelLayersFollowStackingOrder(t *testing.T) {
	s := doc.New()
	c, _ := s.CreateCanvas(400, 300, doc.Background{})
	bottom, _ := s.AddLayer(c, doc.Layer{})
	top, _ := s.AddLayer(c, doc.Layer{})
	m := NewModel(s)

	s.MoveLayer(c, bottom, doc.Up)
	cv, _ := m.Canvas(c)
	if cv.Layers[0].ID != top || cv.Layers[1].ID != bottom {
		t.Fatalf("view order does not follow sequence: %v, %v", cv.Layers[0].ID, cv.Layers[1].ID)
	}
}
