package doc

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/google/uuid"

	"SharedCanvas/internal/geom"
	"SharedCanvas/internal/replica"
)

// ErrInvalidSize rejects non-positive canvas dimensions before any
// mutation happens.
var ErrInvalidSize = errors.New("doc: canvas width and height must be positive")

// Direction selects the stacking neighbor for MoveLayer.
type Direction = replica.Direction

const (
	Up   = replica.Up
	Down = replica.Down
)

// Collection names. The document is split into three independently
// mergeable parts on purpose: a flat canvas registry, one small order
// list per canvas, and one flat attribute map per layer. A drag/resize
// touches only its own layer's map, a reorder only permutes a short id
// list, and neither contends with edits elsewhere. A single nested
// structure would force every observer and every merge to chew on the
// whole canvas for any change inside it.
const (
	colCanvases = "canvases"
	colLayers   = "layers" // layer id -> owning canvas id
)

func orderList(canvasID string) string { return "order/" + canvasID }
func layerMap(layerID string) string   { return "layer/" + layerID }

// Attribute keys within a layer's map. Each is its own register, so two
// peers editing different attributes of the same layer both survive a
// merge.
const (
	attrKind       = "kind"
	attrBottomLeft = "bottomLeft"
	attrTopRight   = "topRight"
	attrLayerOrder = "layerOrder"
	attrOriginal   = "original"
	attrSource     = "source"
	attrMediaType  = "mediaType"
	attrAnimated   = "animated"
)

var layerAttrKeys = []string{
	attrKind, attrBottomLeft, attrTopRight, attrLayerOrder,
	attrOriginal, attrSource, attrMediaType, attrAnimated,
}

// minLayerExtent is the smallest committed width/height. Previews may
// collapse to zero mid-drag, but a committed rect never does, keeping
// the next resize's ratio math finite.
const minLayerExtent = 1e-3

// Store exposes the document operations over one replica. All
// operations write to the local replica immediately and never block on
// the network; operations against ids a concurrent peer already deleted
// are silent no-ops, since that race is an expected outcome of
// concurrent editing rather than a bug.
type Store struct {
	doc *replica.Doc
}

// NewStore wraps an existing replica.
func NewStore(d *replica.Doc) *Store {
	return &Store{doc: d}
}

// New creates a store over a fresh replica.
func New() *Store {
	return NewStore(replica.NewDoc())
}

// Doc exposes the underlying replica to the sync layer.
func (s *Store) Doc() *replica.Doc {
	return s.doc
}

// Observe registers a callback fired after any local or remote mutation
// has fully merged into the replica.
func (s *Store) Observe(fn func()) {
	s.doc.Subscribe(fn)
}

// CreateCanvas adds an empty canvas and returns its id.
func (s *Store) CreateCanvas(width, height int, bg Background) (string, error) {
	if width <= 0 || height <= 0 {
		return "", ErrInvalidSize
	}
	id := uuid.NewString()
	rec, _ := json.Marshal(Canvas{ID: id, Width: width, Height: height, Background: bg})
	s.doc.SetKey(colCanvases, id, string(rec))
	log.Printf("[doc] canvas %s created (%dx%d)", id, width, height)
	return id, nil
}

// DeleteCanvas removes the canvas, its layer sequence, and every layer
// it references. No-op for unknown ids.
func (s *Store) DeleteCanvas(canvasID string) {
	if _, ok := s.doc.GetKey(colCanvases, canvasID); !ok {
		return
	}
	for _, layerID := range s.doc.ListOrder(orderList(canvasID)) {
		s.deleteLayerRecords(canvasID, layerID)
	}
	s.doc.DeleteKey(colCanvases, canvasID)
	log.Printf("[doc] canvas %s deleted", canvasID)
}

// AddLayer stores the layer and splices its id into the canvas's
// sequence at the position its LayerOrder suggests. Returns the layer
// id, or false when the canvas is unknown.
func (s *Store) AddLayer(canvasID string, l Layer) (string, bool) {
	if _, ok := s.doc.GetKey(colCanvases, canvasID); !ok {
		return "", false
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	applyLayerDefaults(&l, s.doc.ListOrder(orderList(canvasID)), s)

	s.doc.SetKey(colLayers, l.ID, canvasID)
	m := layerMap(l.ID)
	s.doc.SetKey(m, attrKind, string(l.Kind))
	s.doc.SetKey(m, attrBottomLeft, marshalPoint(l.BottomLeft))
	s.doc.SetKey(m, attrTopRight, marshalPoint(l.TopRight))
	s.doc.SetKey(m, attrLayerOrder, strconv.Itoa(l.LayerOrder))
	s.doc.SetKey(m, attrOriginal, marshalSize(l.OriginalWidth, l.OriginalHeight))
	if l.Kind == KindImage {
		s.doc.SetKey(m, attrSource, l.Source)
		s.doc.SetKey(m, attrMediaType, l.MediaType)
		s.doc.SetKey(m, attrAnimated, strconv.FormatBool(l.Animated))
	}

	s.doc.ListInsertAt(orderList(canvasID), l.ID, s.insertIndex(canvasID, l.LayerOrder))
	return l.ID, true
}

// RemoveLayer deletes the layer record and drops its id from the
// sequence. No-op when either id is unknown.
func (s *Store) RemoveLayer(canvasID, layerID string) {
	owner, ok := s.doc.GetKey(colLayers, layerID)
	if !ok || owner != canvasID {
		return
	}
	s.deleteLayerRecords(canvasID, layerID)
}

// UpdateLayer merges the patch into the layer record. Unknown ids are a
// silent no-op: a peer may have deleted the layer while we were editing
// it, and that must not fail either client. Non-finite corners are
// rejected; degenerate rects are clamped before committing.
func (s *Store) UpdateLayer(layerID string, patch LayerPatch) {
	if _, ok := s.doc.GetKey(colLayers, layerID); !ok {
		return
	}
	m := layerMap(layerID)

	if patch.BottomLeft != nil || patch.TopRight != nil {
		cur, ok := s.Layer(layerID)
		if !ok {
			return
		}
		bl, tr := cur.BottomLeft, cur.TopRight
		if patch.BottomLeft != nil {
			bl = *patch.BottomLeft
		}
		if patch.TopRight != nil {
			tr = *patch.TopRight
		}
		if !bl.Finite() || !tr.Finite() {
			return
		}
		bl, tr = geom.ClampMinSize(bl, tr, minLayerExtent)
		s.doc.SetKey(m, attrBottomLeft, marshalPoint(bl))
		s.doc.SetKey(m, attrTopRight, marshalPoint(tr))
	}
	if patch.Source != nil {
		s.doc.SetKey(m, attrSource, *patch.Source)
	}
	if patch.MediaType != nil {
		s.doc.SetKey(m, attrMediaType, *patch.MediaType)
	}
	if patch.Animated != nil {
		s.doc.SetKey(m, attrAnimated, strconv.FormatBool(*patch.Animated))
	}
}

// MoveLayer swaps the layer with its stacking neighbor. No-op at the
// boundary or for unknown ids.
func (s *Store) MoveLayer(canvasID, layerID string, dir Direction) {
	owner, ok := s.doc.GetKey(colLayers, layerID)
	if !ok || owner != canvasID {
		return
	}
	s.doc.ListMove(orderList(canvasID), layerID, dir)
}

// Canvas returns one canvas record.
func (s *Store) Canvas(canvasID string) (Canvas, bool) {
	raw, ok := s.doc.GetKey(colCanvases, canvasID)
	if !ok {
		return Canvas{}, false
	}
	var c Canvas
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Canvas{}, false
	}
	return c, true
}

// Canvases returns all canvas records, ordered by id for determinism.
func (s *Store) Canvases() []Canvas {
	ids := s.doc.Keys(colCanvases)
	out := make([]Canvas, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.Canvas(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// LayerIDs returns the canvas's layer ids in stacking order, bottom to
// top.
func (s *Store) LayerIDs(canvasID string) []string {
	return s.doc.ListOrder(orderList(canvasID))
}

// Layer hydrates one layer record from its attribute map.
func (s *Store) Layer(layerID string) (Layer, bool) {
	if _, ok := s.doc.GetKey(colLayers, layerID); !ok {
		return Layer{}, false
	}
	m := layerMap(layerID)
	kind, ok := s.doc.GetKey(m, attrKind)
	if !ok {
		return Layer{}, false
	}
	l := Layer{ID: layerID, Kind: LayerKind(kind)}
	if raw, ok := s.doc.GetKey(m, attrBottomLeft); ok {
		l.BottomLeft = unmarshalPoint(raw)
	}
	if raw, ok := s.doc.GetKey(m, attrTopRight); ok {
		l.TopRight = unmarshalPoint(raw)
	}
	if raw, ok := s.doc.GetKey(m, attrLayerOrder); ok {
		l.LayerOrder, _ = strconv.Atoi(raw)
	}
	if raw, ok := s.doc.GetKey(m, attrOriginal); ok {
		l.OriginalWidth, l.OriginalHeight = unmarshalSize(raw)
	}
	if raw, ok := s.doc.GetKey(m, attrSource); ok {
		l.Source = raw
	}
	if raw, ok := s.doc.GetKey(m, attrMediaType); ok {
		l.MediaType = raw
	}
	if raw, ok := s.doc.GetKey(m, attrAnimated); ok {
		l.Animated = raw == "true"
	}
	return l, true
}

func (s *Store) deleteLayerRecords(canvasID, layerID string) {
	s.doc.ListRemove(orderList(canvasID), layerID)
	for _, key := range layerAttrKeys {
		if _, ok := s.doc.GetKey(layerMap(layerID), key); ok {
			s.doc.DeleteKey(layerMap(layerID), key)
		}
	}
	s.doc.DeleteKey(colLayers, layerID)
}

// insertIndex places a new layer among the existing ones by comparing
// LayerOrder values: after every layer whose order is not greater.
// Clients that have already observed the replicated sequence simply get
// an append, since default orders are assigned monotonically.
func (s *Store) insertIndex(canvasID string, order int) int {
	idx := 0
	for _, id := range s.doc.ListOrder(orderList(canvasID)) {
		l, ok := s.Layer(id)
		if ok && l.LayerOrder > order {
			break
		}
		idx++
	}
	return idx
}

// applyLayerDefaults fills in a default position/size and layer order
// for freshly created layers.
func applyLayerDefaults(l *Layer, existing []string, s *Store) {
	if l.Kind == "" {
		l.Kind = KindBasic
	}
	if l.OriginalWidth <= 0 || l.OriginalHeight <= 0 {
		l.OriginalWidth, l.OriginalHeight = 100, 100
	}
	if l.BottomLeft == l.TopRight {
		// Place at the original size, offset a little from the corner.
		const inset = 24.0
		l.BottomLeft = geom.Point{X: inset, Y: inset + l.OriginalHeight}
		l.TopRight = geom.Point{X: inset + l.OriginalWidth, Y: inset}
	}
	if l.LayerOrder == 0 {
		max := 0
		for _, id := range existing {
			if cur, ok := s.Layer(id); ok && cur.LayerOrder > max {
				max = cur.LayerOrder
			}
		}
		l.LayerOrder = max + 1
	}
}

func marshalPoint(p geom.Point) string {
	raw, _ := json.Marshal(p)
	return string(raw)
}

func unmarshalPoint(raw string) geom.Point {
	var p geom.Point
	_ = json.Unmarshal([]byte(raw), &p)
	return p
}

type sizeRecord struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func marshalSize(w, h float64) string {
	raw, _ := json.Marshal(sizeRecord{W: w, H: h})
	return string(raw)
}

func unmarshalSize(raw string) (float64, float64) {
	var sz sizeRecord
	_ = json.Unmarshal([]byte(raw), &sz)
	return sz.W, sz.H
}
