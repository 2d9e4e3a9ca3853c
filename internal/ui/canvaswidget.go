package ui

import (
	"image/color"
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/geom"
	"SharedCanvas/internal/session"
	"SharedCanvas/internal/view"
)

// handleTolerance is the side of the hit square around each corner
// handle, a little larger than the drawn handle so it is grabbable.
const handleTolerance = geom.HandleSize + 4

// CanvasWidget renders one canvas of the derived view and feeds pointer
// input into the transform session controller. Previews come straight
// from the controller, so a drag updates the screen every frame without
// touching the replicated store.
type CanvasWidget struct {
	widget.BaseWidget

	model      *view.Model
	controller *session.Controller

	mu        sync.RWMutex
	canvasID  string
	selected  string
	shiftDown bool

	OnSelect func(layerID string)
}

var _ fyne.Widget = (*CanvasWidget)(nil)
var _ desktop.Mouseable = (*CanvasWidget)(nil)
var _ desktop.Hoverable = (*CanvasWidget)(nil)

func NewCanvasWidget(m *view.Model, ctl *session.Controller) *CanvasWidget {
	w := &CanvasWidget{model: m, controller: ctl}
	ctl.SetAspectLockFunc(w.aspectLocked)
	ctl.SetOnPreview(func(string, geom.Point, geom.Point) {
		fyne.Do(w.Refresh)
	})
	w.ExtendBaseWidget(w)
	return w
}

// SetCanvas switches which canvas the widget shows.
func (w *CanvasWidget) SetCanvas(canvasID string) {
	w.mu.Lock()
	w.canvasID = canvasID
	w.selected = ""
	w.mu.Unlock()
	w.Refresh()
}

// CanvasID returns the id of the canvas being shown.
func (w *CanvasWidget) CanvasID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.canvasID
}

// Selected returns the currently selected layer id, or "".
func (w *CanvasWidget) Selected() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selected
}

// CancelInteraction aborts any in-flight transform session, e.g. when
// the window loses focus mid-drag.
func (w *CanvasWidget) CancelInteraction() {
	w.controller.Cancel()
	w.Refresh()
}

func (w *CanvasWidget) aspectLocked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.shiftDown
}

func (w *CanvasWidget) currentView() (view.CanvasView, bool) {
	return w.model.Canvas(w.CanvasID())
}

func (w *CanvasWidget) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	w.trackModifier(ev.Modifier)
	cv, ok := w.currentView()
	if !ok {
		return
	}
	p := geom.Point{X: float64(ev.Position.X), Y: float64(ev.Position.Y)}
	hit := w.controller.Begin(cv.Layers, w.Selected(), p, handleTolerance)

	w.mu.Lock()
	w.selected = hit
	w.mu.Unlock()
	if w.OnSelect != nil {
		w.OnSelect(hit)
	}
	w.Refresh()
}

func (w *CanvasWidget) MouseMoved(ev *desktop.MouseEvent) {
	w.trackModifier(ev.Modifier)
	if w.controller.Phase() == session.Idle {
		return
	}
	w.controller.Update(geom.Point{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

func (w *CanvasWidget) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	// Commit happens here, exactly once per session; the store
	// notification rebuilds the view and refreshes us.
	w.controller.End()
	w.Refresh()
}

func (w *CanvasWidget) MouseIn(ev *desktop.MouseEvent) { w.trackModifier(ev.Modifier) }
func (w *CanvasWidget) MouseOut()                      {}

func (w *CanvasWidget) trackModifier(mod fyne.KeyModifier) {
	w.mu.Lock()
	w.shiftDown = mod&fyne.KeyModifierShift != 0
	w.mu.Unlock()
}

func (w *CanvasWidget) CreateRenderer() fyne.WidgetRenderer {
	return &canvasRenderer{widget: w}
}

type canvasRenderer struct {
	widget  *CanvasWidget
	objects []fyne.CanvasObject
}

func (r *canvasRenderer) Objects() []fyne.CanvasObject {
	cv, ok := r.widget.currentView()
	if !ok {
		return nil
	}

	objects := []fyne.CanvasObject{r.backgroundObject(cv.Canvas)}

	activeID := r.widget.controller.ActiveLayer()
	for _, l := range cv.Layers {
		bl, tr := l.BottomLeft, l.TopRight
		if l.ID == activeID {
			if pbl, ptr, ok := r.widget.controller.PreviewBounds(); ok {
				bl, tr = pbl, ptr
			}
		}
		objects = append(objects, layerObject(l, bl, tr))
		if l.ID == r.widget.Selected() {
			objects = append(objects, handleObjects(bl, tr)...)
		}
	}
	r.objects = objects
	return objects
}

func (r *canvasRenderer) backgroundObject(c doc.Canvas) fyne.CanvasObject {
	size := fyne.NewSize(float32(c.Width), float32(c.Height))
	if c.Background.Image != "" {
		img := canvas.NewImageFromFile(c.Background.Image)
		img.FillMode = canvas.ImageFillStretch
		img.Resize(size)
		return img
	}
	bg := canvas.NewRectangle(parseNRGBA(c.Background.Color))
	bg.Resize(size)
	return bg
}

func layerObject(l doc.Layer, bl, tr geom.Point) fyne.CanvasObject {
	box := geom.BoundingBox(bl, tr)
	pos := fyne.NewPos(float32(box.X), float32(box.Y))
	size := fyne.NewSize(float32(box.Width), float32(box.Height))

	if l.Kind == doc.KindImage && l.Source != "" {
		img := canvas.NewImageFromFile(strings.TrimPrefix(l.Source, "file://"))
		img.FillMode = canvas.ImageFillStretch
		img.Move(pos)
		img.Resize(size)
		return img
	}
	rect := canvas.NewRectangle(color.NRGBA{R: 120, G: 144, B: 196, A: 200})
	rect.StrokeColor = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	rect.StrokeWidth = 1
	rect.Move(pos)
	rect.Resize(size)
	return rect
}

func handleObjects(bl, tr geom.Point) []fyne.CanvasObject {
	out := make([]fyne.CanvasObject, 0, 4)
	for _, pos := range geom.HandlePositions(bl, tr) {
		h := canvas.NewRectangle(color.White)
		h.StrokeColor = color.NRGBA{R: 30, G: 90, B: 200, A: 255}
		h.StrokeWidth = 1.5
		h.Move(fyne.NewPos(float32(pos.X), float32(pos.Y)))
		h.Resize(fyne.NewSize(geom.HandleSize, geom.HandleSize))
		out = append(out, h)
	}
	return out
}

func (r *canvasRenderer) Layout(fyne.Size) {}
func (r *canvasRenderer) Destroy()         {}
func (r *canvasRenderer) Refresh()         { canvas.Refresh(r.widget) }
func (r *canvasRenderer) MinSize() fyne.Size {
	if cv, ok := r.widget.currentView(); ok {
		return fyne.NewSize(float32(cv.Canvas.Width), float32(cv.Canvas.Height))
	}
	return fyne.NewSize(300, 300)
}

// parseNRGBA decodes "#rrggbb"; anything else comes out white.
func parseNRGBA(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.NRGBA{
		R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255,
	}
}
