// Package doc is the replicated document: canvases, per-canvas layer
// stacking order, and layer records, all expressed over the replica
// substrate so concurrent edits from disconnected clients merge without
// a central arbiter.
package doc

import (
	"SharedCanvas/internal/geom"
)

// LayerKind tags the layer variant. The geometry and ordering code only
// ever touches the common fields; kind-specific fields are matched
// structurally, never by runtime type name.
type LayerKind string

const (
	KindBasic LayerKind = "basic"
	KindImage LayerKind = "image"
)

// Layer is one image layer. BottomLeft/TopRight are historical names:
// after a flip mid-resize either corner may hold either extreme, so
// width and height are always absolute differences. LayerOrder only
// seeds the insertion position; once replicated, the canvas's layer
// sequence is the authoritative stacking order.
type Layer struct {
	ID         string     `json:"id"`
	Kind       LayerKind  `json:"kind"`
	BottomLeft geom.Point `json:"bottomLeft"`
	TopRight   geom.Point `json:"topRight"`
	LayerOrder int        `json:"layerOrder"`

	// Pre-scale dimensions, the source of the aspect ratio used by
	// locked resizes.
	OriginalWidth  float64 `json:"originalWidth"`
	OriginalHeight float64 `json:"originalHeight"`

	// Image variant fields.
	Source    string `json:"source,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Animated  bool   `json:"animated,omitempty"`
}

// Bounds returns the layer's current bounding box.
func (l Layer) Bounds() geom.Rect {
	return geom.BoundingBox(l.BottomLeft, l.TopRight)
}

// AspectRatio returns the layer's original width:height ratio.
func (l Layer) AspectRatio() geom.Fraction {
	return geom.NewFraction(int(l.OriginalWidth), int(l.OriginalHeight))
}

// Background is either a flat color or an image with its intrinsic
// size. An empty Image means the color form.
type Background struct {
	Color       string `json:"color,omitempty"`
	Image       string `json:"image,omitempty"`
	ImageWidth  int    `json:"imageWidth,omitempty"`
	ImageHeight int    `json:"imageHeight,omitempty"`
}

// Canvas is one drawing surface. Its layer stacking order lives in the
// store's per-canvas sequence, not on the record.
type Canvas struct {
	ID         string     `json:"id"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Background Background `json:"background"`
}

// LayerPatch is a partial layer update; nil fields are left untouched.
type LayerPatch struct {
	BottomLeft *geom.Point
	TopRight   *geom.Point
	Source     *string
	MediaType  *string
	Animated   *bool
}
