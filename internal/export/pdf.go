// Package export renders a document snapshot to PDF, one page per
// canvas.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/view"
)

// WritePDF writes every canvas of the derived view to path. Each page
// takes the canvas's own size in points; image layers are embedded when
// their source is a local file, other layers are drawn as outlined
// boxes.
func WritePDF(path string, canvases []view.CanvasView) error {
	if len(canvases) == 0 {
		return fmt.Errorf("export: document has no canvases")
	}

	p := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    pageSize(canvases[0].Canvas),
	})
	p.SetLineWidth(0.5)

	for _, cv := range canvases {
		p.AddPageFormat("P", pageSize(cv.Canvas))
		drawBackground(p, cv.Canvas)
		for _, l := range cv.Layers {
			drawLayer(p, l)
		}
	}
	return p.OutputFileAndClose(path)
}

func pageSize(c doc.Canvas) gofpdf.SizeType {
	return gofpdf.SizeType{Wd: float64(c.Width), Ht: float64(c.Height)}
}

func drawBackground(p *gofpdf.Fpdf, c doc.Canvas) {
	if c.Background.Image != "" {
		p.ImageOptions(c.Background.Image, 0, 0,
			float64(c.Width), float64(c.Height), false,
			gofpdf.ImageOptions{}, 0, "")
		return
	}
	r, g, b := parseHexColor(c.Background.Color)
	p.SetFillColor(r, g, b)
	p.Rect(0, 0, float64(c.Width), float64(c.Height), "F")
}

func drawLayer(p *gofpdf.Fpdf, l doc.Layer) {
	box := l.Bounds()
	if l.Kind == doc.KindImage && strings.HasPrefix(l.Source, "/") {
		p.ImageOptions(l.Source, box.X, box.Y, box.Width, box.Height,
			false, gofpdf.ImageOptions{}, 0, "")
		return
	}
	p.SetDrawColor(60, 60, 60)
	p.SetFillColor(200, 210, 230)
	p.Rect(box.X, box.Y, box.Width, box.Height, "FD")
}

// parseHexColor decodes "#rrggbb"; anything else comes out white.
func parseHexColor(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
