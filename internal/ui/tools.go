package ui

import (
	"log"
	"mime"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/export"
	"SharedCanvas/internal/view"
)

// NewToolbar builds the layer actions for one canvas widget.
func NewToolbar(win fyne.Window, board *CanvasWidget, store *doc.Store, model *view.Model) fyne.CanvasObject {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			store.AddLayer(board.CanvasID(), doc.Layer{})
		}),
		widget.NewToolbarAction(theme.MediaPhotoIcon(), func() {
			dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
				if err != nil || reader == nil {
					return
				}
				path := reader.URI().Path()
				reader.Close()
				store.AddLayer(board.CanvasID(), imageLayer(path))
			}, win)
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MoveUpIcon(), func() {
			if id := board.Selected(); id != "" {
				store.MoveLayer(board.CanvasID(), id, doc.Up)
			}
		}),
		widget.NewToolbarAction(theme.MoveDownIcon(), func() {
			if id := board.Selected(); id != "" {
				store.MoveLayer(board.CanvasID(), id, doc.Down)
			}
		}),
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			if id := board.Selected(); id != "" {
				store.RemoveLayer(board.CanvasID(), id)
			}
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
				if err != nil || writer == nil {
					return
				}
				path := writer.URI().Path()
				writer.Close()
				if err := export.WritePDF(path, model.Canvases()); err != nil {
					log.Printf("[ui] PDF export failed: %v", err)
					dialog.ShowError(err, win)
					return
				}
				log.Printf("[ui] exported document to %s", path)
			}, win)
		}),
	)
}

// imageLayer builds an image layer record for a picked file. The
// original size defaults to a plausible box; the substrate treats it as
// just another attribute, so a renderer that decodes the file may
// update it later.
func imageLayer(path string) doc.Layer {
	ext := strings.ToLower(filepath.Ext(path))
	return doc.Layer{
		Kind:           doc.KindImage,
		Source:         path,
		MediaType:      mime.TypeByExtension(ext),
		Animated:       ext == ".gif",
		OriginalWidth:  200,
		OriginalHeight: 150,
	}
}
