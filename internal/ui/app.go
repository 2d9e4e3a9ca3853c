package ui

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"SharedCanvas/internal/doc"
	"SharedCanvas/internal/session"
	"SharedCanvas/internal/sync"
	"SharedCanvas/internal/view"
)

// RunApp wires the document session into a window and blocks until it
// closes.
func RunApp(s *sync.Session, shareLink string) {
	a := app.New()
	win := a.NewWindow("SharedCanvas")
	win.Resize(fyne.NewSize(1024, 768))

	store := s.Store()
	model := view.NewModel(store)
	controller := session.NewController(store)

	// Only the hosting side seeds a default canvas; a joiner waits for
	// the host's snapshot instead of racing it with its own create.
	hosting := shareLink != ""
	board := NewCanvasWidget(model, controller)
	ensureCanvas(store, board, hosting)

	status := widget.NewLabel(statusText(s.Connected(), shareLink))
	s.SetOnStatus(func(up bool) {
		fyne.Do(func() { status.SetText(statusText(up, shareLink)) })
	})
	model.SetOnChange(func() {
		fyne.Do(func() {
			ensureCanvas(store, board, false)
			board.Refresh()
		})
	})

	toolbar := NewToolbar(win, board, store, model)
	content := container.NewBorder(toolbar, status, nil, nil,
		container.NewScroll(board))
	win.SetContent(content)
	win.ShowAndRun()
}

// ensureCanvas points the widget at the first canvas, creating a
// default one on a fresh hosted document.
func ensureCanvas(store *doc.Store, board *CanvasWidget, createIfEmpty bool) {
	canvases := store.Canvases()
	if len(canvases) == 0 {
		if createIfEmpty && board.CanvasID() == "" {
			id, err := store.CreateCanvas(800, 600, doc.Background{Color: "#ffffff"})
			if err != nil {
				log.Printf("[ui] default canvas: %v", err)
				return
			}
			board.SetCanvas(id)
		}
		return
	}
	if _, ok := store.Canvas(board.CanvasID()); !ok {
		board.SetCanvas(canvases[0].ID)
	}
}

func statusText(connected bool, shareLink string) string {
	state := "offline - edits will sync when a peer connects"
	if connected {
		state = "connected"
	}
	if shareLink == "" {
		return state
	}
	return fmt.Sprintf("%s | share: %s", state, shareLink)
}
