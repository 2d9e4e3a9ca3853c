package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"SharedCanvas/internal/sync"
	"SharedCanvas/internal/ui"
)

const (
	// CustomURLScheme is the share-link prefix a joiner passes as the
	// first argument: sharedcanvas://host:port/documentID
	CustomURLScheme = "sharedcanvas://"
	Port            = 8771
	defaultDocument = "default"
)

func main() {
	if len(os.Args) > 1 && strings.HasPrefix(os.Args[1], CustomURLScheme) {
		runJoiner(os.Args[1])
		return
	}
	runHost()
}

func runHost() {
	log.Println("Starting as HOST")
	manager := sync.NewManager()
	session := manager.Open(defaultDocument)
	defer manager.Close(session)

	if err := session.Host(Port); err != nil {
		log.Fatalf("Failed to host document: %v", err)
	}

	if server, err := sync.Advertise(defaultDocument, Port); err != nil {
		log.Printf("mDNS advertise failed (share link still works): %v", err)
	} else {
		defer server.Shutdown()
	}

	shareLink := fmt.Sprintf("%s%s:%d/%s", CustomURLScheme, sync.OutgoingIP(), Port, defaultDocument)
	log.Printf("Share link: %s", shareLink)
	ui.RunApp(session, shareLink)
}

func runJoiner(link string) {
	log.Println("Starting as CLIENT")
	addr, documentID := parseShareLink(link)

	manager := sync.NewManager()
	session := manager.Open(documentID)
	defer manager.Close(session)

	if err := session.Join(addr); err != nil {
		log.Fatalf("Failed to join %s: %v", addr, err)
	}
	ui.RunApp(session, "")
}

// parseShareLink splits sharedcanvas://host:port/documentID into its
// dialable address and document id.
func parseShareLink(link string) (addr, documentID string) {
	rest := strings.TrimPrefix(link, CustomURLScheme)
	rest = strings.TrimSuffix(rest, "/")
	addr = rest
	documentID = defaultDocument
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		addr = rest[:i]
		if id := rest[i+1:]; id != "" {
			documentID = id
		}
	}
	return addr, documentID
}
