package main

import (
	"log"

	"golang.design/x/clipboard"
)

// Clipboard carries copied entities between editor windows.
type Clipboard interface {
	ReadText() []byte
	WriteText(data []byte)
}

type systemClipboard struct{}

// openClipboard returns the system clipboard, or an in-process one when the
// platform has none (headless or missing X11 libraries).
func openClipboard() Clipboard {
	if err := clipboard.Init(); err != nil {
		log.Printf("editor: system clipboard unavailable, copy/paste stays in this window: %v", err)
		return &localClipboard{}
	}
	return systemClipboard{}
}

func (systemClipboard) ReadText() []byte {
	return clipboard.Read(clipboard.FmtText)
}

func (systemClipboard) WriteText(data []byte) {
	clipboard.Write(clipboard.FmtText, data)
}

type localClipboard struct{ data []byte }

func (c *localClipboard) ReadText() []byte { return c.data }

func (c *localClipboard) WriteText(data []byte) { c.data = append([]byte(nil), data...) }
