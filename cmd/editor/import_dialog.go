//go:build dialog
// +build dialog

package main

import (
	"errors"

	"github.com/sqweek/dialog"
)

// openImportDialog opens the native file dialog and returns the selected path.
// A cancelled dialog returns an empty path.
func openImportDialog() (string, error) {
	path, err := dialog.File().Filter("Stage projects", "json").Title("Import project").Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", nil
	}
	return path, err
}
