package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"

	"WorthWatch/internal/repository"
)

const defaultSettingsFile = "settings.json"

func openLedger(dir string) *repository.FSLedger {
	return repository.NewFSLedger(dir, defaultSettingsFile)
}

// printMarkdown renders markdown for the terminal, falling back to the raw
// text when the renderer cannot be built (e.g. no TTY detection data).
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
