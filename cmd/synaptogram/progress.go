package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// progressEnabled reports whether stderr can show a progress bar
func progressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// newTileProgress returns a session progress hook drawing a bar on stderr
func newTileProgress(enabled bool) func(total int) func() {
	if !enabled {
		return nil
	}
	return func(total int) func() {
		if total <= 0 {
			return nil
		}
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("extracting tiles"),
			progressbar.OptionSetWidth(32),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		done := 0
		return func() {
			_ = bar.Add(1)
			done++
			if done == total {
				_ = bar.Finish()
			}
		}
	}
}
