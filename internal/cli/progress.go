package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress is a thread-safe progress bar for batch runs.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a bar over total steps.
func NewProgress(w io.Writer, total int, description string) *Progress {
	p := &Progress{}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
	return p
}

// Step advances the bar by one. It is safe to call from several goroutines.
func (p *Progress) Step() {
	if err := p.bar.Add(1); err != nil {
		slog.Warn("failed to update progress bar", "error", err)
	}
}

// Current returns the number of completed steps.
func (p *Progress) Current() int64 {
	return int64(p.bar.State().CurrentNum)
}
