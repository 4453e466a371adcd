// background.go - Background staging and decode ordering. The two input modes
// (staged local file, remote URL) are mutually exclusive: last writer wins.
// Each decode is tagged with the generation it was issued for, so a slow
// decode that completes after the operator picked a different background is
// discarded instead of overwriting a preview it no longer corresponds to.
package editor

import (
	"context"
	"log/slog"

	"github.com/moocs-ptdv/certpress/pkg/template"
)

// SetBackgroundFromLocalFile stages a local file for upload and decodes it
// immediately for preview, without network I/O. Any previously entered
// background URL stops being relevant for submit.
func (e *Editor) SetBackgroundFromLocalFile(name string, data []byte) {
	e.staged = &StagedFile{Name: name, Data: data}

	gen := e.nextBackgroundGen()
	bg, err := template.DecodeBackground(data)
	e.commitBackground(gen, bg, err)
}

// SetBackgroundFromURL sets the draft background to a remote URL, clears any
// staged file, and resolves the image for preview.
func (e *Editor) SetBackgroundFromURL(ctx context.Context, url string) {
	e.staged = nil
	e.draft.Background = url
	e.resolveBackgroundURL(ctx, url)
}

func (e *Editor) resolveBackgroundURL(ctx context.Context, url string) {
	gen := e.nextBackgroundGen()

	if e.deps.Backgrounds == nil || url == "" {
		e.commitBackground(gen, nil, nil)
		return
	}

	data, err := e.deps.Backgrounds.FetchImage(ctx, url)
	if err != nil {
		e.commitBackground(gen, nil, err)
		return
	}
	bg, err := template.DecodeBackground(data)
	e.commitBackground(gen, bg, err)
}

// nextBackgroundGen invalidates all in-flight decodes and returns the tag
// for the newly issued one.
func (e *Editor) nextBackgroundGen() int {
	e.bgGen++
	return e.bgGen
}

// commitBackground installs a decode result unless it is stale. Decode
// failure is non-fatal: the preview goes empty and editing continues - only
// the background-required validation rule stands in the way of submit.
func (e *Editor) commitBackground(gen int, bg *template.BackgroundImage, err error) {
	if gen != e.bgGen {
		return // superseded by a newer background choice
	}

	if err != nil {
		e.deps.Logger.Warn("background image load failed",
			slog.String("error", err.Error()))
		bg = nil
	}

	e.bg = bg
	e.canvasHeight = 0
	if bg != nil {
		h, err := template.CanvasHeight(float64(bg.Width), float64(bg.Height), template.DisplayWidth)
		if err != nil {
			e.deps.Logger.Warn("canvas height computation failed",
				slog.String("error", err.Error()))
			e.bg = nil
			return
		}
		e.canvasHeight = h
	}
}
