// fonts.go - Font provisioning with on-demand fetching and embedded fallback.
// Families are resolved by name from a FontSource (one font file per family,
// e.g. /fonts/{family}.ttf) and registered once; until a family loads, or when
// loading fails, rendering degrades to the embedded Go faces.
package template

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontSource fetches the raw bytes of a font file for a family name.
type FontSource interface {
	Fetch(ctx context.Context, family string) ([]byte, error)
}

type faceKey struct {
	family string
	size   int
	bold   bool
	italic bool
}

// FontManager registers fetched font families and hands out faces for
// rendering. Registration is idempotent: requesting the same family twice
// neither fails nor double-registers, and a failed fetch is non-fatal - the
// family simply keeps resolving to the fallback face.
type FontManager struct {
	source FontSource
	logger *slog.Logger

	mu       sync.Mutex
	families map[string]*opentype.Font
	faces    map[faceKey]font.Face

	fallback fallbackFonts
}

type fallbackFonts struct {
	regular, bold, italic, boldItalic *opentype.Font
}

// NewFontManager creates a font manager backed by the given source. A nil
// source disables fetching; every family then uses the embedded fallback.
func NewFontManager(source FontSource, logger *slog.Logger) (*FontManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var fb fallbackFonts
	var err error
	if fb.regular, err = opentype.Parse(goregular.TTF); err != nil {
		return nil, fmt.Errorf("parse fallback font: %w", err)
	}
	if fb.bold, err = opentype.Parse(gobold.TTF); err != nil {
		return nil, fmt.Errorf("parse fallback bold font: %w", err)
	}
	if fb.italic, err = opentype.Parse(goitalic.TTF); err != nil {
		return nil, fmt.Errorf("parse fallback italic font: %w", err)
	}
	if fb.boldItalic, err = opentype.Parse(gobolditalic.TTF); err != nil {
		return nil, fmt.Errorf("parse fallback bold-italic font: %w", err)
	}

	return &FontManager{
		source:   source,
		logger:   logger,
		families: make(map[string]*opentype.Font),
		faces:    make(map[faceKey]font.Face),
		fallback: fb,
	}, nil
}

// EnsureLoaded fetches and registers the family if it is not already known.
// Failures are logged and swallowed so editing is never blocked by a missing
// font resource; a later call may retry the fetch.
func (fm *FontManager) EnsureLoaded(ctx context.Context, family string) {
	if family == "" || family == DefaultFont {
		return
	}

	fm.mu.Lock()
	_, ok := fm.families[family]
	fm.mu.Unlock()
	if ok {
		return
	}

	if fm.source == nil {
		return
	}

	data, err := fm.source.Fetch(ctx, family)
	if err != nil {
		fm.logger.Warn("font fetch failed, using fallback",
			slog.String("family", family), slog.String("error", err.Error()))
		return
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		fm.logger.Warn("font parse failed, using fallback",
			slog.String("family", family), slog.String("error", err.Error()))
		return
	}

	fm.mu.Lock()
	if _, ok := fm.families[family]; !ok {
		fm.families[family] = parsed
	}
	fm.mu.Unlock()
}

// Loaded reports whether the family has been registered.
func (fm *FontManager) Loaded(family string) bool {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	_, ok := fm.families[family]
	return ok
}

// Face returns a font.Face for the family at the given pixel size.
// Unregistered families resolve to the embedded fallback, where bold/italic
// pick the matching Go variant. Fetched families carry a single file per the
// naming convention, so style flags reuse the regular face.
func (fm *FontManager) Face(family string, size int, bold, italic bool) font.Face {
	if size <= 0 {
		size = DefaultFontSize
	}

	key := faceKey{family: family, size: size, bold: bold, italic: italic}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	if face, ok := fm.faces[key]; ok {
		return face
	}

	parsed, ok := fm.families[family]
	if !ok {
		switch {
		case bold && italic:
			parsed = fm.fallback.boldItalic
		case bold:
			parsed = fm.fallback.bold
		case italic:
			parsed = fm.fallback.italic
		default:
			parsed = fm.fallback.regular
		}
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// Face creation only fails for corrupt metrics; retry on the fallback.
		face, err = opentype.NewFace(fm.fallback.regular, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil
		}
	}

	fm.faces[key] = face
	return face
}
