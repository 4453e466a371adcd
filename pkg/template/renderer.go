// renderer.go - Canvas preview renderer for certificate templates.
// Draws the background stretched to the canvas, then each applicable field's
// text at its stored native-space coordinates with the field's resolved font,
// color and alignment, baseline-anchored. Coordinates are intentionally not
// rescaled to the display canvas: issued certificates depend on the unscaled
// convention, so preview geometry matches the remote generator only at the
// canonical 900px background width.
package template

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// RenderOptions controls which fields are drawn and how.
type RenderOptions struct {
	// ActiveOnly draws only fields with Selected set (the form preview).
	// Read-only detail views draw every field unconditionally.
	ActiveOnly bool
	// ShowAnchors enables the diagnostic overlay: a marker dot at each
	// field's anchor, a 1-based ordinal, and the raw coordinates. Must stay
	// off in the form preview so it matches production output.
	ShowAnchors bool
	// PreferName captions fields by binding name rather than display label,
	// as the detail view does when auditing stored coordinates.
	PreferName bool
	// Values maps field names to certificate data; when a field has a value
	// it is drawn instead of the caption.
	Values map[string]string
}

// Renderer draws template previews onto caller-provided canvases.
type Renderer struct {
	fonts *FontManager
}

// NewRenderer creates a renderer using the given font manager.
func NewRenderer(fonts *FontManager) *Renderer {
	return &Renderer{fonts: fonts}
}

// Render composites the template onto dst: background first, stretched to
// fill the canvas bounds, then the applicable fields. It draws nothing when
// no background image has loaded - callers gate on image-loaded state.
func (r *Renderer) Render(dst draw.Image, bg image.Image, t *Template, opts RenderOptions) {
	if bg == nil || t == nil {
		return
	}

	bounds := dst.Bounds()
	draw.Draw(dst, bounds, image.White, image.Point{}, draw.Src)
	xdraw.ApproxBiLinear.Scale(dst, bounds, bg, bg.Bounds(), xdraw.Src, nil)

	for i, f := range t.Fields {
		if opts.ActiveOnly && !f.Selected {
			continue
		}
		r.drawField(dst, t, f, i, opts)
	}
}

// drawField renders one field's text and, when enabled, its anchor overlay.
func (r *Renderer) drawField(dst draw.Image, t *Template, f Field, index int, opts RenderOptions) {
	text := fieldText(f, index, opts)
	size := f.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}

	face := r.fonts.Face(t.FieldFont(f), size, f.Bold, f.Italic)
	col := parseHexColor(f.FontColor, color.RGBA{A: 255})
	r.drawString(dst, text, f.X, f.Y, f.TextAlign, col, face)

	if opts.ShowAnchors {
		r.drawAnchor(dst, f, index)
	}
}

// fieldText resolves what to draw for a field: bound certificate value,
// caption, or a positional placeholder.
func fieldText(f Field, index int, opts RenderOptions) string {
	if opts.Values != nil {
		if v, ok := opts.Values[f.Name]; ok && v != "" {
			return v
		}
	}
	if opts.PreferName {
		if f.Name != "" {
			return f.Name
		}
	} else if f.DisplayLabel != "" {
		return f.DisplayLabel
	}
	return fmt.Sprintf("Field #%d", index+1)
}

// drawString draws text with its baseline at (x, y), anchored per align.
func (r *Renderer) drawString(dst draw.Image, text string, x, y int, align TextAlign, col color.Color, face font.Face) {
	if face == nil {
		return
	}

	dot := fixed.P(x, y)
	switch align {
	case AlignCenter:
		dot.X -= font.MeasureString(face, text) / 2
	case AlignRight:
		dot.X -= font.MeasureString(face, text)
	}

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  dot,
	}
	drawer.DrawString(text)
}

// drawAnchor paints the diagnostic overlay for one field: a grey marker dot
// at the anchor, the 1-based ordinal up-and-left of it, and the raw stored
// coordinates to the right.
func (r *Renderer) drawAnchor(dst draw.Image, f Field, index int) {
	size := f.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}

	radius := clamp(size/18, 4, 8)
	fillCircle(dst, f.X, f.Y, radius, color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 255})

	ordSize := clamp(size/6, 12, 16)
	ordFace := r.fonts.Face("", ordSize, true, false)
	r.drawString(dst, fmt.Sprintf("#%d", index+1),
		f.X-ordSize*3/2, f.Y-ordSize, AlignCenter,
		color.RGBA{B: 100, A: 178}, ordFace)

	infoSize := clamp(size/6, 10, 12)
	infoFace := r.fonts.Face("", infoSize, false, false)
	r.drawString(dst, fmt.Sprintf("(%d, %d)", f.X, f.Y),
		f.X+5, f.Y+infoSize+5, AlignLeft,
		color.RGBA{A: 153}, infoFace)
}

// fillCircle rasterizes a filled disc centered at (cx, cy).
func fillCircle(dst draw.Image, cx, cy, radius int, col color.Color) {
	bounds := dst.Bounds()
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			x, y := cx+dx, cy+dy
			if image.Pt(x, y).In(bounds) {
				dst.Set(x, y, col)
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// parseHexColor converts a "#rrggbb" string to color.RGBA, or fallback when
// the string is malformed.
func parseHexColor(hex string, fallback color.RGBA) color.RGBA {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return fallback
	}

	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}

	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}

// EncodePNG writes an image as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	return nil
}
