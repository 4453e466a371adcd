// Package template implements certificate template layouts: named text fields
// positioned over a background image, with per-field typography, plus the
// preview renderer that draws them the same way the remote generator does.
package template

import "time"

// ── Field types ──

// TextAlign is the horizontal anchoring of a field's text around its X position.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Field is one placeable text element on a certificate.
// X/Y and FontSize are in the background image's native pixel space - the
// remote generator interprets them against the full-resolution image, so the
// editor never rescales them (see Renderer).
type Field struct {
	// Name binds the field to a certificate attribute key (e.g. "studentName").
	// Immutable once certificates have been issued from the template.
	Name string `json:"name"`
	// DisplayLabel is the human-readable caption shown in the editor preview.
	DisplayLabel string `json:"nameDisplay,omitempty"`
	// Title captions the field's settings panel in the editor.
	Title string `json:"title,omitempty"`

	X         int       `json:"x"`
	Y         int       `json:"y"`
	FontSize  int       `json:"fontSize"`
	FontColor string    `json:"fontColor"`
	TextAlign TextAlign `json:"textAlign"`
	// FontFamily overrides the template-level font when set.
	FontFamily string `json:"fontFamily,omitempty"`
	Bold       bool   `json:"isBold,omitempty"`
	Italic     bool   `json:"isItalic,omitempty"`

	// Selected marks the field as actually rendered on issued certificates.
	// Templates may define more candidate fields than they use.
	Selected bool `json:"isChoose"`
}

// Default field attribute values.
const (
	DefaultFontSize  = 16
	DefaultFontColor = "#000000"
	DefaultFont      = "Arial"
)

// NewField returns a blank free-form field with documented defaults.
func NewField() Field {
	return Field{
		FontSize:  DefaultFontSize,
		FontColor: DefaultFontColor,
		TextAlign: AlignLeft,
	}
}

// applyFieldDefaults fills unset attributes after decoding external data.
func applyFieldDefaults(f *Field) {
	if f.FontSize <= 0 {
		f.FontSize = DefaultFontSize
	}
	if f.FontColor == "" {
		f.FontColor = DefaultFontColor
	}
	if f.TextAlign == "" {
		f.TextAlign = AlignLeft
	}
}

// ── Catalog kinds ──

// CatalogKind selects how a template's field list may be edited.
type CatalogKind int

const (
	// CatalogFixed limits the template to the named candidate fields: the
	// operator toggles relevance and position but cannot add or remove entries.
	CatalogFixed CatalogKind = iota
	// CatalogOpen allows arbitrary named fields to be added and removed.
	CatalogOpen
)

// CandidateFields returns the bootstrap field set for a brand-new template:
// the common certificate attributes, none selected yet.
func CandidateFields() []Field {
	mk := func(name, title, label string) Field {
		return Field{
			Name:         name,
			Title:        title,
			DisplayLabel: label,
			FontSize:     DefaultFontSize,
			FontColor:    DefaultFontColor,
			TextAlign:    AlignCenter,
			FontFamily:   DefaultFont,
		}
	}
	return []Field{
		mk("courseName", "Course name placement", "Course name"),
		mk("studentName", "Student name placement", "Student name"),
		mk("timeComplete", "Completion date placement", "Completion date"),
		mk("infoCompany", "Issuer info placement", "Issuer info"),
	}
}

// ── Template ──

// Template is a reusable certificate layout: background image reference plus
// ordered field definitions and typography defaults.
type Template struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Background references the image resource (URL or stored-object key).
	Background string `json:"background"`
	// FontFamily is the template-wide default font for fields without one.
	FontFamily string  `json:"fontFamily,omitempty"`
	Fields     []Field `json:"fields"`
	// IsDefault marks the implicit choice when issuing certificates.
	IsDefault bool `json:"isDefault,omitempty"`
	// IsActive controls whether the template is selectable at all.
	IsActive bool `json:"isActive,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// New returns an empty draft template seeded with the candidate field set.
func New() *Template {
	return &Template{
		FontFamily: DefaultFont,
		Fields:     CandidateFields(),
		IsActive:   true,
	}
}

// Clone returns a deep copy; the field slice is not shared.
func (t *Template) Clone() *Template {
	c := *t
	c.Fields = make([]Field, len(t.Fields))
	copy(c.Fields, t.Fields)
	return &c
}

// FieldFont resolves the font family for a field: field override, then
// template default, then the global fallback face.
func (t *Template) FieldFont(f Field) string {
	if f.FontFamily != "" {
		return f.FontFamily
	}
	if t.FontFamily != "" {
		return t.FontFamily
	}
	return DefaultFont
}

// SelectedCount reports how many fields are marked for rendering.
func (t *Template) SelectedCount() int {
	n := 0
	for _, f := range t.Fields {
		if f.Selected {
			n++
		}
	}
	return n
}
