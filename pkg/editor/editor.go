// Package editor owns the in-memory template draft for one editing session:
// field selection, background staging, font provisioning triggers, validation
// and the submit pipeline. The draft is exclusively owned by the Editor; the
// renderer and scale engine only read snapshots handed to them. An Editor is
// not safe for concurrent use - all work is event-driven on one logical
// thread, with network calls as the only suspension points.
package editor

import (
	"context"
	"image/draw"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/moocs-ptdv/certpress/pkg/template"
)

// State is the editing session's lifecycle position.
type State int

const (
	// StateLoading: edit mode only, fetching the existing template.
	StateLoading State = iota
	// StateReady: draft in memory, editable.
	StateReady
	// StateSubmitting: draft is being persisted.
	StateSubmitting
	// StateSubmitted: terminal; the caller navigates back to the list.
	StateSubmitted
	// StateFailed: the initial load failed; retry by starting a new session.
	StateFailed
)

// TemplateService is the subset of the remote Template API the editor needs.
type TemplateService interface {
	GetTemplate(ctx context.Context, id string) (*template.Template, error)
	CreateTemplate(ctx context.Context, t *template.Template) (*template.Template, error)
	UpdateTemplate(ctx context.Context, id string, t *template.Template) (*template.Template, error)
}

// Uploader stores a staged background file remotely, reporting progress as a
// percentage 0–100, and returns an opaque stored-object reference.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader, size int64, onProgress func(percent int)) (string, error)
}

// BackgroundFetcher retrieves remote background image bytes for decoding.
type BackgroundFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Deps are the external collaborators of an editing session.
type Deps struct {
	Templates   TemplateService
	Uploads     Uploader
	Backgrounds BackgroundFetcher
	Fonts       *template.FontManager
	Logger      *slog.Logger
}

// StagedFile is a locally selected background awaiting upload, previewed
// before being persisted remotely.
type StagedFile struct {
	Name string
	Data []byte
}

// Editor is the template edit state machine.
type Editor struct {
	deps Deps
	kind template.CatalogKind

	state    State
	draft    *template.Template
	errs     template.ValidationErrors
	message  string
	selected int

	staged       *StagedFile
	bg           *template.BackgroundImage
	bgGen        int
	canvasHeight float64

	uploadProgress int
}

// New starts a create-mode session: the draft begins from the bootstrap
// template immediately, no loading phase. Fixed-catalog drafts seed the named
// candidate fields; open-catalog drafts start with a single blank field.
func New(deps Deps, kind template.CatalogKind) *Editor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	draft := template.New()
	if kind == template.CatalogOpen {
		draft.Fields = []template.Field{template.NewField()}
	}

	return &Editor{
		deps:     deps,
		kind:     kind,
		state:    StateReady,
		draft:    draft,
		errs:     template.ValidationErrors{},
		selected: -1,
	}
}

// LoadForEdit starts an edit-mode session by fetching the template. On
// success the draft is seeded and, if a background exists, its image is
// resolved. On failure the session lands in StateFailed.
func (e *Editor) LoadForEdit(ctx context.Context, id string) error {
	e.state = StateLoading

	t, err := e.deps.Templates.GetTemplate(ctx, id)
	if err != nil {
		e.state = StateFailed
		e.message = "could not load template, please try again later"
		return err
	}

	if len(t.Fields) == 0 {
		t.Fields = template.CandidateFields()
	}
	e.draft = t
	e.state = StateReady

	if t.Background != "" {
		e.resolveBackgroundURL(ctx, t.Background)
	}
	return nil
}

// ── Accessors ──

func (e *Editor) State() State                     { return e.state }
func (e *Editor) Errors() template.ValidationErrors { return e.errs }
func (e *Editor) Message() string                  { return e.message }
func (e *Editor) SelectedField() int               { return e.selected }
func (e *Editor) Staged() *StagedFile              { return e.staged }
func (e *Editor) UploadProgress() int              { return e.uploadProgress }

// Draft returns a snapshot copy of the working template.
func (e *Editor) Draft() *template.Template { return e.draft.Clone() }

// Background returns the decoded background, or nil before one has loaded.
func (e *Editor) Background() *template.BackgroundImage { return e.bg }

// CanvasSize returns the display canvas dimensions, zero-height until a
// background has decoded.
func (e *Editor) CanvasSize() (width, height int) {
	return template.DisplayWidth, int(e.canvasHeight + 0.5)
}

// ── Draft mutation ──

// SetAttr mutates a top-level draft attribute. Validation is deferred to
// submit. A template-level font change triggers provisioning so the preview
// can draw with the new face.
func (e *Editor) SetAttr(ctx context.Context, name string, value any) {
	switch name {
	case "name":
		e.draft.Name = toString(value)
	case "description":
		e.draft.Description = toString(value)
	case "fontFamily":
		family := toString(value)
		e.draft.FontFamily = family
		e.ensureFont(ctx, family)
	case "isDefault":
		e.draft.IsDefault = toBool(value)
	case "isActive":
		e.draft.IsActive = toBool(value)
	}
}

// UpdateFieldAt mutates one attribute of the field at index. Numeric
// attributes are coerced; non-numeric input falls back to a safe default
// rather than corrupting the draft. Changing the font family triggers
// provisioning.
func (e *Editor) UpdateFieldAt(ctx context.Context, index int, attr string, value any) {
	if index < 0 || index >= len(e.draft.Fields) {
		return
	}
	f := &e.draft.Fields[index]

	switch attr {
	case "name":
		f.Name = toString(value)
	case "nameDisplay":
		f.DisplayLabel = toString(value)
	case "x":
		f.X = toInt(value, 0)
	case "y":
		f.Y = toInt(value, 0)
	case "fontSize":
		f.FontSize = toInt(value, template.DefaultFontSize)
	case "fontColor":
		f.FontColor = toString(value)
	case "textAlign":
		f.TextAlign = template.TextAlign(toString(value))
	case "fontFamily":
		family := toString(value)
		f.FontFamily = family
		e.ensureFont(ctx, family)
	case "isBold":
		f.Bold = toBool(value)
	case "isItalic":
		f.Italic = toBool(value)
	case "isChoose":
		f.Selected = toBool(value)
	}
}

// AddField appends a blank field. Only open-catalog sessions may grow the
// field list.
func (e *Editor) AddField() bool {
	if e.kind != template.CatalogOpen {
		return false
	}
	e.draft.Fields = append(e.draft.Fields, template.NewField())
	return true
}

// RemoveField deletes the field at index. It is a no-op when the list would
// become empty - a template always keeps at least one field entry - or when
// the session uses the fixed catalog. Removing the selected field clears the
// selection; removing an earlier field shifts the selection down to keep
// pointing at the same logical field.
func (e *Editor) RemoveField(index int) bool {
	if e.kind != template.CatalogOpen {
		return false
	}
	if len(e.draft.Fields) <= 1 {
		return false
	}
	if index < 0 || index >= len(e.draft.Fields) {
		return false
	}

	e.draft.Fields = append(e.draft.Fields[:index], e.draft.Fields[index+1:]...)

	switch {
	case e.selected == index:
		e.selected = -1
	case e.selected > index:
		e.selected--
	}
	return true
}

// SelectField focuses a field's detail panel. Pure UI state.
func (e *Editor) SelectField(index int) {
	if index < -1 || index >= len(e.draft.Fields) {
		return
	}
	e.selected = index
}

// Validate applies the submit rules and records the full error set.
func (e *Editor) Validate() template.ValidationErrors {
	e.errs = template.Validate(e.draft, e.kind, e.staged != nil)
	return e.errs
}

// Render draws the current draft preview onto dst using a consistent
// snapshot of (background, fields). The diagnostic overlay is never enabled
// here so the preview matches production output. No-op until a background
// has decoded.
func (e *Editor) Render(dst draw.Image) {
	if e.bg == nil {
		return
	}
	r := template.NewRenderer(e.deps.Fonts)
	r.Render(dst, e.bg.Image, e.Draft(), template.RenderOptions{ActiveOnly: true})
}

func (e *Editor) ensureFont(ctx context.Context, family string) {
	if e.deps.Fonts != nil {
		e.deps.Fonts.EnsureLoaded(ctx, family)
	}
}

// ── Form value coercion ──

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return ""
	}
}

func toInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		n = strings.TrimSpace(n)
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int(f)
		}
		return fallback
	default:
		return fallback
	}
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "on" || b == "1"
	default:
		return false
	}
}
