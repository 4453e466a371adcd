package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moocs-ptdv/certpress/pkg/template"
)

// ── Test doubles ──

type fakeTemplates struct {
	stored     *template.Template
	getErr     error
	saveErr    error
	created    *template.Template
	updated    *template.Template
	updatedID  string
	createHits int
	updateHits int
}

func (f *fakeTemplates) GetTemplate(_ context.Context, _ string) (*template.Template, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.stored.Clone(), nil
}

func (f *fakeTemplates) CreateTemplate(_ context.Context, t *template.Template) (*template.Template, error) {
	f.createHits++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.created = t.Clone()
	return f.created, nil
}

func (f *fakeTemplates) UpdateTemplate(_ context.Context, id string, t *template.Template) (*template.Template, error) {
	f.updateHits++
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.updatedID = id
	f.updated = t.Clone()
	return f.updated, nil
}

type fakeFetcher struct {
	images map[string][]byte
	err    error
	// onFetch runs before returning, letting a test interleave editor calls
	// the way an overlapping network response would.
	onFetch func()
}

func (f *fakeFetcher) FetchImage(_ context.Context, url string) ([]byte, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.images[url]
	if !ok {
		return nil, errors.New("no such image")
	}
	return data, nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// ── Session bootstrap ──

func TestNewCreateSession(t *testing.T) {
	t.Run("fixed catalog seeds the candidate fields", func(t *testing.T) {
		e := New(Deps{}, template.CatalogFixed)

		assert.Equal(t, StateReady, e.State())
		assert.Len(t, e.Draft().Fields, 4)
		assert.Equal(t, -1, e.SelectedField())
	})

	t.Run("open catalog starts with one blank field", func(t *testing.T) {
		e := New(Deps{}, template.CatalogOpen)

		draft := e.Draft()
		require.Len(t, draft.Fields, 1)
		assert.Empty(t, draft.Fields[0].Name)
	})
}

func TestLoadForEdit(t *testing.T) {
	stored := template.New()
	stored.ID = "tpl-1"
	stored.Name = "Completion"
	stored.Background = "https://cdn.example.com/bg.png"
	stored.Fields[0].Selected = true
	stored.Fields[0].X = 450
	stored.Fields[0].Y = 300

	t.Run("seeds the draft and resolves the background", func(t *testing.T) {
		svc := &fakeTemplates{stored: stored}
		fetcher := &fakeFetcher{images: map[string][]byte{
			"https://cdn.example.com/bg.png": testPNG(t, 1800, 1200),
		}}
		e := New(Deps{Templates: svc, Backgrounds: fetcher}, template.CatalogFixed)

		require.NoError(t, e.LoadForEdit(context.Background(), "tpl-1"))

		assert.Equal(t, StateReady, e.State())
		assert.Equal(t, "Completion", e.Draft().Name)
		require.NotNil(t, e.Background())
		w, h := e.CanvasSize()
		assert.Equal(t, template.DisplayWidth, w)
		assert.Equal(t, 600, h)
	})

	t.Run("load failure lands in the failed state", func(t *testing.T) {
		svc := &fakeTemplates{getErr: errors.New("boom")}
		e := New(Deps{Templates: svc}, template.CatalogFixed)

		require.Error(t, e.LoadForEdit(context.Background(), "tpl-1"))
		assert.Equal(t, StateFailed, e.State())
		assert.NotEmpty(t, e.Message())
	})

	t.Run("background fetch failure leaves the draft editable", func(t *testing.T) {
		svc := &fakeTemplates{stored: stored}
		e := New(Deps{Templates: svc, Backgrounds: &fakeFetcher{err: errors.New("cdn down")}},
			template.CatalogFixed)

		require.NoError(t, e.LoadForEdit(context.Background(), "tpl-1"))
		assert.Equal(t, StateReady, e.State())
		assert.Nil(t, e.Background())
		_, h := e.CanvasSize()
		assert.Zero(t, h)
	})

	t.Run("stored template without fields gets the candidates", func(t *testing.T) {
		bare := &template.Template{ID: "tpl-2", Name: "Bare"}
		e := New(Deps{Templates: &fakeTemplates{stored: bare}}, template.CatalogFixed)

		require.NoError(t, e.LoadForEdit(context.Background(), "tpl-2"))
		assert.Len(t, e.Draft().Fields, 4)
	})
}

// ── Field mutation ──

func TestUpdateFieldAt(t *testing.T) {
	e := New(Deps{}, template.CatalogFixed)

	t.Run("coerces numeric input", func(t *testing.T) {
		e.UpdateFieldAt(context.Background(), 0, "x", "450")
		e.UpdateFieldAt(context.Background(), 0, "y", 300)
		e.UpdateFieldAt(context.Background(), 0, "fontSize", "48")

		f := e.Draft().Fields[0]
		assert.Equal(t, 450, f.X)
		assert.Equal(t, 300, f.Y)
		assert.Equal(t, 48, f.FontSize)
	})

	t.Run("non-numeric font size falls back to the default", func(t *testing.T) {
		e.UpdateFieldAt(context.Background(), 0, "fontSize", "huge")
		assert.Equal(t, template.DefaultFontSize, e.Draft().Fields[0].FontSize)

		e.UpdateFieldAt(context.Background(), 0, "x", "???")
		assert.Zero(t, e.Draft().Fields[0].X)
	})

	t.Run("fractional strings truncate", func(t *testing.T) {
		e.UpdateFieldAt(context.Background(), 0, "fontSize", "24.9")
		assert.Equal(t, 24, e.Draft().Fields[0].FontSize)
	})

	t.Run("selection toggles", func(t *testing.T) {
		e.UpdateFieldAt(context.Background(), 1, "isChoose", true)
		assert.True(t, e.Draft().Fields[1].Selected)
		assert.Equal(t, 1, e.Draft().SelectedCount())
	})

	t.Run("out-of-range index is ignored", func(t *testing.T) {
		e.UpdateFieldAt(context.Background(), 99, "x", 1)
		e.UpdateFieldAt(context.Background(), -1, "x", 1)
	})
}

func TestAddRemoveField(t *testing.T) {
	t.Run("fixed catalog cannot grow or shrink", func(t *testing.T) {
		e := New(Deps{}, template.CatalogFixed)
		assert.False(t, e.AddField())
		assert.False(t, e.RemoveField(0))
		assert.Len(t, e.Draft().Fields, 4)
	})

	t.Run("open catalog keeps at least one field", func(t *testing.T) {
		e := New(Deps{}, template.CatalogOpen)
		assert.False(t, e.RemoveField(0))
		assert.Len(t, e.Draft().Fields, 1)

		assert.True(t, e.AddField())
		assert.True(t, e.RemoveField(1))
		assert.Len(t, e.Draft().Fields, 1)
	})

	t.Run("removal adjusts the selection", func(t *testing.T) {
		e := New(Deps{}, template.CatalogOpen)
		e.AddField()
		e.AddField() // three fields

		e.SelectField(2)
		require.True(t, e.RemoveField(0))
		assert.Equal(t, 1, e.SelectedField(), "selection follows the shifted field")

		require.True(t, e.RemoveField(1))
		assert.Equal(t, -1, e.SelectedField(), "removing the selected field clears it")
	})
}

// ── Background staging ──

func TestBackgroundStaging(t *testing.T) {
	t.Run("local file stages and decodes immediately", func(t *testing.T) {
		e := New(Deps{}, template.CatalogFixed)
		e.SetBackgroundFromLocalFile("bg.png", testPNG(t, 900, 450))

		require.NotNil(t, e.Staged())
		require.NotNil(t, e.Background())
		_, h := e.CanvasSize()
		assert.Equal(t, 450, h)
	})

	t.Run("setting a URL clears the staged file", func(t *testing.T) {
		fetcher := &fakeFetcher{images: map[string][]byte{
			"u": testPNG(t, 900, 600),
		}}
		e := New(Deps{Backgrounds: fetcher}, template.CatalogFixed)

		e.SetBackgroundFromLocalFile("bg.png", testPNG(t, 900, 450))
		e.SetBackgroundFromURL(context.Background(), "u")

		assert.Nil(t, e.Staged())
		assert.Equal(t, "u", e.Draft().Background)
		_, h := e.CanvasSize()
		assert.Equal(t, 600, h)
	})

	t.Run("undecodable file leaves no background", func(t *testing.T) {
		e := New(Deps{}, template.CatalogFixed)
		e.SetBackgroundFromLocalFile("bg.png", []byte("garbage"))

		assert.NotNil(t, e.Staged(), "the file stays staged; only the preview is empty")
		assert.Nil(t, e.Background())
	})

	t.Run("a superseded resolve does not overwrite the newer background", func(t *testing.T) {
		fetcher := &fakeFetcher{images: map[string][]byte{
			"slow": testPNG(t, 100, 100),
		}}
		e := New(Deps{Backgrounds: fetcher}, template.CatalogFixed)

		// While "slow" is in flight the operator picks a local file. The
		// fetched result must then be discarded, not installed.
		fetcher.onFetch = func() {
			fetcher.onFetch = nil
			e.SetBackgroundFromLocalFile("new.png", testPNG(t, 900, 450))
		}
		e.SetBackgroundFromURL(context.Background(), "slow")

		require.NotNil(t, e.Background())
		assert.Equal(t, 900, e.Background().Width)
		assert.Equal(t, 450, e.Background().Height)
		assert.NotNil(t, e.Staged())
	})
}
