package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	content := bytes.Repeat([]byte("background-image-data"), 1024)

	var gotFilename string
	var gotContent []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotFilename = header.Filename
		gotContent, _ = io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]string{"message": "https://storage.example.com/bg-1.png"})
	}))
	defer srv.Close()

	up := NewUploadService(UploadConfig{URL: srv.URL}, nil)

	var progress []int
	ref, err := up.Upload(context.Background(), "bg.png", bytes.NewReader(content), int64(len(content)),
		func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.Equal(t, "https://storage.example.com/bg-1.png", ref)
	assert.Equal(t, "bg.png", gotFilename)
	assert.Equal(t, content, gotContent)

	// 1. Progress values never decrease.
	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	// 2. Progress ends at exactly 100.
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	up := NewUploadService(UploadConfig{URL: srv.URL}, nil)

	_, err := up.Upload(context.Background(), "bg.png", strings.NewReader("x"), 1, nil)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusRequestEntityTooLarge, se.StatusCode)
}

func TestUploadEmptyReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": ""})
	}))
	defer srv.Close()

	up := NewUploadService(UploadConfig{URL: srv.URL}, nil)

	_, err := up.Upload(context.Background(), "bg.png", strings.NewReader("x"), 1, nil)
	assert.Error(t, err)
}

func TestUploadAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"message": "ref"})
	}))
	defer srv.Close()

	up := NewUploadService(UploadConfig{
		URL:         srv.URL,
		Credentials: func() string { return "tok" },
	}, nil)

	_, err := up.Upload(context.Background(), "bg.png", strings.NewReader("x"), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestProgressReaderClamps(t *testing.T) {
	var got []int
	pr := &progressReader{
		r:          strings.NewReader("0123456789"),
		total:      8, // transport sends more than announced
		onProgress: func(p int) { got = append(got, p) },
	}

	_, err := io.ReadAll(pr)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 100, got[len(got)-1])
	for _, p := range got {
		assert.LessOrEqual(t, p, 100)
	}
}
