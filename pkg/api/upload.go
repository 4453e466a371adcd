// upload.go - Client for the object-storage upload service. The returned
// stored reference is opaque; it is persisted verbatim as a template's
// background.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// UploadConfig carries the connection settings for the upload service, which
// may live on a different host than the certificate API.
type UploadConfig struct {
	// URL is the full upload endpoint.
	URL string
	// Credentials returns the current bearer token; nil sends none.
	Credentials func() string
	// HTTPClient overrides the transport; nil uses a 5-minute default, since
	// background images can be large.
	HTTPClient *http.Client
}

// UploadService stores files remotely with incremental progress reporting.
type UploadService struct {
	url    string
	creds  func() string
	http   *http.Client
	logger *slog.Logger
}

// NewUploadService creates an upload client.
func NewUploadService(cfg UploadConfig, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}
	return &UploadService{url: cfg.URL, creds: cfg.Credentials, http: hc, logger: logger}
}

// Upload sends the file as multipart form data and returns the stored-object
// reference. onProgress, when non-nil, receives a non-decreasing percentage
// that reaches 100 once the body has been fully sent.
func (u *UploadService) Upload(ctx context.Context, filename string, content io.Reader, size int64, onProgress func(percent int)) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish upload form: %w", err)
	}

	pr := &progressReader{
		r:          &body,
		total:      int64(body.Len()),
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, pr)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.ContentLength = pr.total
	if u.creds != nil {
		if token := u.creds(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: "upload rejected"}
	}

	// The upload service replies {"message": "<stored url>"}.
	var out struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.Message == "" {
		return "", fmt.Errorf("upload response carried no stored reference")
	}

	if onProgress != nil {
		onProgress(100)
	}
	return out.Message, nil
}

// progressReader reports cumulative read progress as a percentage. Reported
// values never decrease.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	last       int
	onProgress func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	if p.onProgress != nil && p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.last {
			p.last = pct
			p.onProgress(pct)
		}
	}
	return n, err
}
