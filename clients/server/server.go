// Package server provides the certpress admin console: a browser UI plus the
// JSON/PNG endpoints backing it. Every durable decision (numbering,
// rendering, revocation, storage) stays with the remote certificate API -
// handlers here stage files, render previews and proxy, nothing more. The
// bearer token is injected server-side so it never reaches the browser.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/moocs-ptdv/certpress/pkg/api"
	"github.com/moocs-ptdv/certpress/pkg/config"
	"github.com/moocs-ptdv/certpress/pkg/template"
)

//go:embed web/*
var webContent embed.FS

// Server wires the console handlers to their collaborators.
type Server struct {
	api      *api.Client
	uploads  *api.UploadService
	fonts    *template.FontManager
	renderer *template.Renderer
	staged   *assetStore
	logger   *slog.Logger
}

// Run builds the console from configuration and serves it until the listener
// fails.
func Run(cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	creds := func() string { return cfg.APIToken }
	client := api.New(api.Config{BaseURL: cfg.APIBaseURL, Credentials: creds}, logger)
	uploads := api.NewUploadService(api.UploadConfig{URL: cfg.UploadURL, Credentials: creds}, logger)

	fonts, err := template.NewFontManager(api.NewFontHost(cfg.FontHostURL, nil), logger)
	if err != nil {
		return fmt.Errorf("font manager: %w", err)
	}

	s := &Server{
		api:      client,
		uploads:  uploads,
		fonts:    fonts,
		renderer: template.NewRenderer(fonts),
		staged:   newAssetStore(),
		logger:   logger,
	}

	addr := ":" + cfg.ServerPort
	logger.Info("certpress console listening", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Routes())
}

// Routes assembles the console router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/preview", s.handlePreview)

		r.Post("/assets", s.handleStageAsset)
		r.Get("/assets/{id}", s.handleGetAsset)
		r.Delete("/assets/{id}", s.handleDeleteAsset)

		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/default", s.handleGetDefaultTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Post("/templates", s.handleSaveTemplate)
		r.Put("/templates/{id}", s.handleSaveTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)
		r.Get("/fonts", s.handleListFonts)

		r.Get("/certificates", s.handleListCertificates)
		r.Post("/certificates", s.handleCreateCertificate)
		r.Get("/certificates/verify/{certificateId}", s.handleVerifyCertificate)
		r.Get("/certificates/{id}", s.handleGetCertificate)
		r.Put("/certificates/{id}/revoke", s.handleRevokeCertificate)
		r.Get("/certificates/{id}/download", s.binaryHandler(s.api.DownloadCertificatePDF, "application/pdf"))
		r.Get("/certificates/{id}/preview", s.binaryHandler(s.api.PreviewCertificatePDF, "application/pdf"))
		r.Get("/certificates/{id}/image", s.binaryHandler(s.api.CertificateImagePreview, "image/png"))
	})

	webFS, err := fs.Sub(webContent, "web")
	if err == nil {
		r.Handle("/*", http.FileServer(http.FS(webFS)))
	}

	return r
}

// ── Preview (core) ──

type previewRequest struct {
	Template json.RawMessage `json:"template"`
	// StagedAsset previews a staged local file instead of the background URL.
	StagedAsset string `json:"stagedAsset,omitempty"`
	// Overlay enables the diagnostic anchor overlay (detail view only).
	Overlay bool `json:"overlay,omitempty"`
	// Values binds certificate data into the preview.
	Values map[string]string `json:"values,omitempty"`
}

// handlePreview renders a template preview PNG at the fixed display width.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid preview request")
		return
	}

	t, err := template.ParseTemplate(req.Template)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	bg, err := s.resolveBackground(r, req)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "NO_BACKGROUND", err.Error())
		return
	}

	height, err := template.CanvasHeight(float64(bg.Width), float64(bg.Height), template.DisplayWidth)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "BAD_IMAGE", err.Error())
		return
	}

	for _, f := range t.Fields {
		s.fonts.EnsureLoaded(r.Context(), t.FieldFont(f))
	}

	canvas := image.NewRGBA(image.Rect(0, 0, template.DisplayWidth, int(height+0.5)))
	s.renderer.Render(canvas, bg.Image, t, template.RenderOptions{
		ActiveOnly:  !req.Overlay,
		ShowAnchors: req.Overlay,
		PreferName:  req.Overlay,
		Values:      req.Values,
	})

	w.Header().Set("Content-Type", "image/png")
	if err := template.EncodePNG(w, canvas); err != nil {
		s.logger.Warn("preview encode failed", slog.String("error", err.Error()))
	}
}

func (s *Server) resolveBackground(r *http.Request, req previewRequest) (*template.BackgroundImage, error) {
	if req.StagedAsset != "" {
		a, ok := s.staged.get(req.StagedAsset)
		if !ok {
			return nil, fmt.Errorf("staged asset %s not found", req.StagedAsset)
		}
		return template.DecodeBackground(a.Data)
	}

	var t template.Template
	_ = json.Unmarshal(req.Template, &t)
	if t.Background == "" {
		return nil, fmt.Errorf("no background image loaded")
	}

	data, err := s.api.FetchImage(r.Context(), t.Background)
	if err != nil {
		return nil, fmt.Errorf("load background: %w", err)
	}
	return template.DecodeBackground(data)
}

// ── Staged assets ──

func (s *Server) handleStageAsset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unreadable file")
		return
	}

	// Reject anything that will not decode as a background before staging.
	if _, err := template.DecodeBackground(data); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "BAD_IMAGE", "file is not a decodable image")
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(header.Filename))
	if mimeType == "" {
		mimeType = "image/png"
	}
	id := s.staged.add(header.Filename, data, mimeType)

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"id":   id,
		"name": header.Filename,
		"url":  "/api/assets/" + id,
	})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.staged.get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Write(a.Data)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	s.staged.remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ── Templates ──

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	filter := api.TemplateFilter{}
	switch r.URL.Query().Get("isActive") {
	case "true":
		v := true
		filter.IsActive = &v
	case "false":
		v := false
		filter.IsActive = &v
	}

	list, err := s.api.ListTemplates(r.Context(), filter)
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeData(w, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.api.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeData(w, t)
}

func (s *Server) handleGetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.api.GetDefaultTemplate(r.Context())
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeData(w, t)
}

type saveTemplateRequest struct {
	template.Template
	// StagedAsset, when set, is uploaded to object storage first and the
	// stored reference replaces the background.
	StagedAsset string `json:"stagedAsset,omitempty"`
}

// handleSaveTemplate persists a draft: staged background upload first (a
// failed upload aborts without touching the Template API), then create or
// update depending on the route. The staged asset is only released once the
// save succeeds, so an identical resubmission after a failed save still finds
// its file.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req saveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid template payload")
		return
	}

	t := req.Template
	id := chi.URLParam(r, "id")
	hasStaged := req.StagedAsset != ""

	kind := template.CatalogFixed
	if errs := template.Validate(&t, kind, hasStaged); !errs.OK() {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "template failed validation",
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		})
		return
	}

	if hasStaged {
		a, ok := s.staged.get(req.StagedAsset)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "staged asset not found")
			return
		}
		ref, err := s.uploads.Upload(r.Context(), a.Name, bytes.NewReader(a.Data), int64(len(a.Data)), nil)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "UPLOAD_FAILED", "background upload failed")
			return
		}
		t.Background = ref
	}

	var saved *template.Template
	var err error
	if id != "" {
		saved, err = s.api.UpdateTemplate(r.Context(), id, &t)
	} else {
		saved, err = s.api.CreateTemplate(r.Context(), &t)
	}
	if err != nil {
		s.proxyError(w, err)
		return
	}

	if hasStaged {
		s.staged.remove(req.StagedAsset)
	}
	s.writeData(w, saved)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.api.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.proxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFonts(w http.ResponseWriter, r *http.Request) {
	fonts, err := s.api.ListFonts(r.Context())
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"fonts": fonts})
}

// ── Certificates ──

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.api.ListCertificates(r.Context(), api.CertificateFilter{
		StudentID: q.Get("studentId"),
		CourseID:  q.Get("courseId"),
		Status:    api.CertificateStatus(q.Get("status")),
	})
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeData(w, list)
}

func (s *Server) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.api.GetCertificate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeData(w, cert)
}

func (s *Server) handleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid certificate payload")
		return
	}

	cert, err := s.api.CreateCertificate(r.Context(), req)
	if err != nil {
		s.proxyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"data": cert})
}

// handleVerifyCertificate surfaces the two invalid outcomes distinctly: a
// revoked certificate is not the same as one that never existed.
func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.api.VerifyCertificate(r.Context(), chi.URLParam(r, "certificateId"))
	switch {
	case errors.Is(err, api.ErrCertificateRevoked):
		s.writeError(w, http.StatusGone, "REVOKED", "this certificate has been revoked")
	case errors.Is(err, api.ErrCertificateNotFound):
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "certificate is not valid")
	case err != nil:
		s.proxyError(w, err)
	default:
		s.writeData(w, cert)
	}
}

func (s *Server) handleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	if err := s.api.RevokeCertificate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.proxyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) binaryHandler(fetch func(context.Context, string) ([]byte, error), contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fetch(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.proxyError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

// ── Response helpers ──

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encode failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeData(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// proxyError forwards a remote API failure with its status when known.
func (s *Server) proxyError(w http.ResponseWriter, err error) {
	var se *api.StatusError
	if errors.As(err, &se) {
		code := se.Code
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		msg := se.Message
		if msg == "" {
			msg = "remote API request failed"
		}
		s.writeError(w, se.StatusCode, code, msg)
		return
	}
	s.logger.Error("remote API unreachable", slog.String("error", err.Error()))
	s.writeError(w, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "remote API request failed")
}
