// fonts.go - Font resource host client. Families resolve by naming
// convention: one TTF per family at /fonts/{family}.ttf.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FontHost fetches font files by family name. Implements
// template.FontSource.
type FontHost struct {
	base string
	http *http.Client
}

// NewFontHost creates a font host client rooted at baseURL (the host serving
// /fonts/, typically the API origin without the /api prefix).
func NewFontHost(baseURL string, client *http.Client) *FontHost {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FontHost{base: strings.TrimRight(baseURL, "/"), http: client}
}

// Fetch retrieves the TTF bytes for a font family.
func (h *FontHost) Fetch(ctx context.Context, family string) ([]byte, error) {
	u := h.base + "/fonts/" + url.PathEscape(family) + ".ttf"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build font request: %w", err)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch font %s: %w", family, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch font %s: HTTP %d", family, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
