// template.go - Template API operations: CRUD, the default-template lookup
// and the provisioned font list.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/moocs-ptdv/certpress/pkg/template"
)

// TemplateFilter narrows template listings; nil fields mean no constraint.
type TemplateFilter struct {
	IsActive *bool
}

// FontOption is one provisioned font family offered by the API.
type FontOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListTemplates fetches templates matching the filter.
func (c *Client) ListTemplates(ctx context.Context, filter TemplateFilter) ([]template.Template, error) {
	query := url.Values{}
	if filter.IsActive != nil {
		query.Set("isActive", strconv.FormatBool(*filter.IsActive))
	}

	var env dataEnvelope[[]template.Template]
	if err := c.do(ctx, http.MethodGet, "/templates", query, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetTemplate fetches one template by id.
func (c *Client) GetTemplate(ctx context.Context, id string) (*template.Template, error) {
	var env dataEnvelope[*template.Template]
	if err := c.do(ctx, http.MethodGet, "/templates/"+url.PathEscape(id), nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetDefaultTemplate fetches the template flagged as the implicit choice.
func (c *Client) GetDefaultTemplate(ctx context.Context) (*template.Template, error) {
	var env dataEnvelope[*template.Template]
	if err := c.do(ctx, http.MethodGet, "/templates/default", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateTemplate persists a new template and returns the stored copy.
func (c *Client) CreateTemplate(ctx context.Context, t *template.Template) (*template.Template, error) {
	var env dataEnvelope[*template.Template]
	if err := c.do(ctx, http.MethodPost, "/templates", nil, t, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// UpdateTemplate replaces the template with the given id.
func (c *Client) UpdateTemplate(ctx context.Context, id string, t *template.Template) (*template.Template, error) {
	var env dataEnvelope[*template.Template]
	if err := c.do(ctx, http.MethodPut, "/templates/"+url.PathEscape(id), nil, t, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// DeleteTemplate removes a template. Irreversible; callers gate this behind
// an explicit confirmation step.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/templates/"+url.PathEscape(id), nil, nil, nil)
}

// ListFonts returns the font families available from the font host. The
// response is not enveloped.
func (c *Client) ListFonts(ctx context.Context) ([]FontOption, error) {
	var out struct {
		Fonts []FontOption `json:"fonts"`
	}
	if err := c.do(ctx, http.MethodGet, "/fonts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Fonts, nil
}
