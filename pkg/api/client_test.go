package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moocs-ptdv/certpress/pkg/template"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(Config{
		BaseURL:     srv.URL,
		Credentials: func() string { return "test-token" },
	}, nil)
	return c, srv
}

func TestClientAuthorization(t *testing.T) {
	var gotAuth string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"data": []template.Template{}})
	}))
	defer srv.Close()

	_, err := c.ListTemplates(context.Background(), TemplateFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestClientStatusError(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "token expired", "code": "AUTH"})
	}))
	defer srv.Close()

	_, err := c.GetTemplate(context.Background(), "tpl-1")
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "AUTH", se.Code)
	assert.Equal(t, "token expired", se.Message)
}

func TestListTemplates(t *testing.T) {
	var gotQuery string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{"data": []template.Template{
			{ID: "tpl-1", Name: "Completion"},
			{ID: "tpl-2", Name: "Attendance"},
		}})
	}))
	defer srv.Close()

	active := true
	got, err := c.ListTemplates(context.Background(), TemplateFilter{IsActive: &active})
	require.NoError(t, err)

	assert.Equal(t, "isActive=true", gotQuery)
	require.Len(t, got, 2)
	assert.Equal(t, "Completion", got[0].Name)
}

func TestGetDefaultTemplate(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/templates/default", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"data": template.Template{
			ID: "tpl-1", Name: "Completion", IsDefault: true,
		}})
	}))
	defer srv.Close()

	got, err := c.GetDefaultTemplate(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
}

func TestListFonts(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fonts", r.URL.Path)
		// The font list is the one endpoint without the data envelope.
		json.NewEncoder(w).Encode(map[string]any{"fonts": []FontOption{
			{Name: "Lobster", Value: "Lobster"},
			{Name: "Pacifico", Value: "Pacifico"},
		}})
	}))
	defer srv.Close()

	fonts, err := c.ListFonts(context.Background())
	require.NoError(t, err)
	require.Len(t, fonts, 2)
	assert.Equal(t, "Lobster", fonts[0].Name)
}

func TestVerifyCertificate(t *testing.T) {
	t.Run("valid certificate", func(t *testing.T) {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/certificates/verify/CERT-1", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{"data": Certificate{
				CertificateID: "CERT-1", StudentName: "Grace Hopper", Status: StatusGenerated,
			}})
		}))
		defer srv.Close()

		cert, err := c.VerifyCertificate(context.Background(), "CERT-1")
		require.NoError(t, err)
		assert.Equal(t, "Grace Hopper", cert.StudentName)
	})

	t.Run("410 maps to revoked", func(t *testing.T) {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGone)
			json.NewEncoder(w).Encode(map[string]string{"error": "revoked", "code": "REVOKED"})
		}))
		defer srv.Close()

		_, err := c.VerifyCertificate(context.Background(), "CERT-1")
		assert.ErrorIs(t, err, ErrCertificateRevoked)
	})

	t.Run("REVOKED code maps to revoked regardless of status", func(t *testing.T) {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "revoked", "code": "REVOKED"})
		}))
		defer srv.Close()

		_, err := c.VerifyCertificate(context.Background(), "CERT-1")
		assert.ErrorIs(t, err, ErrCertificateRevoked)
	})

	t.Run("404 maps to not found", func(t *testing.T) {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := c.VerifyCertificate(context.Background(), "CERT-404")
		assert.ErrorIs(t, err, ErrCertificateNotFound)
	})

	t.Run("revoked status in a 200 body maps to revoked", func(t *testing.T) {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"data": Certificate{
				CertificateID: "CERT-1", Status: StatusRevoked,
			}})
		}))
		defer srv.Close()

		_, err := c.VerifyCertificate(context.Background(), "CERT-1")
		assert.ErrorIs(t, err, ErrCertificateRevoked)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := c.VerifyCertificate(context.Background(), "CERT-1")
		assert.NotErrorIs(t, err, ErrCertificateRevoked)
		assert.NotErrorIs(t, err, ErrCertificateNotFound)
	})
}

func TestRevokeCertificate(t *testing.T) {
	var gotMethod, gotPath string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"data": nil})
	}))
	defer srv.Close()

	require.NoError(t, c.RevokeCertificate(context.Background(), "abc123"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/certificates/abc123/revoke", gotPath)
}

func TestListCertificatesFilter(t *testing.T) {
	var gotQuery map[string][]string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{"data": []Certificate{}})
	}))
	defer srv.Close()

	_, err := c.ListCertificates(context.Background(), CertificateFilter{
		StudentID: "stu-1",
		Status:    StatusGenerated,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1"}, gotQuery["studentId"])
	assert.Equal(t, []string{"generated"}, gotQuery["status"])
	assert.NotContains(t, gotQuery, "courseId")
}

func TestCertificateLifecycleFlags(t *testing.T) {
	assert.False(t, (&Certificate{Status: StatusProcessing}).Downloadable())
	assert.False(t, (&Certificate{Status: StatusRevoked}).Downloadable())
	assert.True(t, (&Certificate{Status: StatusGenerated}).Downloadable())
	assert.True(t, (&Certificate{Status: StatusSent}).Revocable())
	assert.False(t, (&Certificate{Status: StatusRevoked}).Revocable())
}

func TestFontHostFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fonts/Lobster.ttf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ttf-bytes"))
	}))
	defer srv.Close()

	h := NewFontHost(srv.URL, nil)

	data, err := h.Fetch(context.Background(), "Lobster")
	require.NoError(t, err)
	assert.Equal(t, []byte("ttf-bytes"), data)

	_, err = h.Fetch(context.Background(), "Missing")
	assert.Error(t, err)
}
