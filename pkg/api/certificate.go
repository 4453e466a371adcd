// certificate.go - Certificate API operations: listing, issuance, public
// verification, revocation and artifact downloads.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// CertificateStatus is the lifecycle state of an issued certificate.
type CertificateStatus string

const (
	StatusProcessing CertificateStatus = "processing"
	StatusGenerated  CertificateStatus = "generated"
	StatusSent       CertificateStatus = "sent"
	StatusRevoked    CertificateStatus = "revoked"
)

// Certificate is an issued certificate as reported by the remote API.
type Certificate struct {
	ID            string            `json:"_id,omitempty"`
	CertificateID string            `json:"certificateId,omitempty"`
	TemplateID    string            `json:"template,omitempty"`
	StudentID     string            `json:"studentId"`
	StudentName   string            `json:"studentName"`
	StudentEmail  string            `json:"studentEmail"`
	CourseID      string            `json:"courseId"`
	CourseName    string            `json:"courseName"`
	Status        CertificateStatus `json:"status,omitempty"`
	// FieldValues carries free-form values for template fields that do not
	// bind to a recognized certificate attribute.
	FieldValues map[string]string `json:"fieldValues,omitempty"`
	IssuedAt    time.Time         `json:"issuedAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt,omitempty"`
}

// Downloadable reports whether the certificate's artifacts may be fetched.
// Processing certificates have none yet; revoked ones are withheld.
func (c *Certificate) Downloadable() bool {
	return c.Status != StatusProcessing && c.Status != StatusRevoked
}

// Revocable reports whether revoke may be offered for this certificate.
func (c *Certificate) Revocable() bool {
	return c.Status != StatusProcessing && c.Status != StatusRevoked
}

// CertificateFilter narrows certificate listings; zero values mean no
// constraint.
type CertificateFilter struct {
	StudentID string
	CourseID  string
	Status    CertificateStatus
}

// CreateCertificateRequest is the issuance payload.
type CreateCertificateRequest struct {
	TemplateID   string            `json:"template"`
	StudentID    string            `json:"studentId"`
	StudentName  string            `json:"studentName"`
	StudentEmail string            `json:"studentEmail"`
	CourseID     string            `json:"courseId"`
	CourseName   string            `json:"courseName"`
	FieldValues  map[string]string `json:"fieldValues,omitempty"`
}

// Verification outcomes. Distinct so the UI can tell a revoked certificate
// apart from one that never existed.
var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrCertificateRevoked  = errors.New("certificate has been revoked")
)

// ListCertificates fetches certificates matching the filter.
func (c *Client) ListCertificates(ctx context.Context, filter CertificateFilter) ([]Certificate, error) {
	query := url.Values{}
	if filter.StudentID != "" {
		query.Set("studentId", filter.StudentID)
	}
	if filter.CourseID != "" {
		query.Set("courseId", filter.CourseID)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}

	var env dataEnvelope[[]Certificate]
	if err := c.do(ctx, http.MethodGet, "/certificates", query, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetCertificate fetches one certificate by id.
func (c *Client) GetCertificate(ctx context.Context, id string) (*Certificate, error) {
	var env dataEnvelope[*Certificate]
	if err := c.do(ctx, http.MethodGet, "/certificates/"+url.PathEscape(id), nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// CreateCertificate issues a new certificate from a template.
func (c *Client) CreateCertificate(ctx context.Context, req CreateCertificateRequest) (*Certificate, error) {
	var env dataEnvelope[*Certificate]
	if err := c.do(ctx, http.MethodPost, "/certificates", nil, req, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// VerifyCertificate checks a public certificate id. It returns
// ErrCertificateRevoked or ErrCertificateNotFound for the two invalid
// outcomes so callers can surface distinct messages.
func (c *Client) VerifyCertificate(ctx context.Context, certificateID string) (*Certificate, error) {
	var env dataEnvelope[*Certificate]
	err := c.do(ctx, http.MethodGet, "/certificates/verify/"+url.PathEscape(certificateID), nil, nil, &env)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			switch {
			case se.StatusCode == http.StatusGone || se.Code == "REVOKED":
				return nil, ErrCertificateRevoked
			case se.StatusCode == http.StatusNotFound:
				return nil, ErrCertificateNotFound
			}
		}
		return nil, err
	}

	if env.Data != nil && env.Data.Status == StatusRevoked {
		return nil, ErrCertificateRevoked
	}
	return env.Data, nil
}

// RevokeCertificate permanently revokes a certificate. Irreversible; callers
// gate this behind an explicit confirmation step.
func (c *Client) RevokeCertificate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/certificates/"+url.PathEscape(id)+"/revoke", nil, nil, nil)
}

// DownloadCertificatePDF fetches the final PDF artifact.
func (c *Client) DownloadCertificatePDF(ctx context.Context, id string) ([]byte, error) {
	return c.doBinary(ctx, "/certificates/"+url.PathEscape(id)+"/download")
}

// PreviewCertificatePDF fetches the inline PDF preview.
func (c *Client) PreviewCertificatePDF(ctx context.Context, id string) ([]byte, error) {
	return c.doBinary(ctx, "/certificates/"+url.PathEscape(id)+"/preview")
}

// CertificateImagePreview fetches the PNG preview of the certificate.
func (c *Client) CertificateImagePreview(ctx context.Context, id string) ([]byte, error) {
	return c.doBinary(ctx, "/certificates/"+url.PathEscape(id)+"/image")
}
