// submit.go - The persist pipeline: validate, upload any staged background,
// then create or update through the Template API. Network failures restore
// the session to StateReady with the draft intact; retry is a user-initiated
// re-submission.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// ErrValidationFailed is returned by Submit when the draft did not pass
// validation; the full error set is available via Errors(). No network call
// has been made.
var ErrValidationFailed = errors.New("draft failed validation")

// Submit persists the draft. If a local file is staged it is uploaded first
// and the returned stored reference becomes the draft background; upload
// failure aborts without touching the Template API. On success the session
// reaches StateSubmitted and the caller navigates to the template list.
func (e *Editor) Submit(ctx context.Context) error {
	if !e.Validate().OK() {
		return ErrValidationFailed
	}

	e.state = StateSubmitting
	e.message = ""
	payload := e.draft.Clone()

	if e.staged != nil {
		e.uploadProgress = 0
		ref, err := e.deps.Uploads.Upload(ctx, e.staged.Name,
			bytes.NewReader(e.staged.Data), int64(len(e.staged.Data)),
			e.recordUploadProgress)
		if err != nil {
			e.state = StateReady
			e.message = fmt.Sprintf("background upload failed: %v", err)
			return fmt.Errorf("upload background: %w", err)
		}
		payload.Background = ref
	}

	var err error
	if payload.ID != "" {
		_, err = e.deps.Templates.UpdateTemplate(ctx, payload.ID, payload)
	} else {
		_, err = e.deps.Templates.CreateTemplate(ctx, payload)
	}
	if err != nil {
		e.state = StateReady
		e.message = "saving the template failed, please try again later"
		return fmt.Errorf("save template: %w", err)
	}

	e.draft = payload
	e.staged = nil
	e.state = StateSubmitted
	return nil
}

// recordUploadProgress keeps the reported percentage monotonic even if the
// transport reports out of order.
func (e *Editor) recordUploadProgress(percent int) {
	if percent > e.uploadProgress {
		e.uploadProgress = min(percent, 100)
	}
}
