package visitform

import (
	"context"
	"fmt"
	"io"
)

// PersistenceGateway is the backend collaborator that persists visit records
// and their attachments. The form assembles one normalized payload per save;
// the gateway owns transport and storage.
type PersistenceGateway interface {
	CreateVisit(ctx context.Context, payload VisitPayload) (Record, error)
	UpdateVisit(ctx context.Context, visitID int, payload VisitPayload) (Record, error)
	DeleteVisit(ctx context.Context, visitID int) error
	UploadAttachment(ctx context.Context, visitID int, filename string, file io.Reader) (Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID int) error
}

// UploadError reports an attachment upload that failed after the visit itself
// was already persisted. The record save is not rolled back; the caller must
// surface this distinctly and let the user retry the upload manually.
type UploadError struct {
	VisitID int
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("visit %d saved but attachment upload failed: %v", e.VisitID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
