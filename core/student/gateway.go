package student

import "context"

type (
	// EntityGateway is the backend API owning student records.
	EntityGateway interface {
		Create(ctx context.Context, rec WireRecord) (id string, err error)
		Update(ctx context.Context, id string, rec WireRecord) error
		GetByID(ctx context.Context, id string) (Student, error)
	}

	// DocumentGateway is the backend API owning student documents.
	DocumentGateway interface {
		Upload(ctx context.Context, studentID string, up DocumentUpload) error
		Delete(ctx context.Context, studentID, documentName string) error
		List(ctx context.Context, studentID string) ([]PersistedDocument, error)
	}

	// DocumentUpload is the multipart payload of a document upload.
	DocumentUpload struct {
		DocumentName string // form field `documentName`: key or label
		Filename     string
		MimeType     string
		Content      []byte // form field `file`
	}
)
