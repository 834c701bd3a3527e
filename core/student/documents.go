package student

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
)

const (
	MaxDocumentSize = 5 << 20 // 5 MiB

	photoKey = "photo"
)

var (
	ErrDocumentUploadFailed = errors.New("document upload failed")
	ErrDocumentDeleteFailed = errors.New("document delete failed")

	documentExts = []string{".pdf", ".jpg", ".jpeg", ".png", ".webp"}
	photoExts    = []string{".jpg", ".jpeg", ".png", ".webp", ".avif", ".heic"}

	extMimeTypes = map[string]string{
		".pdf":  "application/pdf",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".avif": "image/avif",
		".heic": "image/heic",
	}
)

// DocumentError reports a failed document transfer. The message of the gateway is kept verbatim.
type DocumentError struct {
	Kind     error // ErrDocumentUploadFailed | ErrDocumentDeleteFailed
	Document string
	Err      error
}

func (err *DocumentError) Error() string {
	return fmt.Sprintf("%v (%s): %v", err.Kind, err.Document, err.Err)
}

func (err *DocumentError) Unwrap() error { return err.Err }

// Is lets errors.Is match the kind sentinel.
func (err *DocumentError) Is(target error) bool { return target == err.Kind }

func (err *DocumentError) UserMessage() string {
	return core.UserMessage(err.Err)
}

// File is a user-picked file.
type File struct {
	Name     string
	MimeType string
	Content  []byte
}

func (f File) Size() int64 { return int64(len(f.Content)) }

// Target tells where document actions go: the staging store until the student exists, the backend after.
type Target struct {
	EntityExists bool
	EntityID     string
}

// MissingQuery is the input of MissingDocuments.
type MissingQuery struct {
	EntityExists bool
	Catalog      []DocumentSpec
	Staged       *StagingStore
	Persisted    []PersistedDocument
}

// DocumentSync routes document actions to the staging store or to the backend.
type DocumentSync struct {
	store    *StagingStore
	previews *PreviewRegistry
	gateway  DocumentGateway
	maxSize  int64
}

// NewDocumentSync creates a DocumentSync. maxSize <= 0 means MaxDocumentSize.
func NewDocumentSync(store *StagingStore, previews *PreviewRegistry, gateway DocumentGateway, maxSize int64) *DocumentSync {
	if maxSize <= 0 {
		maxSize = MaxDocumentSize
	}
	if previews == nil {
		previews = NewPreviewRegistry()
	}
	return &DocumentSync{
		store:    store,
		previews: previews,
		gateway:  gateway,
		maxSize:  maxSize,
	}
}

func (ds *DocumentSync) Store() *StagingStore { return ds.store }

// AcceptedExtensions lists the file extensions accepted for identity.
// A catalog label resolves to its key first.
func AcceptedExtensions(identity string) []string {
	if isPhoto(identity) {
		return photoExts
	}
	return documentExts
}

func isPhoto(identity string) bool {
	if d, ok := LookupDocument(identity); ok && d.Key != "" {
		identity = d.Key
	}
	return identity == photoKey
}

// CheckFile enforces the size ceiling and the accepted extensions of a document slot.
func (ds *DocumentSync) CheckFile(identity, filename string, size int64) error {
	if size > ds.maxSize {
		return core.NewFileConstraintError(identity, fmt.Sprintf("File is too large. Maximum size is %d MB", ds.maxSize>>20))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range AcceptedExtensions(identity) {
		if ext == accepted {
			return nil
		}
	}
	if isPhoto(identity) {
		return core.NewFileConstraintError(identity, "Please upload an image file ("+strings.Join(photoExts, ", ")+")")
	}
	return core.NewFileConstraintError(identity, "Invalid file type. Allowed: "+strings.Join(documentExts, ", "))
}

// HandleUpload stages file or uploads it, depending on whether the student exists.
// Constraint violations never reach either path.
func (ds *DocumentSync) HandleUpload(ctx context.Context, spec DocumentSpec, file File, target Target) error {
	identity := spec.Identity()
	if err := ds.CheckFile(identity, file.Name, file.Size()); err != nil {
		return err
	}
	mimeType := detectMimeType(file)

	if !target.EntityExists {
		ds.store.Add(StagedDocument{
			Key:      spec.Key,
			Label:    spec.Label,
			Filename: file.Name,
			Blob:     file.Content,
			MimeType: mimeType,
			Preview:  ds.previews.Acquire(file.Content),
		})
		return nil
	}

	up := DocumentUpload{
		DocumentName: identity,
		Filename:     file.Name,
		MimeType:     mimeType,
		Content:      file.Content,
	}
	if err := ds.gateway.Upload(ctx, target.EntityID, up); err != nil {
		return &DocumentError{Kind: ErrDocumentUploadFailed, Document: identity, Err: err}
	}
	return nil
}

// HandleDelete removes a staged document or deletes it on the backend.
func (ds *DocumentSync) HandleDelete(ctx context.Context, identity string, target Target) error {
	if !target.EntityExists {
		ds.store.Remove(identity)
		return nil
	}
	if err := ds.gateway.Delete(ctx, target.EntityID, identity); err != nil {
		return &DocumentError{Kind: ErrDocumentDeleteFailed, Document: identity, Err: err}
	}
	return nil
}

// Persisted fetches the backend's documents of a student.
func (ds *DocumentSync) Persisted(ctx context.Context, studentID string) ([]PersistedDocument, error) {
	docs, err := ds.gateway.List(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "listing documents")
	}
	return docs, nil
}

// MissingDocuments returns the catalog entries not yet provided.
func (ds *DocumentSync) MissingDocuments(q MissingQuery) []DocumentSpec {
	catalog := q.Catalog
	if catalog == nil {
		catalog = RequiredDocuments
	}
	if !q.EntityExists {
		staged := q.Staged
		if staged == nil {
			staged = ds.store
		}
		return staged.ComputeMissing(catalog)
	}

	present := make(map[string]bool, len(q.Persisted))
	for _, d := range q.Persisted {
		if strings.TrimSpace(d.URL) != "" {
			present[d.Name] = true
		}
	}
	missing := make([]DocumentSpec, 0, len(catalog))
	for _, c := range catalog {
		if !present[c.Key] {
			missing = append(missing, c)
		}
	}
	return missing
}

func detectMimeType(f File) string {
	if f.MimeType != "" {
		return f.MimeType
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ct, ok := extMimeTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
