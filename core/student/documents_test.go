package student_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	. "github.com/f4r424hm3d/Agent-crm-sub003/core/student"
	"github.com/f4r424hm3d/Agent-crm-sub003/tests"
)

var (
	passport = DocumentSpec{Key: "passport", Label: "Passport"}
	photo    = DocumentSpec{Key: "photo", Label: "Passport Size Photo"}
)

func newSync(backend *testutil.Backend) (*DocumentSync, *PreviewRegistry) {
	reg := NewPreviewRegistry()
	return NewDocumentSync(NewStagingStore(), reg, backend, 0), reg
}

func TestDocumentSync_CheckFile(t *testing.T) {
	ds, _ := newSync(testutil.NewBackend())

	tests := []struct {
		name     string
		identity string
		filename string
		size     int64
		wantErr  bool
	}{
		{name: "pdf", identity: "passport", filename: "passport.PDF", size: 1024},
		{name: "exactly 5 MiB", identity: "passport", filename: "passport.pdf", size: 5 << 20},
		{name: "6 MiB", identity: "passport", filename: "passport.pdf", size: 6 << 20, wantErr: true},
		{name: "docx not accepted", identity: "resume", filename: "cv.docx", size: 10, wantErr: true},
		{name: "no extension", identity: "resume", filename: "cv", size: 10, wantErr: true},
		{name: "generic avif not accepted", identity: "passport", filename: "scan.avif", size: 10, wantErr: true},
		{name: "photo avif", identity: "photo", filename: "me.avif", size: 10},
		{name: "photo heic", identity: "photo", filename: "me.HEIC", size: 10},
		{name: "photo pdf not accepted", identity: "photo", filename: "me.pdf", size: 10, wantErr: true},
		{name: "photo label heic", identity: "Passport Size Photo", filename: "me.heic", size: 10},
		{name: "photo label pdf not accepted", identity: "Passport Size Photo", filename: "me.pdf", size: 10, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ds.CheckFile(tt.identity, tt.filename, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var fErr *core.FileConstraintError
				assert.True(t, errors.As(err, &fErr), "want *core.FileConstraintError, got %T", err)
			}
		})
	}
}

func TestDocumentSync_OversizedFileNeverReachesAGateway(t *testing.T) {
	backend := testutil.NewBackend()
	ds, reg := newSync(backend)
	big := testutil.PDF("passport.pdf", 6<<20)

	for _, target := range []Target{{}, {EntityExists: true, EntityID: "stu001"}} {
		err := ds.HandleUpload(context.Background(), passport, big, target)

		var fErr *core.FileConstraintError
		require.True(t, errors.As(err, &fErr))
		assert.Equal(t, "File is too large. Maximum size is 5 MB", core.UserMessage(err))
	}
	assert.Empty(t, backend.Ops())
	assert.Equal(t, 0, ds.Store().Len())
	assert.Equal(t, 0, reg.Live())
}

func TestDocumentSync_HandleUploadStagesBeforeCreation(t *testing.T) {
	backend := testutil.NewBackend()
	ds, reg := newSync(backend)

	require.NoError(t, ds.HandleUpload(context.Background(), passport, testutil.PDF("p1.pdf", 10), Target{}))
	require.NoError(t, ds.HandleUpload(context.Background(), passport, testutil.PDF("p2.pdf", 20), Target{}))
	require.NoError(t, ds.HandleUpload(context.Background(), photo, File{Name: "me.png", Content: []byte("png")}, Target{}))

	assert.Empty(t, backend.Ops())
	docs := ds.Store().List()
	require.Len(t, docs, 2)
	assert.Equal(t, "p2.pdf", docs[0].Filename)
	assert.Equal(t, "image/png", docs[1].MimeType)
	assert.Equal(t, 2, reg.Live())

	require.NoError(t, ds.HandleDelete(context.Background(), "passport", Target{}))
	assert.Equal(t, 1, ds.Store().Len())
	assert.Equal(t, 1, reg.Live())
	assert.Empty(t, backend.Ops())
}

func TestDocumentSync_HandleUploadAfterCreation(t *testing.T) {
	backend := testutil.NewBackend()
	ds, _ := newSync(backend)
	target := Target{EntityExists: true, EntityID: "stu001"}

	require.NoError(t, ds.HandleUpload(context.Background(), passport, testutil.PDF("p.pdf", 10), target))
	assert.Equal(t, []string{"upload"}, backend.Ops())
	assert.Equal(t, "passport", backend.CallsOf("upload")[0].Document)
	assert.Equal(t, 0, ds.Store().Len())

	backend.FailUpload["photo"] = core.NewGatewayError("upload document", 413, "File too large for storage", nil)
	err := ds.HandleUpload(context.Background(), photo, File{Name: "me.jpg", Content: []byte("jpg")}, target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDocumentUploadFailed))
	assert.Equal(t, "File too large for storage", core.UserMessage(err))
	assert.Equal(t, 0, ds.Store().Len(), "failed uploads must not touch local state")
}

func TestDocumentSync_HandleDeleteAfterCreation(t *testing.T) {
	backend := testutil.NewBackend()
	ds, _ := newSync(backend)
	target := Target{EntityExists: true, EntityID: "stu001"}

	require.NoError(t, ds.HandleDelete(context.Background(), "passport", target))
	assert.Equal(t, "passport", backend.CallsOf("delete")[0].Document)

	backend.FailDelete["photo"] = errors.New("connection reset")
	err := ds.HandleDelete(context.Background(), "photo", target)
	assert.True(t, errors.Is(err, ErrDocumentDeleteFailed))
	assert.False(t, errors.Is(err, ErrDocumentUploadFailed))
	assert.Equal(t, core.ErrGeneric, core.UserMessage(err))
}

func TestDocumentSync_MissingDocuments(t *testing.T) {
	ds, reg := newSync(testutil.NewBackend())
	catalog := []DocumentSpec{passport, photo, {Key: "resume", Label: "Resume / CV"}}

	staged := NewStagingStore()
	staged.Add(StagedDocument{Key: "passport", Label: "Passport", Preview: reg.Acquire(nil)})
	got := ds.MissingDocuments(MissingQuery{Catalog: catalog, Staged: staged})
	assert.Equal(t, []DocumentSpec{photo, {Key: "resume", Label: "Resume / CV"}}, got)

	persisted := []PersistedDocument{
		{Name: "passport", URL: "https://files.test/passport.pdf"},
		{Name: "photo", URL: "  "}, // placeholder without a file
		{Name: "unrelated", URL: "https://files.test/x.pdf"},
	}
	got = ds.MissingDocuments(MissingQuery{EntityExists: true, Catalog: catalog, Persisted: persisted})
	assert.Equal(t, []DocumentSpec{photo, {Key: "resume", Label: "Resume / CV"}}, got)

	got = ds.MissingDocuments(MissingQuery{EntityExists: true, Persisted: nil})
	assert.Equal(t, RequiredDocuments, got, "defaults to the required catalog")
}
