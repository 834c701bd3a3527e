package backend

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

type received struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
	Form   map[string]string
	File   []byte
	Type   string
}

// fakeAPI serves the CRM API with canned replies and records what it received.
type fakeAPI struct {
	mu       sync.Mutex
	received []received
}

func (api *fakeAPI) last() received {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.received[len(api.received)-1]
}

func (api *fakeAPI) record(c echo.Context, r received) {
	r.Method = c.Request().Method
	r.Path = c.Request().URL.Path
	r.Auth = c.Request().Header.Get("Authorization")
	api.mu.Lock()
	api.received = append(api.received, r)
	api.mu.Unlock()
}

func (api *fakeAPI) jsonHandler(code int, reply string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body map[string]interface{}
		if data, _ := ioutil.ReadAll(c.Request().Body); len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
		api.record(c, received{Body: body})
		return c.JSONBlob(code, []byte(reply))
	}
}

func (api *fakeAPI) uploadHandler(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "No file uploaded"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	content, _ := ioutil.ReadAll(f)

	api.record(c, received{
		Form: map[string]string{"documentName": c.FormValue("documentName"), "filename": fh.Filename},
		File: content,
		Type: fh.Header.Get("Content-Type"),
	})
	if c.FormValue("documentName") == "resume" {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"success": false, "message": "File too large for storage"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Document uploaded"})
}

func setup(t *testing.T) (*Client, *fakeAPI) {
	api := new(fakeAPI)
	e := echo.New()
	g := e.Group("/api")
	g.POST("/students", api.jsonHandler(http.StatusCreated, `{"success":true,"data":{"student":{"_id":"s-1"}}}`))
	g.POST("/dup/students", api.jsonHandler(http.StatusConflict, `{"success":false,"message":"Email already exists"}`))
	g.PUT("/students/:id", api.jsonHandler(http.StatusOK, `{"success":true,"message":"Student updated"}`))
	g.PUT("/students/locked", api.jsonHandler(http.StatusOK, `{"success":false,"message":"Student is locked"}`))
	g.GET("/students/:id", api.jsonHandler(http.StatusOK, `{"success":true,"data":{"student":{
		"_id":"s-1","firstName":"Amara","dateOfBirth":"2000-01-01T00:00:00.000Z","gradeAverage":78.5,"visaRefusal":false,
		"documents":[{"name":"passport","url":"https://files.test/p.pdf"}]}}}`))
	g.GET("/students/missing", api.jsonHandler(http.StatusNotFound, `{"success":false,"message":"Student not found"}`))
	g.GET("/students/:id/documents", api.jsonHandler(http.StatusOK, `{"success":true,"data":{"documents":[{"name":"passport","url":"https://files.test/p.pdf","verified":true}]}}`))
	g.POST("/students/:id/documents", api.uploadHandler)
	g.DELETE("/students/:id/documents/:name", api.jsonHandler(http.StatusOK, `{"success":true}`))
	g.GET("/slow", func(c echo.Context) error {
		time.Sleep(200 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conf := &core.Config{}
	conf.API.BaseURL = srv.URL + "/api/"
	conf.API.Timeout = 5 * time.Second
	return NewClient(conf, core.Session{Token: "tok"}), api
}

func TestClient_Create(t *testing.T) {
	c, api := setup(t)
	rec := student.WireRecord{FirstName: "Amara", Phone: "9876543210", MaritalStatus: "Single", DateOfBirth: null.StringFrom("2000-01-01")}

	id, err := c.Create(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "s-1", id)

	got := api.last()
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/students", got.Path)
	assert.Equal(t, "Bearer tok", got.Auth)
	assert.Equal(t, "9876543210", got.Body["phone"])
	assert.Equal(t, "2000-01-01", got.Body["dateOfBirth"])
	assert.Contains(t, got.Body, "gender")
	assert.Nil(t, got.Body["gender"], "empty nullable fields are sent as null")
	assert.NotContains(t, got.Body, "mobile")
}

func TestClient_Errors(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	t.Run("non-2xx keeps the server message", func(t *testing.T) {
		c := *c
		c.baseURL += "/dup"
		_, err := c.Create(ctx, student.WireRecord{})
		var gErr *core.GatewayError
		require.True(t, errors.As(err, &gErr), "want *core.GatewayError, got %v", err)
		assert.Equal(t, http.StatusConflict, gErr.Status)
		assert.Equal(t, "Email already exists", core.UserMessage(err))
	})

	t.Run("success false on 200", func(t *testing.T) {
		err := c.Update(ctx, "locked", student.WireRecord{})
		require.Error(t, err)
		assert.Equal(t, "Student is locked", core.UserMessage(err))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.GetByID(ctx, "missing")
		assert.Equal(t, "Student not found", core.UserMessage(err))
	})

	t.Run("unreachable server", func(t *testing.T) {
		conf := &core.Config{}
		conf.API.BaseURL = "http://127.0.0.1:1"
		conf.API.Timeout = time.Second
		_, err := NewClient(conf, core.Session{}).GetByID(ctx, "s-1")
		var gErr *core.GatewayError
		require.True(t, errors.As(err, &gErr), "want *core.GatewayError, got %v", err)
		assert.Equal(t, 0, gErr.Status)
		assert.Equal(t, core.ErrGeneric, core.UserMessage(err))
	})

	t.Run("timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := c.send(ctx, "slow", c.newRequest("GET", c.endpoint("slow")))
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "want context.DeadlineExceeded, got %v", err)
		assert.Less(t, int64(time.Since(start)), int64(150*time.Millisecond))
	})
}

func TestClient_UpdateAndGet(t *testing.T) {
	c, api := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx, "s-1", student.WireRecord{City: "Delhi"}))
	got := api.last()
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/api/students/s-1", got.Path)
	assert.Equal(t, "Delhi", got.Body["city"])

	s, err := c.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, student.Text("s-1"), s.ID)
	assert.Equal(t, "Amara", s.FirstName)
	assert.Equal(t, student.Text("78.5"), s.GradeAverage)
	assert.Equal(t, student.Text("false"), s.VisaRefusal)
	require.Len(t, s.Documents, 1)
}

func TestClient_Documents(t *testing.T) {
	c, api := setup(t)
	ctx := context.Background()

	up := student.DocumentUpload{DocumentName: "passport", Filename: `my "passport".pdf`, MimeType: "application/pdf", Content: []byte("%PDF-1.4")}
	require.NoError(t, c.Upload(ctx, "s-1", up))
	got := api.last()
	assert.Equal(t, "/api/students/s-1/documents", got.Path)
	assert.Equal(t, "passport", got.Form["documentName"])
	assert.Equal(t, `my "passport".pdf`, got.Form["filename"])
	assert.Equal(t, "application/pdf", got.Type)
	assert.Equal(t, []byte("%PDF-1.4"), got.File)

	err := c.Upload(ctx, "s-1", student.DocumentUpload{DocumentName: "resume", Filename: "cv.pdf", Content: []byte("x")})
	assert.Equal(t, "File too large for storage", core.UserMessage(err))

	require.NoError(t, c.Delete(ctx, "s-1", "Passport Size Photo"))
	got = api.last()
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "/api/students/s-1/documents/Passport Size Photo", got.Path)

	docs, err := c.List(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "passport", docs[0].Name)
	require.NotNil(t, docs[0].Verified)
	assert.True(t, *docs[0].Verified)
}
