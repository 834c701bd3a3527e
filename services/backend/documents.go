package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload sends one document as multipart/form-data with the fields `documentName` and `file`.
func (c *Client) Upload(ctx context.Context, id string, up student.DocumentUpload) error {
	body, contentType, err := multipartBody(up)
	if err != nil {
		return core.NewGatewayError("upload document", 0, "", err)
	}
	req := c.newRequest(rest.Post, c.endpoint("students", id, "documents"))
	req.Headers["Content-Type"] = contentType
	req.Body = body

	_, err = c.send(ctx, "upload document", req)
	return err
}

func (c *Client) Delete(ctx context.Context, id, name string) error {
	_, err := c.send(ctx, "delete document", c.newRequest(rest.Delete, c.endpoint("students", id, "documents", name)))
	return err
}

// List returns the documents stored for a student.
func (c *Client) List(ctx context.Context, id string) ([]student.PersistedDocument, error) {
	const op = "list documents"
	env, err := c.send(ctx, op, c.newRequest(rest.Get, c.endpoint("students", id, "documents")))
	if err != nil {
		return nil, err
	}
	docs, err := env.Documents()
	if err != nil {
		return nil, core.NewGatewayError(op, 0, "", err)
	}
	return docs, nil
}

func multipartBody(up student.DocumentUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("documentName", up.DocumentName); err != nil {
		return nil, "", errors.Wrap(err, "writing documentName field")
	}

	mimeType := up.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(up.Filename)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating file part")
	}
	if _, err := part.Write(up.Content); err != nil {
		return nil, "", errors.Wrap(err, "writing file part")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing multipart body")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
