package backend

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

var errNoID = errors.New("response carries no student id")

// envelope is the `{success, message, data}` wrapper of every API reply.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(body string) (*envelope, error) {
	if strings.TrimSpace(body) == "" {
		return &envelope{}, nil
	}
	env := new(envelope)
	if err := json.Unmarshal([]byte(body), env); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	return env, nil
}

type idHolder struct {
	MongoID student.Text `json:"_id"`
	ID      student.Text `json:"id"`
}

// StudentID finds the created id: data.student._id, data.student.id, data._id, then data.id.
func (env *envelope) StudentID() (string, error) {
	var data struct {
		idHolder
		Student *idHolder `json:"student"`
	}
	if err := unmarshalObject(env.Data, &data); err != nil {
		return "", err
	}
	for _, id := range []student.Text{
		nested(data.Student, func(h *idHolder) student.Text { return h.MongoID }),
		nested(data.Student, func(h *idHolder) student.Text { return h.ID }),
		data.MongoID,
		data.ID,
	} {
		if id := strings.TrimSpace(string(id)); id != "" {
			return id, nil
		}
	}
	return "", errNoID
}

func nested(h *idHolder, get func(*idHolder) student.Text) student.Text {
	if h == nil {
		return ""
	}
	return get(h)
}

// Student reads data.student, falling back to data itself.
func (env *envelope) Student() (student.Student, error) {
	var wrapped struct {
		Student json.RawMessage `json:"student"`
	}
	if err := unmarshalObject(env.Data, &wrapped); err != nil {
		return student.Student{}, err
	}
	raw := env.Data
	if isObject(wrapped.Student) {
		raw = wrapped.Student
	}

	var s student.Student
	if err := json.Unmarshal(raw, &s); err != nil {
		return student.Student{}, errors.Wrap(err, "decoding student")
	}
	if s.ID == "" {
		var h idHolder
		_ = json.Unmarshal(raw, &h)
		s.ID = h.ID
	}
	return s, nil
}

// Documents reads the document list: data as an array, data.documents or data.student.documents.
func (env *envelope) Documents() ([]student.PersistedDocument, error) {
	var docs []student.PersistedDocument
	if isArray(env.Data) {
		if err := json.Unmarshal(env.Data, &docs); err != nil {
			return nil, errors.Wrap(err, "decoding documents")
		}
		return docs, nil
	}

	var data struct {
		Documents []student.PersistedDocument `json:"documents"`
		Student   *struct {
			Documents []student.PersistedDocument `json:"documents"`
		} `json:"student"`
	}
	if err := unmarshalObject(env.Data, &data); err != nil {
		return nil, err
	}
	switch {
	case data.Documents != nil:
		docs = data.Documents
	case data.Student != nil:
		docs = data.Student.Documents
	}
	return docs, nil
}

func unmarshalObject(raw json.RawMessage, v interface{}) error {
	if !isObject(raw) {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, v), "decoding response data")
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
