package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

// Call records one gateway invocation.
type Call struct {
	Op       string // create | update | get | upload | delete | list
	EntityID string
	Document string
	Record   student.WireRecord
}

// Backend is an in-memory EntityGateway + DocumentGateway that records every call.
type Backend struct {
	mu sync.Mutex

	Calls     []Call
	Students  map[string]student.Student
	Documents map[string][]student.PersistedDocument

	CreateErr  error
	UpdateErr  error
	FailUpload map[string]error // by document name
	FailDelete map[string]error

	// Hook runs at the start of every call, e.g. to close a wizard mid-submit.
	Hook func(op string)

	nextID int
}

var (
	_ student.EntityGateway   = (*Backend)(nil)
	_ student.DocumentGateway = (*Backend)(nil)
)

func NewBackend() *Backend {
	return &Backend{
		Students:   make(map[string]student.Student),
		Documents:  make(map[string][]student.PersistedDocument),
		FailUpload: make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

func (b *Backend) record(c Call) {
	if b.Hook != nil {
		b.Hook(c.Op)
	}
	b.mu.Lock()
	b.Calls = append(b.Calls, c)
	b.mu.Unlock()
}

// Ops returns the operations called so far, in order.
func (b *Backend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]string, 0, len(b.Calls))
	for _, c := range b.Calls {
		ops = append(ops, c.Op)
	}
	return ops
}

// CallsOf returns the calls of a given operation.
func (b *Backend) CallsOf(op string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var calls []Call
	for _, c := range b.Calls {
		if c.Op == op {
			calls = append(calls, c)
		}
	}
	return calls
}

func (b *Backend) Create(_ context.Context, rec student.WireRecord) (string, error) {
	b.record(Call{Op: "create", Record: rec})
	if b.CreateErr != nil {
		return "", b.CreateErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := fmt.Sprintf("stu%03d", b.nextID)
	b.Students[id] = student.Student{ID: student.Text(id), FirstName: rec.FirstName, LastName: rec.LastName, Email: rec.Email}
	return id, nil
}

func (b *Backend) Update(_ context.Context, id string, rec student.WireRecord) error {
	b.record(Call{Op: "update", EntityID: id, Record: rec})
	return b.UpdateErr
}

func (b *Backend) GetByID(_ context.Context, id string) (student.Student, error) {
	b.record(Call{Op: "get", EntityID: id})
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.Students[id]
	if !ok {
		return student.Student{}, core.NewGatewayError("get student", 404, "Student not found", nil)
	}
	return s, nil
}

func (b *Backend) Upload(_ context.Context, id string, up student.DocumentUpload) error {
	b.record(Call{Op: "upload", EntityID: id, Document: up.DocumentName})
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.FailUpload[up.DocumentName]; err != nil {
		return err
	}
	b.Documents[id] = append(b.Documents[id], student.PersistedDocument{
		Name: up.DocumentName,
		URL:  "https://files.test/" + id + "/" + up.Filename,
	})
	return nil
}

func (b *Backend) Delete(_ context.Context, id, name string) error {
	b.record(Call{Op: "delete", EntityID: id, Document: name})
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.FailDelete[name]; err != nil {
		return err
	}
	kept := b.Documents[id][:0]
	for _, d := range b.Documents[id] {
		if d.Name != name {
			kept = append(kept, d)
		}
	}
	b.Documents[id] = kept
	return nil
}

func (b *Backend) List(_ context.Context, id string) ([]student.PersistedDocument, error) {
	b.record(Call{Op: "list", EntityID: id})
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := make([]student.PersistedDocument, len(b.Documents[id]))
	copy(docs, b.Documents[id])
	return docs, nil
}

// Entry is one logged message.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger that keeps its entries in memory.
type Logger struct {
	mu      sync.Mutex
	Entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

// Levels returns the number of entries per level.
func (l *Logger) Levels() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range l.Entries {
		counts[e.Level]++
	}
	return counts
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// ValidRecord returns a record passing every step gate.
func ValidRecord() student.FormRecord {
	return student.FormRecord{
		"firstName":        "Amara",
		"lastName":         "Okafor",
		"email":            "amara@test.cd",
		"mobile":           "9876543210",
		"c_code":           "+91",
		"dob":              "2000-01-01",
		"gender":           "Female",
		"nationality":      "Indian",
		"passportNumber":   "P1234567",
		"passportExpiry":   "2999-12-31",
		"home_address":     "12 Ring Road",
		"city":             "Delhi",
		"state":            "Delhi",
		"country":          "India",
		"zipcode":          "110001",
		"educationCountry": "India",
		"highestLevel":     "Bachelors",
		"gradingScheme":    "Percentage",
		"gradeAverage":     "78.5",
		"examType":         "IELTS",
		"examDate":         "2020-06-15",
		"listeningScore":   "7.5",
		"readingScore":     "7",
		"writingScore":     "6.5",
		"speakingScore":    "7",
		"overallScore":     "7",
		"visaRefusal":      "No",
		"studyPermit":      "No",
	}
}

// NewWizard builds a create-mode wizard over backend with an in-memory logger.
func NewWizard(t *testing.T, backend *Backend, opts ...student.Options) (*student.Wizard, *Logger) {
	t.Helper()
	var o student.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	logger := new(Logger)
	w, err := student.New(student.Deps{Entities: backend, Documents: backend, Logger: logger}, o)
	if err != nil {
		t.Fatalf("student.New() failed: %v", err)
	}
	return w, logger
}

// Fill sets every field of record on w.
func Fill(w *student.Wizard, record student.FormRecord) {
	for k, v := range record {
		w.SetField(k, v)
	}
}

// AdvanceTo fills w with a valid record and walks to step.
func AdvanceTo(t *testing.T, w *student.Wizard, step int) {
	t.Helper()
	Fill(w, ValidRecord())
	for w.Step() < step {
		if err := w.Next(); err != nil {
			t.Fatalf("Next() from step %d failed: %v", w.Step(), err)
		}
	}
}

// PDF returns a small file with a .pdf name.
func PDF(name string, size int) student.File {
	return student.File{Name: name, MimeType: "application/pdf", Content: make([]byte, size)}
}
