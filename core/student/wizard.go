package student

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
)

// State of the wizard.
type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Mode tells whether the wizard creates a new student or edits an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

var (
	ErrFixErrors      = errors.New("Please fix the errors before continuing")
	ErrSessionClosed  = errors.New("wizard session closed")
	ErrNotEditing     = errors.New("wizard is not editing")
	ErrNoNextStep     = errors.New("already on the last step")
	ErrNoPreviousStep = errors.New("already on the first step")
	ErrStepNotReached = errors.New("step not reached yet")
	ErrNotFinalStep   = errors.New("submit is only available on the last step")
)

type (
	// Metrics records submission outcomes. Optional.
	Metrics interface {
		ObserveSubmission(mode string, err error)
		ObserveDocument(op string, err error)
	}

	// Notifier is told about every completed submission. Optional.
	Notifier interface {
		NotifySubmission(ctx context.Context, sess core.Session, res SubmitResult) error
	}

	Deps struct {
		Entities  EntityGateway
		Documents DocumentGateway
		Logger    core.Logger
		Metrics   Metrics
		Notifier  Notifier
		Previews  *PreviewRegistry
	}

	Options struct {
		Mode            Mode
		EntityID        string // required in edit mode
		Session         core.Session
		MaxDocumentSize int64
		Gate            *StepGate
	}

	// FailedDocument is a staged document whose upload failed after the student was created.
	FailedDocument struct {
		Document DocumentSpec
		Err      error
	}

	// SubmitResult summarizes a successful submission, possibly with failed document uploads.
	SubmitResult struct {
		Mode     Mode
		EntityID string
		Uploaded []DocumentSpec
		Failed   []FailedDocument
	}
)

// PartialSuccess reports whether some documents need to be uploaded again.
func (res SubmitResult) PartialSuccess() bool { return len(res.Failed) > 0 }

// Summary is the user-facing outcome of the submission.
func (res SubmitResult) Summary() string {
	var b strings.Builder
	if res.Mode == ModeEdit {
		b.WriteString("Student updated successfully.")
	} else {
		b.WriteString("Student created successfully.")
	}
	if n := len(res.Uploaded); n > 0 {
		fmt.Fprintf(&b, " %d document(s) uploaded.", n)
	}
	if res.PartialSuccess() {
		names := make([]string, 0, len(res.Failed))
		for _, f := range res.Failed {
			names = append(names, f.Document.Label)
		}
		fmt.Fprintf(&b, " Please re-upload: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

// Wizard drives the registration steps and the final submission.
// One Wizard per session; it owns its FormRecord and staging store.
type Wizard struct {
	mu sync.Mutex

	deps  Deps
	opts  Options
	gate  *StepGate
	store *StagingStore
	docs  *DocumentSync

	step       int
	maxVisited int
	state      State
	record     FormRecord
	errs       ErrorMap
	entityID   string
	created    bool
	original   *WireRecord // edit mode: record as fetched
	generation int
}

// New returns a wizard on step 1 with an empty record.
func New(deps Deps, opts Options) (*Wizard, error) {
	if opts.Mode == "" {
		opts.Mode = ModeCreate
	}
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Entities, "Entities"),
		vala.IsNotNil(deps.Documents, "Documents"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "checking wizard dependencies")
	}
	if opts.Mode == ModeEdit {
		if err := vala.BeginValidation().Validate(vala.StringNotEmpty(opts.EntityID, "EntityID")).Check(); err != nil {
			return nil, errors.Wrap(err, "checking edit options")
		}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Previews == nil {
		deps.Previews = NewPreviewRegistry()
	}
	gate := opts.Gate
	if gate == nil {
		gate = NewStepGate()
	}

	store := NewStagingStore()
	w := &Wizard{
		deps:       deps,
		opts:       opts,
		gate:       gate,
		store:      store,
		docs:       NewDocumentSync(store, deps.Previews, deps.Documents, opts.MaxDocumentSize),
		step:       1,
		maxVisited: 1,
		state:      StateEditing,
		record:     make(FormRecord),
		errs:       make(ErrorMap),
	}
	if opts.Mode == ModeEdit {
		w.entityID = opts.EntityID
		w.created = true
	}
	return w, nil
}

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) MaxVisited() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maxVisited
}

func (w *Wizard) TotalSteps() int { return w.gate.TotalSteps() }
func (w *Wizard) Gate() *StepGate { return w.gate }
func (w *Wizard) Mode() Mode      { return w.opts.Mode }

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Wizard) EntityID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entityID
}

// Errors returns a copy of the current error map.
func (w *Wizard) Errors() ErrorMap {
	w.mu.Lock()
	defer w.mu.Unlock()
	errs := make(ErrorMap, len(w.errs))
	errs.Merge(w.errs)
	return errs
}

// Record returns a copy of the form record.
func (w *Wizard) Record() FormRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.record.Clone()
}

// SetField stores value and re-validates that field only.
func (w *Wizard) SetField(name string, value interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.record[name] = value
	if msg := w.gate.ValidateField(name, w.record); msg != "" {
		w.errs[name] = msg
	} else {
		delete(w.errs, name)
	}
}

// Next advances when the current step is valid. Otherwise the step's errors are surfaced and a
// *core.ValidationError is returned.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateEditing {
		return ErrNotEditing
	}
	if w.step >= w.gate.TotalSteps() {
		return ErrNoNextStep
	}
	if errs := w.validateSteps(w.step); len(errs) > 0 {
		return core.NewValidationError(ErrFixErrors, core.FieldErrorsFromMap(errs)...)
	}
	w.step++
	if w.step > w.maxVisited {
		w.maxVisited = w.step
	}
	return nil
}

// Previous goes back one step without validating; errors of the step left behind are kept.
func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateEditing {
		return ErrNotEditing
	}
	if w.step <= 1 {
		return ErrNoPreviousStep
	}
	w.step--
	return nil
}

// JumpTo moves to an already visited step (tab navigation).
func (w *Wizard) JumpTo(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateEditing {
		return ErrNotEditing
	}
	if step < 1 || step > w.maxVisited {
		return ErrStepNotReached
	}
	w.step = step
	return nil
}

// validateSteps re-validates the given steps, replacing their entries in the error map.
// Must be called with w.mu held.
func (w *Wizard) validateSteps(steps ...int) ErrorMap {
	all := make(ErrorMap)
	for _, s := range steps {
		for _, field := range w.gate.FieldsForStep(s) {
			delete(w.errs, field)
		}
		all.Merge(w.gate.ValidateStep(s, w.record))
	}
	w.errs.Merge(all)
	return all
}

// LoadEntity pre-populates the record from the backend (edit mode). Every step becomes reachable.
func (w *Wizard) LoadEntity(ctx context.Context) error {
	w.mu.Lock()
	gen, id := w.generation, w.entityID
	w.mu.Unlock()
	if w.opts.Mode != ModeEdit {
		return nil
	}

	s, err := w.deps.Entities.GetByID(ctx, id)
	if err != nil {
		w.deps.Logger.Error("fetching student", errors.Wrap(err, "fetching student"), w.opts.Session)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return ErrSessionClosed
	}
	w.record = FromStudent(s)
	orig := ToWire(w.record)
	w.original = &orig
	w.maxVisited = w.gate.TotalSteps()
	w.errs = make(ErrorMap)
	return nil
}

// UploadDocument stages file before the student exists, uploads it afterwards.
func (w *Wizard) UploadDocument(ctx context.Context, spec DocumentSpec, file File) error {
	target := w.target()
	err := w.docs.HandleUpload(ctx, spec, file, target)
	if target.EntityExists {
		w.deps.Metrics.ObserveDocument("upload", err)
	}
	if err != nil {
		w.logDocumentError(err)
	}
	return err
}

// DeleteDocument removes a staged document, or deletes it on the backend once the student exists.
func (w *Wizard) DeleteDocument(ctx context.Context, identity string) error {
	target := w.target()
	err := w.docs.HandleDelete(ctx, identity, target)
	if target.EntityExists {
		w.deps.Metrics.ObserveDocument("delete", err)
	}
	if err != nil {
		w.logDocumentError(err)
	}
	return err
}

// StagedDocuments lists the documents waiting for the student to be created.
func (w *Wizard) StagedDocuments() []StagedDocument {
	return w.store.List()
}

// MissingDocuments lists the required documents not provided yet, staged or persisted.
func (w *Wizard) MissingDocuments(ctx context.Context) ([]DocumentSpec, error) {
	target := w.target()
	q := MissingQuery{EntityExists: target.EntityExists, Catalog: RequiredDocuments, Staged: w.store}
	if target.EntityExists {
		persisted, err := w.docs.Persisted(ctx, target.EntityID)
		if err != nil {
			return nil, err
		}
		q.Persisted = persisted
	}
	return w.docs.MissingDocuments(q), nil
}

func (w *Wizard) target() Target {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Target{EntityExists: w.created, EntityID: w.entityID}
}

func (w *Wizard) logDocumentError(err error) {
	var fErr *core.FileConstraintError
	if errors.As(err, &fErr) {
		return // local, shown inline
	}
	w.deps.Logger.Error("document action failed", err, w.opts.Session)
}

// FinalSubmit creates (or updates) the student, then uploads the staged documents one at a time.
// Document failures do not fail the submission; they are listed in the result.
func (w *Wizard) FinalSubmit(ctx context.Context) (*SubmitResult, error) {
	w.mu.Lock()
	if w.state != StateEditing {
		w.mu.Unlock()
		return nil, ErrNotEditing
	}
	last := w.gate.TotalSteps()
	if w.step != last {
		w.mu.Unlock()
		return nil, ErrNotFinalStep
	}
	steps := []int{last}
	if !w.created {
		steps = make([]int, 0, last)
		for s := 1; s <= last; s++ {
			steps = append(steps, s)
		}
	}
	if errs := w.validateSteps(steps...); len(errs) > 0 {
		w.mu.Unlock()
		return nil, core.NewValidationError(ErrFixErrors, core.FieldErrorsFromMap(errs)...)
	}

	w.state = StateSubmitting
	gen, created, id := w.generation, w.created, w.entityID
	rec := ToWire(w.record)
	w.mu.Unlock()

	var err error
	mode := string(w.opts.Mode)
	if created {
		err = w.deps.Entities.Update(ctx, id, rec)
	} else {
		id, err = w.deps.Entities.Create(ctx, rec)
	}
	w.deps.Metrics.ObserveSubmission(mode, err)

	if err != nil {
		var gErr *core.GatewayError
		if !errors.As(err, &gErr) {
			err = core.NewGatewayError("save student", 0, "", err)
		}
		w.deps.Logger.Error("saving student", errors.Wrap(err, "saving student"), w.opts.Session)

		w.mu.Lock()
		defer w.mu.Unlock()
		if gen != w.generation {
			return nil, ErrSessionClosed
		}
		w.state = StateEditing
		return nil, err
	}

	res := SubmitResult{Mode: w.opts.Mode, EntityID: id}
	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return &res, ErrSessionClosed
	}
	w.created = true
	w.entityID = id
	w.mu.Unlock()

	if !created {
		res.Uploaded, res.Failed = w.flush(ctx, gen, id)
	} else {
		w.logChanges(rec)
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return &res, ErrSessionClosed
	}
	w.state = StateDone
	w.mu.Unlock()

	if res.PartialSuccess() {
		w.deps.Logger.Warn(res.Summary(), map[string]interface{}{"student": id, "failed": len(res.Failed)}, w.opts.Session)
	} else {
		w.deps.Logger.Info(res.Summary(), map[string]interface{}{"student": id}, w.opts.Session)
	}
	if w.deps.Notifier != nil {
		if err := w.deps.Notifier.NotifySubmission(ctx, w.opts.Session, res); err != nil {
			w.deps.Logger.Warn("notifying submission", err, w.opts.Session)
		}
	}
	return &res, nil
}

// flush uploads the staged documents in insertion order, one request at a time.
// Uploaded entries leave the store; failed ones stay until the session is closed.
// It stops once the session is closed; once ctx is done the rest are reported as failed.
func (w *Wizard) flush(ctx context.Context, gen int, id string) (uploaded []DocumentSpec, failed []FailedDocument) {
	for _, doc := range w.store.List() {
		if w.closed(gen) {
			return uploaded, failed
		}
		spec := doc.Spec()
		if err := ctx.Err(); err != nil {
			dErr := &DocumentError{Kind: ErrDocumentUploadFailed, Document: spec.Identity(), Err: err}
			failed = append(failed, FailedDocument{Document: spec, Err: dErr})
			continue
		}
		up := DocumentUpload{
			DocumentName: spec.Identity(),
			Filename:     doc.Filename,
			MimeType:     doc.MimeType,
			Content:      doc.Blob,
		}
		err := w.deps.Documents.Upload(ctx, id, up)
		w.deps.Metrics.ObserveDocument("upload", err)
		if err != nil {
			dErr := &DocumentError{Kind: ErrDocumentUploadFailed, Document: spec.Identity(), Err: err}
			w.deps.Logger.Error("uploading staged document", dErr, w.opts.Session)
			failed = append(failed, FailedDocument{Document: spec, Err: dErr})
			continue
		}
		uploaded = append(uploaded, spec)
		w.store.Remove(spec.Identity())
	}
	return uploaded, failed
}

func (w *Wizard) closed(gen int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return gen != w.generation
}

// logChanges logs a diff of the fields changed by an update.
func (w *Wizard) logChanges(rec WireRecord) {
	w.mu.Lock()
	orig := w.original
	w.mu.Unlock()
	if orig == nil {
		return
	}

	before, err1 := json.MarshalIndent(orig, "", "  ")
	after, err2 := json.MarshalIndent(rec, "", "  ")
	if err1 != nil || err2 != nil {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "before",
		ToFile:   "after",
		Context:  0,
	})
	if err != nil || diff == "" {
		return
	}
	w.deps.Logger.Debug("student changes\n"+diff, w.opts.Session)

	w.mu.Lock()
	w.original = &rec
	w.mu.Unlock()
}

// Close ends the session: staged previews are released and late results of in-flight calls are discarded.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.store.Clear()
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmission(string, error) {}
func (noopMetrics) ObserveDocument(string, error)   {}
