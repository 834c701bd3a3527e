package student

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var errBadDraft = errors.New("draft does not match this wizard")

// Draft is a resumable snapshot of a wizard session. Staged files are not part of it.
type Draft struct {
	Mode       Mode       `yaml:"mode"`
	EntityID   string     `yaml:"entityId,omitempty"`
	Step       int        `yaml:"step"`
	MaxVisited int        `yaml:"maxVisited"`
	Record     FormRecord `yaml:"record"`
}

// Draft snapshots the current step and record.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Draft{
		Mode:       w.opts.Mode,
		EntityID:   w.entityID,
		Step:       w.step,
		MaxVisited: w.maxVisited,
		Record:     w.record.Clone(),
	}
}

// Resume restores a draft taken from a wizard of the same mode (and student, in edit mode).
// The step is clamped to the visited range; errors are recomputed lazily by the next gate.
func (w *Wizard) Resume(d Draft) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateEditing {
		return ErrNotEditing
	}
	if d.Mode != w.opts.Mode || (w.opts.Mode == ModeEdit && d.EntityID != w.entityID) {
		return errBadDraft
	}
	total := w.gate.TotalSteps()
	maxVisited := clamp(d.MaxVisited, 1, total)
	w.maxVisited = maxVisited
	w.step = clamp(d.Step, 1, maxVisited)
	w.record = d.Record.Clone()
	w.errs = make(ErrorMap)
	return nil
}

// WriteDraft encodes d as YAML.
func WriteDraft(out io.Writer, d Draft) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	return errors.Wrap(enc.Close(), "encoding draft")
}

// ReadDraft decodes a YAML draft.
func ReadDraft(in io.Reader) (Draft, error) {
	var d Draft
	if err := yaml.NewDecoder(in).Decode(&d); err != nil {
		return Draft{}, errors.Wrap(err, "decoding draft")
	}
	if d.Record == nil {
		d.Record = make(FormRecord)
	}
	return d, nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
