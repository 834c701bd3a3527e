package student_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/f4r424hm3d/Agent-crm-sub003/core/student"
	"github.com/f4r424hm3d/Agent-crm-sub003/tests"
)

func TestDraft_RoundTrip(t *testing.T) {
	fixClock(t)
	w, _ := testutil.NewWizard(t, testutil.NewBackend())
	testutil.AdvanceTo(t, w, StepTestScores)
	require.NoError(t, w.JumpTo(StepEducation))

	var buf bytes.Buffer
	require.NoError(t, WriteDraft(&buf, w.Draft()))
	assert.Contains(t, buf.String(), "mode: create")
	assert.Contains(t, buf.String(), `dob: "2000-01-01"`)

	d, err := ReadDraft(&buf)
	require.NoError(t, err)

	resumed, _ := testutil.NewWizard(t, testutil.NewBackend())
	require.NoError(t, resumed.Resume(d))
	assert.Equal(t, StepEducation, resumed.Step())
	assert.Equal(t, StepTestScores, resumed.MaxVisited())
	assert.Equal(t, w.Record(), resumed.Record())
	assert.NoError(t, resumed.JumpTo(StepTestScores))
}

func TestWizard_Resume(t *testing.T) {
	backend := testutil.NewBackend()

	tests := []struct {
		name           string
		opts           Options
		draft          Draft
		wantErr        bool
		wantStep       int
		wantMaxVisited int
	}{
		{
			name:           "clamps out of range steps",
			draft:          Draft{Mode: ModeCreate, Step: 9, MaxVisited: 12},
			wantStep:       TotalSteps,
			wantMaxVisited: TotalSteps,
		},
		{
			name:           "step never exceeds max visited",
			draft:          Draft{Mode: ModeCreate, Step: 4, MaxVisited: 2},
			wantStep:       2,
			wantMaxVisited: 2,
		},
		{
			name:           "zero values",
			draft:          Draft{Mode: ModeCreate},
			wantStep:       1,
			wantMaxVisited: 1,
		},
		{
			name:    "mode mismatch",
			draft:   Draft{Mode: ModeEdit, EntityID: "stu1", Step: 1, MaxVisited: 1},
			wantErr: true,
		},
		{
			name:    "other student",
			opts:    Options{Mode: ModeEdit, EntityID: "stu1"},
			draft:   Draft{Mode: ModeEdit, EntityID: "stu2", Step: 1, MaxVisited: 1},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := testutil.NewWizard(t, backend, tt.opts)
			err := w.Resume(tt.draft)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resume() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := w.Step(); got != tt.wantStep {
				t.Errorf("Step() = %d, want %d", got, tt.wantStep)
			}
			if got := w.MaxVisited(); got != tt.wantMaxVisited {
				t.Errorf("MaxVisited() = %d, want %d", got, tt.wantMaxVisited)
			}
		})
	}
}

func TestReadDraft_Invalid(t *testing.T) {
	_, err := ReadDraft(bytes.NewBufferString("mode: [create"))
	assert.Error(t, err)

	d, err := ReadDraft(bytes.NewBufferString("mode: create\nstep: 2\n"))
	require.NoError(t, err)
	assert.NotNil(t, d.Record)
}
