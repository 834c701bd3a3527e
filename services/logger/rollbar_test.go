package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	conf := &core.Config{Env: "TEST", Debug: debug}
	return NewRollbarLogger(log.New(&buf, "", 0), conf), &buf
}

func TestRollbarLogger_Print(t *testing.T) {
	l, buf := newTestLogger(true)
	sess := core.Session{Token: "secret-token", UserID: "u1", Role: core.RoleAgent}

	l.Error("saving student", errors.New("connection refused"), map[string]interface{}{"student": "s1"}, sess)

	out := buf.String()
	assert.Contains(t, out, "[ERROR] saving student")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "student:s1")
	assert.Contains(t, out, "user=u1 role=agent")
	assert.NotContains(t, out, "secret-token")
}

func TestRollbarLogger_DebugOnlyInDebugMode(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Debug("student changes")
	assert.Empty(t, buf.String())

	l.Info("Student created successfully.")
	assert.Contains(t, buf.String(), "[INFO] Student created successfully.")

	l, buf = newTestLogger(true)
	l.Debug("student changes")
	assert.Contains(t, buf.String(), "[DEBUG] student changes")
}

func TestRollbarLogger_Prepare(t *testing.T) {
	l, _ := newTestLogger(true)
	err := errors.New("boom")
	args := l.prepare("msg", []interface{}{err, core.Session{UserID: "u1"}, core.Session{UserID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
