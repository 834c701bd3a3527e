package emailsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

type senderMock struct {
	sent []EmailMessage
	err  error
}

func (s *senderMock) Send(_ context.Context, msg EmailMessage) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func testConfig(notify string) *core.Config {
	conf := &core.Config{AppName: "Agent CRM", NotifyEmail: notify}
	conf.API.Timeout = 5 * time.Second
	return conf
}

var (
	agent  = core.Session{UserID: "u1", Name: "Ada", Email: "ada@crm.test", Role: core.RoleAgent}
	result = student.SubmitResult{
		Mode:     student.ModeCreate,
		EntityID: "s-1",
		Uploaded: []student.DocumentSpec{{Key: "passport", Label: "Passport"}},
		Failed: []student.FailedDocument{
			{Document: student.DocumentSpec{Key: "photo", Label: "Passport Size Photo"}, Err: errors.New("boom")},
		},
	}
)

func TestSubmissionNotifier(t *testing.T) {
	sender := new(senderMock)
	n := NewSubmissionNotifier(sender, testConfig("admissions@crm.test"))

	require.NoError(t, n.NotifySubmission(context.Background(), agent, result))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]

	assert.Equal(t, "New student registered (documents missing)", msg.Subject)
	assert.Equal(t, "admissions@crm.test", msg.To[0].Address)
	assert.Equal(t, "ada@crm.test", msg.Cc[0].Address)
	assert.Contains(t, msg.TextContent, "Student created successfully. 1 document(s) uploaded. Please re-upload: Passport Size Photo.")
	assert.Contains(t, msg.TextContent, "Student ID: s-1")
	assert.Contains(t, msg.TextContent, "Submitted by: Ada (agent)")
	assert.Contains(t, msg.TextContent, "  - Passport Size Photo")
	assert.Contains(t, msg.HTMLContent, "<li>Passport</li>")
}

func TestSubmissionNotifier_NoInbox(t *testing.T) {
	sender := new(senderMock)
	n := NewSubmissionNotifier(sender, testConfig(""))
	assert.NoError(t, n.NotifySubmission(context.Background(), agent, result))
	assert.Empty(t, sender.sent)
}

func TestSubmissionNotifier_SendFailure(t *testing.T) {
	sender := &senderMock{err: errors.New("smtp down")}
	n := NewSubmissionNotifier(sender, testConfig("admissions@crm.test"))
	err := n.NotifySubmission(context.Background(), agent, student.SubmitResult{Mode: student.ModeEdit, EntityID: "s-2"})
	assert.Error(t, err)
	assert.Equal(t, "Student profile updated", sender.sent[0].Subject)
}

func TestConsoleSender(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	var out bytes.Buffer
	n := NewSubmissionNotifier(NewConsoleSender(&out, testConfig("")), testConfig("admissions@crm.test"))
	require.NoError(t, n.NotifySubmission(context.Background(), agent, result))

	sent := out.String()
	assert.Contains(t, sent, "Subject: [Agent CRM] New student registered (documents missing)\r\n")
	assert.Contains(t, sent, "To: <admissions@crm.test>\r\n")
	assert.Contains(t, sent, "Date: Thu, 15 Oct 2026 09:00:00 +0000\r\n")
	assert.Contains(t, sent, "text/html")
}

func TestSendgridSender(t *testing.T) {
	var got map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := ioutil.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		if r.URL.Path != endpoint {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	oldHost := host
	host = srv.URL
	defer func() { host = oldHost }()

	conf := testConfig("")
	conf.SendgridApiKey = "SG.key"
	sender := NewSendgridSender(conf)

	msg := EmailMessage{To: []mail.Address{{Address: "admissions@crm.test"}}, Subject: "Hi", TextContent: "hello"}
	require.NoError(t, sender.Send(context.Background(), msg))
	assert.Equal(t, "Bearer SG.key", auth)
	personalizations := got["personalizations"].([]interface{})
	assert.Equal(t, "[Agent CRM] Hi", personalizations[0].(map[string]interface{})["subject"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sender.Send(ctx, msg)
	assert.True(t, errors.Is(err, context.Canceled), "want context.Canceled, got %v", err)

	host = srv.URL + "/nope"
	assert.Error(t, sender.Send(context.Background(), msg))
}
