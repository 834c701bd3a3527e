package emailsvc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

// SubmissionNotifier mails the outcome of every completed submission to the admissions inbox.
type SubmissionNotifier struct {
	sender  Sender
	to      string
	appName string
}

var _ student.Notifier = (*SubmissionNotifier)(nil)

func NewSubmissionNotifier(sender Sender, conf *core.Config) *SubmissionNotifier {
	return &SubmissionNotifier{sender: sender, to: conf.NotifyEmail, appName: conf.AppName}
}

type submissionData struct {
	AppName string
	Session core.Session
	Result  student.SubmitResult
}

// NotifySubmission is a no-op when no inbox is configured.
func (n *SubmissionNotifier) NotifySubmission(ctx context.Context, sess core.Session, res student.SubmitResult) error {
	if n.to == "" {
		return nil
	}

	subject := "New student registered"
	if res.Mode == student.ModeEdit {
		subject = "Student profile updated"
	}
	if res.PartialSuccess() {
		subject += " (documents missing)"
	}
	msg := EmailMessage{
		To:           []mail.Address{{Address: n.to}},
		Subject:      subject,
		TemplateName: "submission",
		TemplateData: submissionData{AppName: n.appName, Session: sess, Result: res},
	}
	if sess.Email != "" {
		msg.Cc = []mail.Address{{Name: sess.Name, Address: sess.Email}}
	}
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering submission email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}
	return errors.Wrap(n.sender.Send(ctx, msg), "sending submission email")
}
