package emailsvc

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	client     *http.Client
}

var _ Sender = (*sendgridSender)(nil)

func NewSendgridSender(conf *core.Config) Sender {
	from := conf.DefaultFromEmail()
	return &sendgridSender{
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		client:     &http.Client{Timeout: conf.API.Timeout},
	}
}

func (svc sendgridSender) prepare(msg EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc sendgridSender) Send(ctx context.Context, msg EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrap(err, "building email request")
	}
	httpRes, err := svc.client.Do(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return errors.Wrap(err, "reading email response")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}
