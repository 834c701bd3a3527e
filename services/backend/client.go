package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

// Client talks to the CRM REST API on behalf of an authenticated session.
// It implements both student.EntityGateway and student.DocumentGateway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var (
	_ student.EntityGateway   = (*Client)(nil)
	_ student.DocumentGateway = (*Client)(nil)
)

func NewClient(conf *core.Config, sess core.Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.API.BaseURL, "/"),
		token:   sess.Token,
		http:    &http.Client{Timeout: conf.API.Timeout},
	}
}

func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) newRequest(method rest.Method, endpoint string) rest.Request {
	req := rest.Request{
		Method:  method,
		BaseURL: endpoint,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	return req
}

func (c *Client) newJSONRequest(method rest.Method, endpoint string, body interface{}) (rest.Request, error) {
	req := c.newRequest(method, endpoint)
	data, err := json.Marshal(body)
	if err != nil {
		return req, errors.Wrap(err, "encoding request body")
	}
	req.Body = data
	req.Headers["Content-Type"] = "application/json"
	return req, nil
}

// send performs req and unwraps the response envelope.
// Every failure comes back as a *core.GatewayError named after op.
func (c *Client) send(ctx context.Context, op string, req rest.Request) (*envelope, error) {
	res, err := do(ctx, c.http, req)
	if err != nil {
		return nil, core.NewGatewayError(op, 0, "", err)
	}

	env, decodeErr := decodeEnvelope(res.Body)
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		var msg string
		if env != nil {
			msg = env.Message
		}
		return nil, core.NewGatewayError(op, res.StatusCode, msg, decodeErr)
	}
	if decodeErr != nil {
		return nil, core.NewGatewayError(op, res.StatusCode, "", decodeErr)
	}
	if env.Success != nil && !*env.Success {
		return nil, core.NewGatewayError(op, res.StatusCode, env.Message, nil)
	}
	return env, nil
}

// do runs req on client, bound to ctx.
func do(ctx context.Context, client *http.Client, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	res, err := client.Do(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(res)
}
