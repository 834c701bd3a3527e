package backend

import (
	"context"

	"github.com/sendgrid/rest"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

// Create POSTs the record and returns the id of the new student.
func (c *Client) Create(ctx context.Context, rec student.WireRecord) (string, error) {
	const op = "create student"
	req, err := c.newJSONRequest(rest.Post, c.endpoint("students"), rec)
	if err != nil {
		return "", err
	}
	env, err := c.send(ctx, op, req)
	if err != nil {
		return "", err
	}
	id, err := env.StudentID()
	if err != nil {
		return "", core.NewGatewayError(op, 0, "", err)
	}
	return id, nil
}

func (c *Client) Update(ctx context.Context, id string, rec student.WireRecord) error {
	req, err := c.newJSONRequest(rest.Put, c.endpoint("students", id), rec)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, "update student", req)
	return err
}

func (c *Client) GetByID(ctx context.Context, id string) (student.Student, error) {
	const op = "get student"
	env, err := c.send(ctx, op, c.newRequest(rest.Get, c.endpoint("students", id)))
	if err != nil {
		return student.Student{}, err
	}
	s, err := env.Student()
	if err != nil {
		return student.Student{}, core.NewGatewayError(op, 0, "", err)
	}
	if s.ID == "" {
		s.ID = student.Text(id)
	}
	return s, nil
}
