package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/gommon/color"
	"github.com/pkg/errors"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

var (
	errAborted = errors.New("registration aborted")

	readFileFunc = os.ReadFile // mockable
)

// session drives one wizard from a terminal.
type session struct {
	w         *student.Wizard
	in        *bufio.Reader
	out       io.Writer
	clr       *color.Color
	draftPath string // where to save on quit, if set
}

func (s *session) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// readLine returns the trimmed next line; errAborted once input is exhausted.
func (s *session) readLine(prompt string) (string, error) {
	s.printf("%s", prompt)
	line, err := s.in.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", errAborted
	} else if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "reading input")
	}
	return strings.TrimSpace(line), nil
}

// run walks the steps until the submission succeeds or the user quits.
func (s *session) run(ctx context.Context) (*student.SubmitResult, error) {
	defer s.w.Close()
	for {
		step := s.w.Step()
		s.printf("\n%s\n", s.clr.Bold(fmt.Sprintf("Step %d/%d: %s", step, s.w.TotalSteps(), s.w.Gate().Title(step))))

		if step == s.w.TotalSteps() {
			res, err := s.documents(ctx)
			if err == errBack {
				continue
			}
			return res, err
		}
		if err := s.fillStep(step); err != nil {
			if err == errBack {
				continue
			}
			return nil, s.quit(err)
		}
	}
}

var errBack = errors.New("back")

const (
	stepHelp   = "Enter keeps the shown value, - clears it, :back goes to the previous step, :quit leaves.\n"
	clearValue = "-"
)

// fillStep prompts every field of step, then re-prompts the failing ones until Next succeeds.
func (s *session) fillStep(step int) error {
	prompts := promptFields(s.w.Gate(), step)
	s.printf("%s", stepHelp)
	for {
		for i := 0; i < len(prompts); i++ {
			p := prompts[i]
			current := s.w.Record().String(p.Field)
			label := p.Label
			if current != "" {
				label += " [" + current + "]"
			}
			line, err := s.readLine(label + ": ")
			if err != nil {
				return err
			}
			switch line {
			case ":back":
				if err := s.w.Previous(); err != nil {
					s.printf("%s\n", s.clr.Yellow(err.Error()))
					i-- // ask the same field again
					continue
				}
				return errBack
			case ":quit":
				return errAborted
			case "": // keep current
			case clearValue:
				s.w.SetField(p.Field, "")
			default:
				s.w.SetField(p.Field, line)
			}
		}

		err := s.w.Next()
		if err == nil {
			return nil
		}
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			return err
		}
		s.printf("%s\n", s.clr.Red(core.UserMessage(err)))
		failed := vErr.FieldMap()
		retry := prompts[:0:0]
		for _, p := range prompts {
			if msg, ok := failed[p.Field]; ok {
				s.printf("  %s\n", s.clr.Red(msg))
				retry = append(retry, p)
			}
		}
		prompts = retry
	}
}

const documentsHelp = `commands:
  upload <document> <file>   attach a file (e.g. upload passport ~/scans/passport.pdf)
  delete <document>          remove a document
  list                       show attached and missing documents
  back                       previous step
  submit                     save the student
  quit                       leave without saving
`

// documents runs the last step's command loop.
func (s *session) documents(ctx context.Context) (*student.SubmitResult, error) {
	s.printf("%s", documentsHelp)
	for {
		line, err := s.readLine("> ")
		if err != nil {
			return nil, s.quit(err)
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "upload":
			if len(args) < 3 {
				s.printf("usage: upload <document> <file>\n")
				continue
			}
			s.upload(ctx, args[1], strings.Join(args[2:], " "))
		case "delete":
			if len(args) < 2 {
				s.printf("usage: delete <document>\n")
				continue
			}
			s.delete(ctx, strings.Join(args[1:], " "))
		case "list":
			s.list(ctx)
		case "back":
			if err := s.w.Previous(); err != nil {
				s.printf("%s\n", s.clr.Yellow(core.UserMessage(err)))
				continue
			}
			return nil, errBack
		case "submit":
			res, err := s.w.FinalSubmit(ctx)
			if err != nil {
				if err == student.ErrSessionClosed {
					return nil, err
				}
				s.printf("%s\n", s.clr.Red(core.UserMessage(err)))
				var vErr *core.ValidationError
				if errors.As(err, &vErr) {
					for _, f := range vErr.Fields {
						s.printf("  %s\n", s.clr.Red(f.Error))
					}
					s.jumpToFirstError(vErr)
					return nil, errBack
				}
				continue
			}
			if res.PartialSuccess() {
				s.printf("%s\n", s.clr.Yellow(res.Summary()))
			} else {
				s.printf("%s\n", s.clr.Green(res.Summary()))
			}
			return res, nil
		case "quit":
			return nil, s.quit(errAborted)
		default:
			s.printf("%s", documentsHelp)
		}
	}
}

func (s *session) jumpToFirstError(vErr *core.ValidationError) {
	first := s.w.TotalSteps()
	for _, f := range vErr.Fields {
		if n := s.w.Gate().StepOf(f.Field); n > 0 && n < first {
			first = n
		}
	}
	_ = s.w.JumpTo(first)
}

func (s *session) upload(ctx context.Context, identity, path string) {
	spec, ok := student.LookupDocument(identity)
	if !ok {
		s.printf("%s\n", s.clr.Red(fmt.Sprintf("Unknown document %q", identity)))
		return
	}
	content, err := readFileFunc(path)
	if err != nil {
		s.printf("%s\n", s.clr.Red(fmt.Sprintf("Cannot read %s", path)))
		return
	}
	file := student.File{Name: filepath.Base(path), Content: content}
	if err := s.w.UploadDocument(ctx, spec, file); err != nil {
		s.printf("%s\n", s.clr.Red(core.UserMessage(err)))
		return
	}
	s.printf("%s\n", s.clr.Green(spec.Label+" attached"))
}

func (s *session) delete(ctx context.Context, identity string) {
	if spec, ok := student.LookupDocument(identity); ok {
		identity = spec.Identity()
	}
	if err := s.w.DeleteDocument(ctx, identity); err != nil {
		s.printf("%s\n", s.clr.Red(core.UserMessage(err)))
		return
	}
	s.printf("%s removed\n", identity)
}

func (s *session) list(ctx context.Context) {
	for _, d := range s.w.StagedDocuments() {
		s.printf("  %s %s (%s, waiting for submit)\n", s.clr.Green("+"), d.Label, d.Filename)
	}
	missing, err := s.w.MissingDocuments(ctx)
	if err != nil {
		s.printf("%s\n", s.clr.Red(core.UserMessage(err)))
		return
	}
	for _, d := range missing {
		s.printf("  %s %s [%s]\n", s.clr.Yellow("-"), d.Label, d.Key)
	}
}

// quit saves a draft when asked to, then reports err.
func (s *session) quit(err error) error {
	if s.draftPath == "" {
		return err
	}
	f, createErr := os.Create(s.draftPath)
	if createErr != nil {
		return errors.Wrap(createErr, "saving draft")
	}
	defer f.Close()
	if wErr := student.WriteDraft(f, s.w.Draft()); wErr != nil {
		return wErr
	}
	s.printf("draft saved to %s\n", s.draftPath)
	return err
}
