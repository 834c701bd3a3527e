package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/gommon/color"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
	metricsvc "github.com/f4r424hm3d/Agent-crm-sub003/services/metrics"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNotAllowed = errors.New("your role cannot manage other students")
)

type (
	gateways struct {
		Entities  student.EntityGateway
		Documents student.DocumentGateway
	}

	// gatewayFactory binds the remote gateways to the session's token.
	gatewayFactory func(sess core.Session) gateways

	app struct {
		conf     *core.Config
		logger   core.Logger
		metrics  student.Metrics
		notifier student.Notifier
		gatherer prometheus.Gatherer
		gateways gatewayFactory
		clr      *color.Color
	}
)

func newRootCmd(a *app) *cobra.Command {
	var token string
	var noColor bool

	root := &cobra.Command{
		Use:           "wizard",
		Short:         "Register and edit students of the " + a.conf.AppName,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if noColor {
				a.clr.Disable()
			}
		},
	}
	root.PersistentFlags().StringVar(&token, "token", "", "API bearer token (prompted when neither the flag nor the config sets one)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colours")

	root.AddCommand(
		a.registerCmd(&token),
		a.editCmd(&token),
		a.docsCmd(&token),
		a.stepsCmd(),
	)
	return root
}

func (a *app) registerCmd(token *string) *cobra.Command {
	var draftPath, saveDraft string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new student, step by step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd, *token)
			if err != nil {
				return err
			}
			w, err := a.newWizard(a.gateways(sess), sess, student.ModeCreate, "")
			if err != nil {
				return err
			}
			if draftPath != "" {
				if err := resumeDraft(w, draftPath); err != nil {
					return err
				}
			}
			return a.interact(cmd, w, saveDraft)
		},
	}
	cmd.Flags().StringVar(&draftPath, "draft", "", "resume from a saved draft")
	cmd.Flags().StringVar(&saveDraft, "save-draft", "", "save a draft here when quitting")
	return cmd
}

func (a *app) editCmd(token *string) *cobra.Command {
	var draftPath, saveDraft string
	cmd := &cobra.Command{
		Use:   "edit STUDENT_ID",
		Short: "Edit an existing student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.managerSession(cmd, *token)
			if err != nil {
				return err
			}
			w, err := a.newWizard(a.gateways(sess), sess, student.ModeEdit, args[0])
			if err != nil {
				return err
			}
			if err := w.LoadEntity(cmd.Context()); err != nil {
				return errors.New(core.UserMessage(err))
			}
			if draftPath != "" {
				if err := resumeDraft(w, draftPath); err != nil {
					return err
				}
			}
			return a.interact(cmd, w, saveDraft)
		},
	}
	cmd.Flags().StringVar(&draftPath, "draft", "", "resume from a saved draft")
	cmd.Flags().StringVar(&saveDraft, "save-draft", "", "save a draft here when quitting")
	return cmd
}

func (a *app) docsCmd(token *string) *cobra.Command {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "Manage the documents of an existing student",
	}

	withWizard := func(cmd *cobra.Command, id string, fn func(s *session, gw gateways) error) error {
		sess, err := a.managerSession(cmd, *token)
		if err != nil {
			return err
		}
		gw := a.gateways(sess)
		w, err := a.newWizard(gw, sess, student.ModeEdit, id)
		if err != nil {
			return err
		}
		defer w.Close()
		return fn(&session{w: w, out: cmd.OutOrStdout(), clr: a.clr}, gw)
	}

	docs.AddCommand(
		&cobra.Command{
			Use:   "list STUDENT_ID",
			Short: "List stored and missing documents",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withWizard(cmd, args[0], func(s *session, gw gateways) error {
					persisted, err := gw.Documents.List(cmd.Context(), args[0])
					if err != nil {
						return errors.New(core.UserMessage(err))
					}
					for _, d := range persisted {
						status := "pending review"
						if d.Verified != nil && *d.Verified {
							status = "verified"
						}
						s.printf("  %s %s (%s)\n", a.clr.Green("+"), d.Name, status)
					}
					missing, err := s.w.MissingDocuments(cmd.Context())
					if err != nil {
						return errors.New(core.UserMessage(err))
					}
					for _, d := range missing {
						s.printf("  %s %s [%s]\n", a.clr.Yellow("-"), d.Label, d.Key)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "upload STUDENT_ID DOCUMENT FILE",
			Short: "Upload one document",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withWizard(cmd, args[0], func(s *session, _ gateways) error {
					spec, ok := student.LookupDocument(args[1])
					if !ok {
						return errors.Errorf("unknown document %q", args[1])
					}
					content, err := readFileFunc(args[2])
					if err != nil {
						return errors.Wrap(err, "reading file")
					}
					err = s.w.UploadDocument(cmd.Context(), spec, student.File{Name: filepath.Base(args[2]), Content: content})
					if err != nil {
						return errors.New(core.UserMessage(err))
					}
					s.printf("%s\n", a.clr.Green(spec.Label+" uploaded"))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete STUDENT_ID DOCUMENT",
			Short: "Delete one document",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withWizard(cmd, args[0], func(s *session, _ gateways) error {
					identity := args[1]
					if spec, ok := student.LookupDocument(identity); ok {
						identity = spec.Identity()
					}
					if err := s.w.DeleteDocument(cmd.Context(), identity); err != nil {
						return errors.New(core.UserMessage(err))
					}
					s.printf("%s deleted\n", identity)
					return nil
				})
			},
		},
	)
	return docs
}

func (a *app) stepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "Show the registration steps and the required documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			gate := student.NewStepGate()
			for n := 1; n <= gate.TotalSteps(); n++ {
				_, _ = fmt.Fprintf(out, "%d. %s\n", n, a.clr.Bold(gate.Title(n)))
				for _, p := range promptFields(gate, n) {
					_, _ = fmt.Fprintf(out, "   %-20s %s\n", p.Field, p.Label)
				}
			}
			_, _ = fmt.Fprintln(out, "\nRequired documents:")
			for _, d := range student.RequiredDocuments {
				_, _ = fmt.Fprintf(out, "   %-20s %s (%s)\n", d.Key, d.Label, strings.Join(student.AcceptedExtensions(d.Key), " "))
			}
			return nil
		},
	}
}

// session resolves the bearer token: flag, then config, then an interactive prompt.
func (a *app) session(cmd *cobra.Command, token string) (core.Session, error) {
	if token == "" {
		token = a.conf.API.Token
	}
	if token == "" {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "API token: ")
		raw, err := readPasswordFunc(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return core.Session{}, errors.Wrap(err, "reading token")
		}
		token = string(raw)
	}
	sess, err := core.NewSession(token)
	if err != nil {
		a.logger.Warn("rejected session", err)
		return core.Session{}, errors.New("invalid API token")
	}
	return sess, nil
}

func (a *app) managerSession(cmd *cobra.Command, token string) (core.Session, error) {
	sess, err := a.session(cmd, token)
	if err != nil {
		return sess, err
	}
	if !sess.CanManageStudents() {
		return core.Session{}, errNotAllowed
	}
	return sess, nil
}

func (a *app) newWizard(gw gateways, sess core.Session, mode student.Mode, id string) (*student.Wizard, error) {
	return student.New(
		student.Deps{
			Entities:  gw.Entities,
			Documents: gw.Documents,
			Logger:    a.logger,
			Metrics:   a.metrics,
			Notifier:  a.notifier,
		},
		student.Options{
			Mode:            mode,
			EntityID:        id,
			Session:         sess,
			MaxDocumentSize: a.conf.MaxDocumentSize,
		},
	)
}

func (a *app) interact(cmd *cobra.Command, w *student.Wizard, saveDraft string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if a.conf.MetricsAddr != "" && a.gatherer != nil {
		go func() {
			if err := metricsvc.Serve(ctx, a.conf.MetricsAddr, a.gatherer); err != nil {
				a.logger.Error("metrics server stopped", err)
			}
		}()
	}

	s := &session{
		w:         w,
		in:        bufio.NewReader(cmd.InOrStdin()),
		out:       cmd.OutOrStdout(),
		clr:       a.clr,
		draftPath: saveDraft,
	}
	_, err := s.run(ctx)
	return err
}

func resumeDraft(w *student.Wizard, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening draft")
	}
	defer f.Close()
	d, err := student.ReadDraft(f)
	if err != nil {
		return err
	}
	return w.Resume(d)
}
