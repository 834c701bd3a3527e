package main

import (
	"log"
	"os"

	"github.com/labstack/gommon/color"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
	"github.com/f4r424hm3d/Agent-crm-sub003/services/backend"
	emailsvc "github.com/f4r424hm3d/Agent-crm-sub003/services/email"
	logsvc "github.com/f4r424hm3d/Agent-crm-sub003/services/logger"
	metricsvc "github.com/f4r424hm3d/Agent-crm-sub003/services/metrics"
)

type appParams struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	Registry *prometheus.Registry
	Notifier *emailsvc.SubmissionNotifier
}

// logs go to stderr so they never mix with the prompts
func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stderr, "WIZARD : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newMailSender(conf *core.Config) emailsvc.Sender {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleSender(os.Stderr, conf)
	}
	return emailsvc.NewSendgridSender(conf)
}

func newGatewayFactory(conf *core.Config) gatewayFactory {
	return func(sess core.Session) gateways {
		client := backend.NewClient(conf, sess)
		return gateways{Entities: client, Documents: client}
	}
}

func newApp(p appParams, gw gatewayFactory) (*app, error) {
	if err := p.Conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	recorder, err := metricsvc.NewRecorder(p.Registry)
	if err != nil {
		return nil, err
	}
	return &app{
		conf:     p.Conf,
		logger:   p.Logger,
		metrics:  recorder,
		notifier: p.Notifier,
		gatherer: p.Registry,
		gateways: gw,
		clr:      color.New(),
	}, nil
}

// newContainer wires the CLI dependencies.
func newContainer() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(prometheus.NewRegistry))
	must(c.Provide(newMailSender))
	must(c.Provide(emailsvc.NewSubmissionNotifier))
	must(c.Provide(newGatewayFactory))
	must(c.Provide(newApp))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
