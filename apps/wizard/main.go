package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
)

func main() {
	c := newContainer()

	var code int
	err := c.Invoke(func(a *app) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a.logger.Debug(fmt.Sprintf("%s wizard starting : version %q", a.conf.AppName, a.conf.Build))
		if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
			if errors.Cause(err) != errAborted {
				_, _ = fmt.Fprintln(os.Stderr, a.clr.Red("error: "+err.Error()))
			}
			code = 1
		}
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errors.Wrap(err, "starting wizard"))
		os.Exit(1)
	}
	os.Exit(code)
}
