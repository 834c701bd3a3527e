package metricsvc

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/f4r424hm3d/Agent-crm-sub003/core/student"
)

const namespace = "agentcrm"

// Recorder counts wizard submissions and document transfers.
type Recorder struct {
	submissions *prometheus.CounterVec
	documents   *prometheus.CounterVec
}

var _ student.Metrics = (*Recorder)(nil)

// NewRecorder registers the wizard counters on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wizard",
				Name:      "submissions_total",
				Help:      "Student create/update calls by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wizard",
				Name:      "document_transfers_total",
				Help:      "Document uploads and deletions sent to the backend by outcome",
			},
			[]string{"op", "status"},
		),
	}
	for _, c := range []prometheus.Collector{r.submissions, r.documents} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering wizard metrics")
		}
	}
	return r, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Recorder) ObserveSubmission(mode string, err error) {
	r.submissions.WithLabelValues(mode, status(err)).Inc()
}

func (r *Recorder) ObserveDocument(op string, err error) {
	r.documents.WithLabelValues(op, status(err)).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving metrics")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
