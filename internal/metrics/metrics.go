package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/tictactoe-socket/internal/entity"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	registerOnce sync.Once

	sessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tictactoe",
			Name:      "sessions_total",
			Help:      "Finished game sessions by winner and reason.",
		},
		[]string{"outcome", "reason"},
	)
	movesCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tictactoe",
			Name:      "moves_total",
			Help:      "Moves committed to a board.",
		},
		[]string{"mark"},
	)
	movesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tictactoe",
			Name:      "invalid_moves_total",
			Help:      "Moves rejected by the server.",
		},
		[]string{"reason"},
	)
	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tictactoe",
			Name:      "frames_total",
			Help:      "Frames sent to or received from players.",
		},
		[]string{"direction"},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(sessionsFinished, movesCommitted, movesRejected, frames)
	})
}

func RecordSession(outcome entity.Outcome) {
	Register()
	sessionsFinished.WithLabelValues(outcome.WinnerLabel(), outcome.Reason).Inc()
}

func RecordMove(mark entity.Mark) {
	Register()
	movesCommitted.WithLabelValues(mark.String()).Inc()
}

func RecordInvalidMove(reason string) {
	Register()
	movesRejected.WithLabelValues(reason).Inc()
}

func RecordFrames(direction string, n int) {
	Register()
	frames.WithLabelValues(direction).Add(float64(n))
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
