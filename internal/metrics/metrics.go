// internal/metrics/metrics.go
//
// Prometheus counters for game activity.
//
// A nil *Metrics is valid and records nothing, so services can run without
// a registry (tests, embedded use).

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Guess results used as label values.
const (
	GuessHit      = "hit"
	GuessMiss     = "miss"
	GuessRejected = "rejected"
)

// Metrics holds the langman collectors.
type Metrics struct {
	gamesStarted  *prometheus.CounterVec
	gamesFinished *prometheus.CounterVec
	guesses       *prometheus.CounterVec
	invariants    prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "langman",
			Name:      "games_started_total",
			Help:      "Games started, by language.",
		}, []string{"language"}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "langman",
			Name:      "games_finished_total",
			Help:      "Games that reached a terminal outcome, by outcome.",
		}, []string{"outcome"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "langman",
			Name:      "guesses_total",
			Help:      "Guesses submitted, by result.",
		}, []string{"result"}),
		invariants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "langman",
			Name:      "invariant_violations_total",
			Help:      "Game states rejected by the consistency checker.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.gamesStarted, m.gamesFinished, m.guesses, m.invariants)
	}
	return m
}

func (m *Metrics) GameStarted(language string) {
	if m == nil {
		return
	}
	m.gamesStarted.WithLabelValues(language).Inc()
}

func (m *Metrics) GameFinished(outcome string) {
	if m == nil {
		return
	}
	m.gamesFinished.WithLabelValues(outcome).Inc()
}

// Guess records one guess; result is GuessHit, GuessMiss or GuessRejected.
func (m *Metrics) Guess(result string) {
	if m == nil {
		return
	}
	m.guesses.WithLabelValues(result).Inc()
}

func (m *Metrics) InvariantViolation() {
	if m == nil {
		return
	}
	m.invariants.Inc()
}
