// monitor/monitor.go
package monitor

import (
	"errors"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/heist/challenge"
	"github.com/wfunc/heist/heist"
	"github.com/wfunc/heist/logger"
)

type Metrics struct {
	OnlinePlayers     prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	ActiveHeists      prometheus.Gauge
	MessagesReceived  prometheus.Counter
	MessageLatency    prometheus.Histogram
	HeistsTotal       *prometheus.CounterVec
	ChallengesTotal   *prometheus.CounterVec
	ChallengeDuration *prometheus.HistogramVec
	MovesTotal        *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of online players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		ActiveHeists: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_heists",
			Help:      "Number of heists in progress",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		HeistsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heists_total",
			Help:      "Finished heists by outcome",
		}, []string{"outcome"}),
		ChallengesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_total",
			Help:      "Resolved challenges by kind and outcome",
		}, []string{"kind", "outcome"}),
		ChallengeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "challenge_duration_seconds",
			Help:      "Time from challenge prompt to resolution",
			Buckets:   prometheus.LinearBuckets(1, 2, 8),
		}, []string{"kind"}),
		MovesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Resolved navigator moves by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.ActiveHeists,
		m.MessagesReceived,
		m.MessageLatency,
		m.HeistsTotal,
		m.ChallengesTotal,
		m.ChallengeDuration,
		m.MovesTotal,
	)

	return m
}

var publishOnce sync.Once

type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewMonitor registers the metrics with reg. A nil reg uses the default registry.
func NewMonitor(namespace string, reg *prometheus.Registry) *Monitor {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	return &Monitor{
		metrics:   NewMetrics(namespace, registerer),
		gatherer:  gatherer,
		startTime: time.Now(),
	}
}

// Metrics exposes the collectors.
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves /metrics and the expvar /debug/vars page.
func (m *Monitor) Handler() http.Handler {
	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))

		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

func (m *Monitor) StartServer(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		logger.Log.Infof("Metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// --- heist.Observer ---

func (m *Monitor) SessionStarted() {
	m.metrics.ActiveHeists.Inc()
}

func (m *Monitor) SessionFinished(outcome heist.Outcome) {
	m.metrics.ActiveHeists.Dec()
	m.metrics.HeistsTotal.WithLabelValues(outcome.String()).Inc()
}

func (m *Monitor) ChallengeResolved(kind challenge.Kind, outcome challenge.Outcome, elapsed time.Duration) {
	m.metrics.ChallengesTotal.WithLabelValues(kind.String(), outcome.String()).Inc()
	m.metrics.ChallengeDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *Monitor) MoveResolved(result heist.MoveResult) {
	m.metrics.MovesTotal.WithLabelValues(result.String()).Inc()
}
