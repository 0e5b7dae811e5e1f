package metrics

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StageInitializing = iota + 1
	StageServing
	StageStopping
)

func fqn(name string) string {
	return prometheus.BuildFQName("proofqr", "service", name)
}

var (
	Version = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fqn("version"),
			Help: "Service version number",
		},
		[]string{"version"},
	)

	Stage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: fqn("stage"),
		Help: "Service stage (e.g. initializing, serving)",
	})

	LedgerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("ledger_call_duration"),
			Help:    "Duration of ledger JSON-RPC calls",
			Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1, 5, 15, 60},
		},
		[]string{"op"},
	)

	Anchors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("anchors_total"),
			Help: "Anchoring attempts by result",
		},
		[]string{"result"},
	)

	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("verifications_total"),
			Help: "Verification verdicts by status and reason",
		},
		[]string{"status", "reason"},
	)

	TrackedCodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: fqn("tracked_codes"),
		Help: "Distinct transaction hashes with at least one recorded scan",
	})

	HttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("http_duration"),
			Help:    "HTTP request duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 15},
		},
		[]string{"method", "path", "status"},
	)
)

func ObserveLedgerCall(op string, started time.Time) {
	LedgerCallDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func HTTP(c *gin.Context) {
	started := time.Now()

	c.Next()

	// route templates keep /qr/:txHash from minting one series per hash
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	HttpDuration.WithLabelValues(
		c.Request.Method,
		path,
		strconv.Itoa(c.Writer.Status()),
	).Observe(time.Since(started).Seconds())
}

func init() {
	prometheus.MustRegister(
		Version,
		Stage,
		LedgerCallDuration,
		Anchors,
		Verifications,
		TrackedCodes,
		HttpDuration,
	)
}

func ListenAndServe(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := (&http.Server{Addr: addr, Handler: mux}).ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
