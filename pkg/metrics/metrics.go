package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// Outcome labels recorded for every update request.
const (
	OutcomeRecreated = "recreated"
	OutcomeUpToDate  = "up_to_date"
	OutcomeNotFound  = "not_found"
	OutcomeConflict  = "conflict"
	OutcomeTimeout   = "timeout"
	OutcomeFailed    = "failed"
)

var metrics *Metrics

// errAlreadyRegistered indicates the registry already holds redock's collectors.
var errAlreadyRegistered = errors.New("update metrics already registered")

// Metric holds the data points of a single update request.
type Metric struct {
	Project  string        // Compose project of the request.
	Service  string        // Compose service of the request.
	Outcome  string        // One of the Outcome constants.
	Duration time.Duration // Wall time spent on the request.
}

// Metrics handles processing and exposing update metrics.
type Metrics struct {
	channel      chan *Metric             // Channel for queuing metrics.
	updates      *prometheus.CounterVec   // Requests by outcome.
	duration     *prometheus.HistogramVec // Request duration by outcome.
	lastRecreate *prometheus.GaugeVec     // Unix time of the last recreate per service.
	dropped      prometheus.Counter       // Counter for dropped metrics.
	stopCh       chan struct{}            // Channel for shutdown signaling.
	shutdownOnce sync.Once                // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with its processing goroutine, or an error if registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the metrics channel capacity.
	const channelBufferSize = 32

	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redock_updates_total",
			Help: "Number of update requests handled by redock, by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redock_update_duration_seconds",
			Help:    "Time spent handling update requests, by outcome",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		lastRecreate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redock_last_recreate_timestamp_seconds",
			Help: "Unix time of the last successful recreate of a compose service",
		}, []string{"project", "service"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redock_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	metricsList := []prometheus.Collector{
		metrics.updates,
		metrics.duration,
		metrics.lastRecreate,
		metrics.dropped,
	}
	for i, m := range metricsList {
		if err := registry.Register(m); err != nil {
			// Only collectors registered by this call are removed; a duplicate
			// shares its descriptor with the collector already serving it.
			for _, registered := range metricsList[:i] {
				registry.Unregister(registered)
			}

			cancel()

			var alreadyRegistered prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegistered) {
				return nil, fmt.Errorf("%w: %w", errAlreadyRegistered, err)
			}

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go metrics.HandleUpdate()

	return metrics, nil
}

// NewMetric classifies the outcome of an update request.
//
// Parameters:
//   - params: Request parameters.
//   - result: Update result, nil on failure.
//   - err: Update error, nil on success.
//   - duration: Time spent on the request.
//
// Returns:
//   - *Metric: New metric instance.
func NewMetric(params types.UpdateParams, result *types.UpdateResult, err error, duration time.Duration) *Metric {
	return &Metric{
		Project:  params.Project,
		Service:  params.Service,
		Outcome:  OutcomeOf(result, err),
		Duration: duration,
	}
}

// OutcomeOf maps an update result or error onto an outcome label.
//
// Parameters:
//   - result: Update result, nil on failure.
//   - err: Update error, nil on success.
//
// Returns:
//   - string: Outcome label.
func OutcomeOf(result *types.UpdateResult, err error) string {
	switch {
	case err == nil && result != nil && result.Recreated:
		return OutcomeRecreated
	case err == nil:
		return OutcomeUpToDate
	case errors.Is(err, types.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, types.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, types.ErrTimeout):
		return OutcomeTimeout
	default:
		return OutcomeFailed
	}
}

// QueueIsEmpty checks if the metrics channel is empty.
//
// Returns:
//   - bool: True if empty, false otherwise.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// Register attempts to enqueue a metric for processing.
// If the channel is full, the metric is dropped and the dropped counter is incremented.
//
// Parameters:
//   - metric: Metric to register.
func (m *Metrics) Register(metric *Metric) {
	if metric == nil {
		return
	}

	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// Default initializes or returns the singleton Metrics handler bound to the
// default registry. It panics on registration failure.
//
// Returns:
//   - *Metrics: Metrics handler.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// Shutdown stops the metrics processing goroutine. It is idempotent.
func (m *Metrics) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes metrics from the channel.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			m.updates.WithLabelValues(change.Outcome).Inc()
			m.duration.WithLabelValues(change.Outcome).Observe(change.Duration.Seconds())

			if change.Outcome == OutcomeRecreated {
				m.lastRecreate.WithLabelValues(change.Project, change.Service).SetToCurrentTime()
			}
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}
