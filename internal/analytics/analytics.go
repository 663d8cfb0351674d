package analytics

import (
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/getsentry/sentry-go"
	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/xid"

	"payflow-backend/internal/models"
	"payflow-backend/pkg/logger"
)

// TopicFlow is the event bus topic all flow events are published on.
const TopicFlow = "payflow:flow"

// Event is the reporting record for one flow occurrence. Events never carry
// instrument details, only identifiers and classes.
type Event struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	SessionID string                 `json:"session_id"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	At        time.Time              `json:"at"`
}

// Reporter is the side channel the flow reports progress on. Implementations
// must never block or fail the flow.
type Reporter interface {
	ConfigureFinished(sessionID string, ok bool, err error)
	OptionsPresented(sessionID string)
	ConfirmStarted(sessionID string, selectionKind string)
	FlowOutcome(sessionID string, selectionKind string, res models.Result)
	WalletFailure(sessionID string, err error)
	GatewayEvent(eventType, intentID, status string)
}

var (
	metricsOnce     sync.Once
	configuresTotal *prometheus.CounterVec
	outcomesTotal   *prometheus.CounterVec
	walletFailures  prometheus.Counter
	gatewayEvents   *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		configuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "flow",
			Name:      "configures_total",
			Help:      "Total configure attempts by status",
		}, []string{"status"})

		outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "flow",
			Name:      "outcomes_total",
			Help:      "Terminal flow outcomes by class",
		}, []string{"class", "selection"})

		walletFailures = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "flow",
			Name:      "wallet_failures_total",
			Help:      "Wallet confirmation failures",
		})

		gatewayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "gateway",
			Name:      "events_total",
			Help:      "Gateway webhook events by type",
		}, []string{"type"})
	})
}

// Options configures the reporter's optional sinks.
type Options struct {
	// CollectorURL, when set, enables forwarding every event to an external
	// collector endpoint.
	CollectorURL string
	// CaptureFailures, when set, sends failure classes to Sentry. The Sentry
	// SDK must be initialized by the caller.
	CaptureFailures bool
}

// BusReporter publishes events on an in-process bus, keeps Prometheus
// counters, and optionally forwards events to a collector.
type BusReporter struct {
	bus             EventBus.Bus
	forwarder       *resty.Client
	captureFailures bool
}

func NewBusReporter(opts Options) *BusReporter {
	initMetrics()

	r := &BusReporter{
		bus:             EventBus.New(),
		captureFailures: opts.CaptureFailures,
	}

	if opts.CollectorURL != "" {
		r.forwarder = resty.New().
			SetBaseURL(opts.CollectorURL).
			SetTimeout(5 * time.Second).
			SetRetryCount(2)

		if err := r.bus.SubscribeAsync(TopicFlow, r.forward, false); err != nil {
			logger.Error(err, "Failed to attach analytics forwarder", nil)
		}
	}

	return r
}

// Bus exposes the event bus for additional in-process subscribers.
func (r *BusReporter) Bus() EventBus.Bus {
	return r.bus
}

// Flush waits for asynchronous subscribers to drain. Used on shutdown.
func (r *BusReporter) Flush() {
	r.bus.WaitAsync()
}

func (r *BusReporter) forward(event Event) {
	resp, err := r.forwarder.R().SetBody(event).Post("/v1/events")
	if err != nil {
		logger.Error(err, "Failed to forward analytics event", map[string]interface{}{"event": event.Name})
		return
	}
	if resp.IsError() {
		logger.Warn("Analytics collector rejected event", map[string]interface{}{
			"event":  event.Name,
			"status": resp.StatusCode(),
		})
	}
}

func (r *BusReporter) publish(name, sessionID string, fields map[string]interface{}) {
	event := Event{
		ID:        xid.New().String(),
		Name:      name,
		SessionID: sessionID,
		Fields:    fields,
		At:        time.Now().UTC(),
	}
	r.bus.Publish(TopicFlow, event)
}

func (r *BusReporter) capture(err error) {
	if r.captureFailures && err != nil {
		sentry.CaptureException(err)
	}
}

func (r *BusReporter) ConfigureFinished(sessionID string, ok bool, err error) {
	status := "success"
	fields := map[string]interface{}{}
	if !ok {
		status = "failure"
		if err != nil {
			fields["error"] = err.Error()
		}
		r.capture(err)
	}

	configuresTotal.WithLabelValues(status).Inc()
	r.publish("configure."+status, sessionID, fields)
}

func (r *BusReporter) OptionsPresented(sessionID string) {
	r.publish("options.presented", sessionID, nil)
}

func (r *BusReporter) ConfirmStarted(sessionID string, selectionKind string) {
	r.publish("confirm.started", sessionID, map[string]interface{}{"selection": selectionKind})
}

func (r *BusReporter) FlowOutcome(sessionID string, selectionKind string, res models.Result) {
	if res == nil {
		return
	}

	class := res.Class()
	outcomesTotal.WithLabelValues(class, selectionKind).Inc()

	fields := map[string]interface{}{"selection": selectionKind}
	if failed, ok := res.(models.ResultFailed); ok {
		if failed.Err != nil {
			fields["error"] = failed.Err.Error()
		}
		r.capture(failed.Err)
	}

	r.publish("flow."+class, sessionID, fields)
}

func (r *BusReporter) WalletFailure(sessionID string, err error) {
	walletFailures.Inc()
	fields := map[string]interface{}{}
	if err != nil {
		fields["error"] = err.Error()
	}
	r.capture(err)
	r.publish("wallet.failed", sessionID, fields)
}

func (r *BusReporter) GatewayEvent(eventType, intentID, status string) {
	gatewayEvents.WithLabelValues(eventType).Inc()
	r.publish("gateway."+eventType, "", map[string]interface{}{
		"intent": intentID,
		"status": status,
	})
}
