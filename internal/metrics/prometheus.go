package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder on top of client_golang collectors.
type Prometheus struct {
	transfers       *prometheus.CounterVec
	transferLatency *prometheus.HistogramVec
	grants          *prometheus.CounterVec
	chatPublished   prometheus.Counter
	chatDelivered   prometheus.Counter
	chatDropped     prometheus.Counter
	chatSubscribers prometheus.Gauge
}

func NewPrometheus(namespace string) *Prometheus {
	return &Prometheus{
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Transfers by outcome",
			},
			[]string{"result"},
		),
		transferLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer latency including lock waits and retries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		grants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grants_total",
				Help:      "Currency grants by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		chatPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_published_total",
			Help:      "Chat events accepted for broadcast",
		}),
		chatDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_delivered_total",
			Help:      "Chat events enqueued to a subscriber",
		}),
		chatDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_dropped_total",
			Help:      "Chat events skipped because a subscriber buffer was full",
		}),
		chatSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_subscribers",
			Help:      "Currently connected chat subscribers",
		}),
	}
}

// Register registers all collectors with the given registry.
func (p *Prometheus) Register(registry prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		p.transfers,
		p.transferLatency,
		p.grants,
		p.chatPublished,
		p.chatDelivered,
		p.chatDropped,
		p.chatSubscribers,
	} {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prometheus) RecordTransfer(result string, duration time.Duration) {
	p.transfers.WithLabelValues(result).Inc()
	p.transferLatency.WithLabelValues(result).Observe(duration.Seconds())
}

func (p *Prometheus) RecordGrant(kind, result string) {
	p.grants.WithLabelValues(kind, result).Inc()
}

func (p *Prometheus) RecordChatPublished(recipients int) {
	p.chatPublished.Inc()
	p.chatDelivered.Add(float64(recipients))
}

func (p *Prometheus) RecordChatDropped() {
	p.chatDropped.Inc()
}

func (p *Prometheus) SetChatSubscribers(count int) {
	p.chatSubscribers.Set(float64(count))
}
