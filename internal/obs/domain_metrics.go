package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentsIssuedTotal counts issued documents by kind.
	DocumentsIssuedTotal *prometheus.CounterVec
	// PaymentsRecordedTotal counts recorded payments by method.
	PaymentsRecordedTotal *prometheus.CounterVec
	// PDFRenderTotal counts PDF render outcomes by document kind.
	PDFRenderTotal *prometheus.CounterVec
	// PDFRenderDuration records PDF rendering latency in milliseconds.
	PDFRenderDuration prometheus.Histogram
	// RemindersSentTotal counts payment reminder outcomes.
	RemindersSentTotal *prometheus.CounterVec
	// EmailDeliveriesTotal tracks email delivery outcomes.
	EmailDeliveriesTotal *prometheus.CounterVec
	// EmailDispatchAttempts counts dispatcher attempts regardless of outcome.
	EmailDispatchAttempts prometheus.Counter
	// EmailDispatchDLQ counts deliveries moved to the dead-letter queue.
	EmailDispatchDLQ prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentsIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_issued_total",
			Help:      "Count of issued documents by kind.",
		}, []string{"kind"})
		PaymentsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Count of recorded payments by method.",
		}, []string{"method"})
		PDFRenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_render_total",
			Help:      "Count of PDF render outcomes by document kind.",
		}, []string{"kind", "result"})
		PDFRenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_render_duration_ms",
			Help:      "Latency for PDF rendering in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		})
		RemindersSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Count of payment reminder outcomes.",
		}, []string{"result"})
		EmailDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Count of email delivery outcomes.",
		}, []string{"result"})
		EmailDispatchAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_dispatch_attempts_total",
			Help:      "Total number of email dispatch attempts.",
		})
		EmailDispatchDLQ = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_dispatch_dlq_total",
			Help:      "Number of email deliveries moved to the dead-letter queue.",
		})

		mustRegisterCollector(reg, DocumentsIssuedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentsIssuedTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentsRecordedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentsRecordedTotal = v
			}
		})
		mustRegisterCollector(reg, PDFRenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PDFRenderTotal = v
			}
		})
		mustRegisterCollector(reg, PDFRenderDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				PDFRenderDuration = v
			}
		})
		mustRegisterCollector(reg, RemindersSentTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RemindersSentTotal = v
			}
		})
		mustRegisterCollector(reg, EmailDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EmailDeliveriesTotal = v
			}
		})
		mustRegisterCollector(reg, EmailDispatchAttempts, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				EmailDispatchAttempts = v
			}
		})
		mustRegisterCollector(reg, EmailDispatchDLQ, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				EmailDispatchDLQ = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
