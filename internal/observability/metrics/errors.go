package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/console-panel/internal/errors"
)

// ErrorMetrics counts built errors by component, category and priority.
type ErrorMetrics struct {
	errorsTotal *prometheus.CounterVec
}

// NewErrorMetrics creates and registers the error counter
func NewErrorMetrics(registry *prometheus.Registry) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors built, by component, category and priority",
			},
			[]string{"component", "category", "priority"},
		),
	}
	if err := registry.Register(m.errorsTotal); err != nil {
		return nil, err
	}
	return m, nil
}

// Hook returns an error hook for errors.AddErrorHook
func (m *ErrorMetrics) Hook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		priority := ee.GetPriority()
		if priority == "" {
			priority = "unset"
		}
		m.errorsTotal.WithLabelValues(ee.GetComponent(), ee.GetCategory(), priority).Inc()
	}
}
