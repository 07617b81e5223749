package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"multical/internal/model"
)

var (
	operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multical_operations_total",
			Help: "Calendar operations by name and outcome",
		},
		[]string{"op", "result"},
	)

	storedEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "multical_stored_events",
			Help: "Distinct events stored per calendar",
		},
		[]string{"calendar"},
	)

	importedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multical_imported_events_total",
			Help: "Events added from ICS feeds per calendar",
		},
		[]string{"calendar"},
	)
)

// Result classes an error into the label used by Observe.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// Observe counts one finished operation.
func Observe(op string, err error) {
	operations.WithLabelValues(op, Result(err)).Inc()
}

func SetStoredEvents(calendar string, n int) {
	storedEvents.WithLabelValues(calendar).Set(float64(n))
}

// ForgetCalendar drops the gauge of a renamed calendar.
func ForgetCalendar(calendar string) {
	storedEvents.DeleteLabelValues(calendar)
}

func AddImported(calendar string, n int) {
	importedEvents.WithLabelValues(calendar).Add(float64(n))
}
