package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/store"
)

// Collector counts store and reminder activity. It is a store.Observer and a
// reminder.Notifier so it can be plugged in next to the real ones.
type Collector struct {
	TaskCount      prometheus.Gauge
	CompletedCount prometheus.Gauge
	Mutations      *prometheus.CounterVec
	PersistErrors  prometheus.Counter
	RemindersFired prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		TaskCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskboard_tasks",
			Help: "Number of tasks in the list",
		}),
		CompletedCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskboard_tasks_completed",
			Help: "Number of completed tasks in the list",
		}),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_mutations_total",
				Help: "Store mutations by kind",
			},
			[]string{"kind"},
		),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_persist_errors_total",
			Help: "Writes to the backing store that failed",
		}),
		RemindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_reminders_fired_total",
			Help: "Due-today reminders raised",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.TaskCount, c.CompletedCount, c.Mutations, c.PersistErrors, c.RemindersFired)
	}
	return c
}

func (c *Collector) Mutation(kind store.ChangeKind) {
	c.Mutations.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) PersistError() {
	c.PersistErrors.Inc()
}

func (c *Collector) Tasks(total, completed int) {
	c.TaskCount.Set(float64(total))
	c.CompletedCount.Set(float64(completed))
}

func (c *Collector) Notify(context.Context, model.Notification) error {
	c.RemindersFired.Inc()
	return nil
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
