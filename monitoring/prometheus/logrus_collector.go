// Package prometheus exposes logrus activity of the epoch transition tooling as
// prometheus metrics.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const (
	prefixKey     = "prefix"
	defaultPrefix = "global"
)

var (
	supportedLevels = []logrus.Level{logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	logEntries      = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "log_entries_total",
		Help: "Total number of log messages.",
	}, []string{"level", "prefix"})
)

// LogrusCollector is a logrus hook counting log entries per level and package prefix.
type LogrusCollector struct {
	counterVec *prometheus.CounterVec
}

// NewLogrusCollector returns a hook backed by the process wide log entry counter.
func NewLogrusCollector() *LogrusCollector {
	return &LogrusCollector{
		counterVec: logEntries,
	}
}

// Fire is called on every log call.
func (hook *LogrusCollector) Fire(entry *logrus.Entry) error {
	prefix := defaultPrefix
	if v, ok := entry.Data[prefixKey]; ok {
		prefix = fmt.Sprint(v)
	}
	hook.counterVec.WithLabelValues(entry.Level.String(), prefix).Inc()
	return nil
}

// Levels returns the levels the hook fires for.
func (*LogrusCollector) Levels() []logrus.Level {
	return supportedLevels
}
