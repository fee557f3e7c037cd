package prometheus

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogrusCollector_CountsByPrefix(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(NewLogrusCollector())

	transitionLog := logEntries.WithLabelValues("info", "transition")
	globalLog := logEntries.WithLabelValues("error", defaultPrefix)
	transitionBefore := testutil.ToFloat64(transitionLog)
	globalBefore := testutil.ToFloat64(globalLog)

	logger.WithField(prefixKey, "transition").Info("Processed epoch")
	logger.WithField(prefixKey, "transition").Info("Processed epoch")
	logger.Error("Could not process epoch")
	logger.Debug("Not counted")

	assert.Equal(t, transitionBefore+2, testutil.ToFloat64(transitionLog))
	assert.Equal(t, globalBefore+1, testutil.ToFloat64(globalLog))
}
