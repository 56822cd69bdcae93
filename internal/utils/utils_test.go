package utils

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsCollectorConcurrentCounters(t *testing.T) {
	m := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.IncrementCounter("hits")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), m.GetCounterValue("hits"))
	assert.Equal(t, int64(0), m.GetCounterValue("missing"))
}

func TestMetricsCollectorGaugesAndHistograms(t *testing.T) {
	m := NewMetricsCollector()
	m.SetGauge("active", 3)
	m.IncGauge("active")
	m.DecGauge("active")
	m.DecGauge("active")
	assert.Equal(t, int64(2), m.GetGauge("active"))

	for _, v := range []int64{5, 1, 9} {
		m.RecordHistogram("latency", v)
	}
	snapshot := m.GetMetrics()
	hist := snapshot["histograms"].(map[string]map[string]int64)["latency"]
	assert.Equal(t, int64(3), hist["count"])
	assert.Equal(t, int64(15), hist["sum"])
	assert.Equal(t, int64(1), hist["min"])
	assert.Equal(t, int64(9), hist["max"])
}

func TestSplitMetricsRecordSplit(t *testing.T) {
	m := NewMetricsCollector()
	sm := NewSplitMetrics(m)

	sm.RecordSplit("hybrid", "rule_based", true, 4, 12*time.Millisecond)
	sm.RecordSplit("hybrid", "", false, 0, time.Millisecond)
	sm.RecordAIFallback()

	assert.Equal(t, int64(2), m.GetCounterValue("split_requests_total"))
	assert.Equal(t, int64(1), m.GetCounterValue("split_failures_total"))
	assert.Equal(t, int64(1), m.GetCounterValue("split_method_rule_based"))
	assert.Equal(t, int64(4), m.GetCounterValue("split_scenes_total"))
	assert.Equal(t, int64(1), m.GetCounterValue("split_ai_fallbacks_total"))
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := GetLogger()
	logger.UseZap(zap.New(core))

	logger.Warn("AI split failed", map[string]interface{}{
		"err":      errors.New("timeout"),
		"strategy": "hybrid",
	})
	logger.Infof("split %d scenes", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "hybrid", ctx["strategy"])
	assert.Equal(t, "timeout", ctx["err"])
	assert.Equal(t, "split 3 scenes", entries[1].Message)

	logger.Enable(false)
	logger.Info("dropped", nil)
	logger.Enable(true)
	assert.Len(t, logs.All(), 2)
}

func TestInitLoggerCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "app.log")

	require.NoError(t, InitLogger(logFile, true))
	GetLogger().Info("hello", nil)
	_ = GetLogger().Sync()
	assert.FileExists(t, logFile)
}

func TestSecretRoundTrip(t *testing.T) {
	sealed, err := EncryptSecret("sk-test-123", "passphrase")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "sk-test-123")

	opened, err := DecryptSecret(sealed, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", opened)

	_, err = DecryptSecret(sealed, "wrong")
	assert.Error(t, err)
}
