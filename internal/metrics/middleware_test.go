package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
)

func observedLogger() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewFromZap(zap.New(core)), logs
}

func TestScrapeLogging(t *testing.T) {
	logger, logs := observedLogger()
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}), withScrapeLogging(logger), withRecovery(logger))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	entries := logs.FilterMessage("Metrics scraped").All()
	require.Len(t, entries, 1)
	require.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
	require.EqualValues(t, 2, entries[0].ContextMap()["bytes"])
}

func TestRecovery(t *testing.T) {
	logger, logs := observedLogger()
	handler := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("collector broke")
	}), withScrapeLogging(logger), withRecovery(logger))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("Metrics handler panicked").Len())
	scraped := logs.FilterMessage("Metrics scraped").All()
	require.Len(t, scraped, 1)
	require.EqualValues(t, http.StatusInternalServerError, scraped[0].ContextMap()["status"])
}
