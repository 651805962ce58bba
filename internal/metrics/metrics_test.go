package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/enhancify/internal/shared/logging"
)

func TestNew_PrivateRegistry(t *testing.T) {
	first := New(nil)
	second := New(nil)

	first.JobsDispatched.Inc()

	require.Equal(t, 1.0, testutil.ToFloat64(first.JobsDispatched))
	require.Equal(t, 0.0, testutil.ToFloat64(second.JobsDispatched))
}

func TestObserveResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveResult(100*time.Millisecond, false)
	c.ObserveResult(200*time.Millisecond, false)
	c.ObserveResult(time.Second, true)

	require.Equal(t, 2.0, testutil.ToFloat64(c.JobsCompleted.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.JobsCompleted.WithLabelValues("failed")))
	require.Equal(t, 1, testutil.CollectAndCount(c.JobDuration))
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.WorkersLaunched.WithLabelValues("inprocess").Add(3)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, reg, logging.NewNopLogger())
	}()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.Contains(t, body, `enhancify_workers_launched_total{mechanism="inprocess"} 3`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
