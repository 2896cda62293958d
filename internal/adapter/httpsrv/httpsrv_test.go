package httpsrv

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServer_ServesHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("reachable_targets_up 1\n"))
	})

	base := startTestServer(t, ServerOptions{MetricsHandler: metrics, MetricsPath: "/custom"})

	code, body := get(t, base+"/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", body)

	code, body = get(t, base+"/custom")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "reachable_targets_up")

	code, _ = get(t, base+"/metrics")
	require.Equal(t, http.StatusNotFound, code)
}

func TestServer_UnhealthyWhenCheckFails(t *testing.T) {
	base := startTestServer(t, ServerOptions{
		Health: func() error { return errors.New("executor is shut down") },
	})

	code, body := get(t, base+"/health")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "executor is shut down", body)
}

func startTestServer(t *testing.T, opts ServerOptions) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(ln.Addr().String(), opts)
	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, srv.Shutdown(ctx))
		require.NoError(t, <-errCh)
	})

	return "http://" + ln.Addr().String()
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}
