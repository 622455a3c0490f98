package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carte/internal/metrics"
	"github.com/sells-group/carte/internal/viewer"
)

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
	assert.Equal(t, 8080, resolvePort(0, 8080))
	assert.Equal(t, 0, resolvePort(0, 0))
}

func TestViewerOptions(t *testing.T) {
	useFixtures(t)
	cfg.Viewer.DebounceMillis = 250

	opts := viewerOptions()
	assert.Equal(t, 250*time.Millisecond, opts.Debounce)
	assert.Equal(t, float64(14), opts.MinZoom)
	assert.True(t, opts.ShowOffices)
	assert.Equal(t, []string{"AMO", "MOM", "EXP"}, opts.Categories)
}

func TestServeCmd_RunE_FailsOnValidation(t *testing.T) {
	useFixtures(t)
	cfg.Server.Port = 0
	withContext(t, serveCmd)

	err := serveCmd.RunE(serveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be between 1 and 65535")
}

func TestBuildHandler(t *testing.T) {
	useFixtures(t)
	env, err := initCatalog("serve", metrics.New())
	require.NoError(t, err)
	d := env.load(context.Background())
	require.Empty(t, d.Status())

	reg := viewer.NewRegistry(env.Loader, viewerOptions(), time.Minute)
	srv := httptest.NewServer(buildHandler(env, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 1, body["generation"])

	resp2, err := http.Get(srv.URL + "/api/v1/projects?type=AMO")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestReloadLoop_StopsOnCancel(t *testing.T) {
	useFixtures(t)
	env, err := initCatalog("filter", nil)
	require.NoError(t, err)
	env.load(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reloadLoop(ctx, env, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload loop did not stop")
	}
	// Sources are unchanged, so reloads never bump the generation.
	assert.EqualValues(t, 1, env.Loader.Current().Generation)
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, mux, port)
	}()

	var ready bool
	for i := 0; i < 50; i++ {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			_ = resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
