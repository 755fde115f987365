package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terraconstructs/taskgate/internal/config"
)

func TestRunServers_StopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runServers(ctx, zap.NewNop(), []*http.Server{srv}) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("servers did not shut down")
	}
}

func TestBuilder_BuildsEveryComponent(t *testing.T) {
	c := &config.Config{
		DatabaseURL:       ":memory:",
		Gateway:           config.ListenConfig{Addr: ":0"},
		Users:             config.ServiceConfig{Addr: ":0", URL: "http://127.0.0.1:1"},
		Tasks:             config.ServiceConfig{Addr: ":0", URL: "http://127.0.0.1:2"},
		Submissions:       config.ServiceConfig{Addr: ":0", URL: "http://127.0.0.1:3"},
		JWT:               config.JWTConfig{SigningKey: "0123456789abcdef0123456789abcdef", TTL: time.Hour},
		CORS:              config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}, MaxAge: 3600},
		BcryptCost:        4,
		DependencyTimeout: time.Second,
	}
	b := &builder{cfg: c, logger: zap.NewNop()}
	defer b.close()

	for _, name := range []string{"users", "tasks", "submissions", "gateway"} {
		srv, err := b.build(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotNil(t, srv.Handler)
	}
	assert.Same(t, b.bundle.DB, b.db)

	_, err := b.build(context.Background(), "nope")
	assert.Error(t, err)
}

func TestBuilder_GatewayNeedsSigningKey(t *testing.T) {
	c := &config.Config{
		Users:       config.ServiceConfig{URL: "http://127.0.0.1:1"},
		Tasks:       config.ServiceConfig{URL: "http://127.0.0.1:2"},
		Submissions: config.ServiceConfig{URL: "http://127.0.0.1:3"},
		JWT:         config.JWTConfig{SigningKey: "short", TTL: time.Hour},
	}
	b := &builder{cfg: c, logger: zap.NewNop()}
	_, err := b.build(context.Background(), "gateway")
	assert.Error(t, err)
}

func TestBuilder_ServesMetricsOnEveryComponent(t *testing.T) {
	c := &config.Config{
		DatabaseURL:       ":memory:",
		Gateway:           config.ListenConfig{Addr: ":0"},
		Users:             config.ServiceConfig{Addr: ":0", URL: "http://127.0.0.1:1"},
		Tasks:             config.ServiceConfig{Addr: ":0", URL: "http://127.0.0.1:2"},
		Submissions:       config.ServiceConfig{Addr: ":0", URL: "http://127.0.0.1:3"},
		JWT:               config.JWTConfig{SigningKey: "0123456789abcdef0123456789abcdef", TTL: time.Hour},
		BcryptCost:        4,
		DependencyTimeout: time.Second,
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# scraped"))
	})
	b := &builder{cfg: c, logger: zap.NewNop(), metricsHandler: metrics}
	defer b.close()

	for _, name := range []string{"users", "tasks", "submissions", "gateway"} {
		srv, err := b.build(context.Background(), name)
		require.NoError(t, err, name)

		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "# scraped", rec.Body.String(), name)
	}
}
