package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
)

func localConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, localConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := localConfig()
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_AddressInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := localConfig()
	cfg.HTTPAddr = busy.Addr().String()

	err = Run(context.Background(), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen http")
}

func TestMetricsHandler_Endpoints(t *testing.T) {
	handler := healthcheck.NewHandler("test")
	srv := httptest.NewServer(newMetricsHandler(handler))
	defer srv.Close()

	for path, want := range map[string]string{
		"/livez":  "ok",
		"/readyz": "ready",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, want, string(body), path)
	}

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health healthcheck.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, healthcheck.StatusHealthy, health.Status)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestNewHTTPHandler_OrderFlowEnqueuesEvent(t *testing.T) {
	logger := log.WithField("test", "http-flow")
	deps, err := initRuntimeDependencies(context.Background(), localConfig(), logger)
	require.NoError(t, err)
	defer deps.close(logger)

	srv := httptest.NewServer(newHTTPHandler(localConfig(), deps, logger))
	defer srv.Close()

	post := func(path, body string) map[string]any {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode, path)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	customer := post("/customers", `{"name":"Ann","email":"ann@example.com"}`)
	product := post("/products", `{"name":"Widget","price_minor":500,"quantity":10}`)
	order := post("/orders", `{"customer_id":"`+customer["id"].(string)+`","products":[{"id":"`+product["id"].(string)+`","quantity":4}]}`)
	require.NotEmpty(t, order["id"])

	stats, err := deps.outboxRepo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
}

func TestNewGRPCServer_HealthServing(t *testing.T) {
	server, healthServer := newGRPCServer(log.WithField("test", "grpc"))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	healthServer.Shutdown()
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
