package introspect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/core/metrics"
	"github.com/dep2p/go-fabricat/internal/core/registry"
	"github.com/dep2p/go-fabricat/internal/mocks"
	"github.com/dep2p/go-fabricat/pkg/types"
)

func newTestSource(t *testing.T, m *metrics.Collector) *registry.Registry {
	t.Helper()
	table := mocks.NewMockAddressTable(
		types.LocalAddress{Addr: netip.MustParseAddr("192.0.2.10"), InterfaceID: 10, Interface: "ib0"},
	)
	reg, err := registry.New(context.Background(), config.DefaultRegistryConfig(), table, mocks.NewMockPathQueryClient(), m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	_, err = reg.Register(registry.Registration{
		LinkAddress: 0x0002c9000001,
		InterfaceID: 10,
		Owner:       types.NewOwnerID(),
		Record:      types.PortRecord{PortGUID: 0xa1, PKey: 0xffff},
		Kind:        types.TransportCached,
	})
	require.NoError(t, err)

	_, err = reg.ResolveByLinkAddress(0x0002c9000001, 0x0002c90002aa, mocks.NewRecordingHandler(), nil)
	require.ErrorIs(t, err, types.ErrPending)
	return reg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNew(t *testing.T) {
	server := New(Config{})
	assert.NotNil(t, server)
	assert.Equal(t, DefaultAddr, server.config.Addr)

	server = New(Config{Addr: "127.0.0.1:8080"})
	assert.Equal(t, "127.0.0.1:8080", server.config.Addr)
}

func TestServer_StartStop(t *testing.T) {
	server := New(Config{Addr: "127.0.0.1:0"})

	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	assert.True(t, server.running)

	addr := server.Addr()
	assert.NotEqual(t, "127.0.0.1:0", addr)
	assert.Contains(t, addr, "127.0.0.1:")

	// 重复启动无效
	require.NoError(t, server.Start(ctx))

	resp, err := http.Get("http://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop())
	assert.False(t, server.running)
	require.NoError(t, server.Stop())
}

func TestServer_Health(t *testing.T) {
	rec := get(t, New(Config{}).Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "degraded", health.Status)

	rec = get(t, New(Config{Source: newTestSource(t, nil)}).Handler(), "/health")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Ports)
}

func TestServer_Summary(t *testing.T) {
	h := New(Config{Source: newTestSource(t, nil)}).Handler()

	rec := get(t, h, "/debug/fabricat")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SummaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 4, resp.Capacity)
	assert.Equal(t, 1, resp.Addresses)
	require.Len(t, resp.Ports, 1)
	assert.Equal(t, "00:02:c9:00:00:01", resp.Ports[0].LinkAddress)
	assert.Equal(t, "cached", resp.Ports[0].Kind)
	assert.Equal(t, 1, resp.Ports[0].Routes)
	assert.NotNil(t, resp.Runtime)
}

func TestServer_Routes(t *testing.T) {
	h := New(Config{Source: newTestSource(t, nil)}).Handler()

	rec := get(t, h, "/debug/fabricat/routes?port=00:02:c9:00:00:01")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RoutesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "cached", resp.Kind)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, "00:02:c9:00:02:aa", resp.Routes[0].Dest)
	assert.Equal(t, "pending", resp.Routes[0].State)
	assert.Equal(t, 1, resp.Routes[0].Waiters)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/debug/fabricat/routes?port=bogus").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/debug/fabricat/routes?port=0x99").Code)
}

func TestServer_PortsAndAddrs(t *testing.T) {
	h := New(Config{Source: newTestSource(t, nil)}).Handler()

	var ports []PortSummary
	require.NoError(t, json.NewDecoder(get(t, h, "/debug/fabricat/ports").Body).Decode(&ports))
	require.Len(t, ports, 1)
	assert.Equal(t, uint64(10), ports[0].InterfaceID)

	var addrs []AddressEntry
	require.NoError(t, json.NewDecoder(get(t, h, "/debug/fabricat/addrs").Body).Decode(&addrs))
	require.Len(t, addrs, 1)
	assert.Equal(t, "192.0.2.10", addrs[0].Addr)
	assert.Equal(t, "ib0", addrs[0].Interface)
}

func TestServer_NoSource(t *testing.T) {
	h := New(Config{}).Handler()
	for _, path := range []string{"/debug/fabricat/ports", "/debug/fabricat/routes?port=0x1", "/debug/fabricat/addrs"} {
		assert.Equal(t, http.StatusServiceUnavailable, get(t, h, path).Code, path)
	}
	assert.Equal(t, http.StatusOK, get(t, h, "/debug/fabricat").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/metrics").Code)
}

func TestServer_Metrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m, err := metrics.New("fabricat", promReg)
	require.NoError(t, err)

	h := New(Config{Source: newTestSource(t, m), Gatherer: promReg}).Handler()

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "fabricat_ports_registered 1")
	assert.Contains(t, body, "fabricat_path_queries_total 1")
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := New(Config{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", strings.NewReader("{}")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_CustomHandlers(t *testing.T) {
	customCalled := false
	h := New(Config{
		CustomHandlers: map[string]http.HandlerFunc{
			"/custom": func(w http.ResponseWriter, _ *http.Request) {
				customCalled = true
				_, _ = w.Write([]byte("custom response"))
			},
		},
	}).Handler()

	rec := get(t, h, "/custom")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, customCalled)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "custom response", string(body))
}

func TestServer_PprofEndpoint(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(t, New(Config{}).Handler(), "/debug/pprof/").Code)
}

func TestConfigFromUnified(t *testing.T) {
	assert.Nil(t, ConfigFromUnified(nil))

	cfg := config.NewConfig()
	assert.Nil(t, ConfigFromUnified(cfg))

	cfg.Introspect.Enable = true
	c := ConfigFromUnified(cfg)
	require.NotNil(t, c)
	assert.Equal(t, config.DefaultIntrospectAddr, c.Addr)
}
