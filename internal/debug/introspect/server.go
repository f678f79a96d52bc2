package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/internal/core/registry"
	"github.com/dep2p/go-fabricat/internal/core/router"
	"github.com/dep2p/go-fabricat/pkg/lib/log"
	"github.com/dep2p/go-fabricat/pkg/types"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = config.DefaultIntrospectAddr

// ============================================================================
//                              配置
// ============================================================================

// Source 诊断数据来源，由 *registry.Registry 实现
type Source interface {
	Ports() []registry.PortInfo
	Addresses() []types.LocalAddress
	Capacity() int
	Router(local types.LinkAddress) (*router.Router, error)
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6070"
	Addr string

	// Source 可选的端口注册表
	Source Source

	// Gatherer 可选的指标来源，为 nil 时不挂载 /metrics
	Gatherer prometheus.Gatherer

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地诊断 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建诊断服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		config:    cfg,
		startTime: time.Now(),
	}
}

// Handler 返回服务的路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/fabricat", s.handleSummary)
	mux.HandleFunc("/debug/fabricat/ports", s.handlePorts)
	mux.HandleFunc("/debug/fabricat/routes", s.handleRoutes)
	mux.HandleFunc("/debug/fabricat/addrs", s.handleAddrs)
	mux.HandleFunc("/debug/fabricat/runtime", s.handleRuntime)

	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/health", s.handleHealth)

	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("诊断服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("诊断服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭诊断服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("诊断服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// SummaryResponse 汇总报告
type SummaryResponse struct {
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Capacity  int           `json:"capacity"`
	Ports     []PortSummary `json:"ports"`
	Addresses int           `json:"addresses"`
	Runtime   *RuntimeInfo  `json:"runtime,omitempty"`
}

// PortSummary 端口摘要
type PortSummary struct {
	registry.PortInfo
	LinkAddress string `json:"link_address"`
	Kind        string `json:"kind"`
}

// AddressEntry 地址表条目
type AddressEntry struct {
	Addr        string `json:"addr"`
	InterfaceID uint64 `json:"interface_id"`
	Interface   string `json:"interface,omitempty"`
}

// RouteEntry 路由缓存条目
type RouteEntry struct {
	router.RouteInfo
	Dest string `json:"dest"`
}

// RoutesResponse 路由缓存响应
type RoutesResponse struct {
	Port   string       `json:"port"`
	Kind   string       `json:"kind"`
	Routes []RouteEntry `json:"routes"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
	Ports     int       `json:"ports"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := SummaryResponse{
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
		Ports:     []PortSummary{},
		Runtime:   collectRuntimeInfo(),
	}
	if src := s.config.Source; src != nil {
		resp.Capacity = src.Capacity()
		resp.Ports = collectPorts(src)
		resp.Addresses = len(src.Addresses())
	}
	s.writeJSON(w, resp)
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Source == nil {
		http.Error(w, "Registry not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, collectPorts(s.config.Source))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Source == nil {
		http.Error(w, "Registry not available", http.StatusServiceUnavailable)
		return
	}

	port, err := types.ParseLinkAddress(r.URL.Query().Get("port"))
	if err != nil {
		http.Error(w, "Invalid port: "+err.Error(), http.StatusBadRequest)
		return
	}
	rt, err := s.config.Source.Router(port)
	if err != nil {
		http.Error(w, "Port not found", http.StatusNotFound)
		return
	}

	infos := rt.Routes()
	resp := RoutesResponse{
		Port:   port.String(),
		Kind:   rt.Kind().String(),
		Routes: make([]RouteEntry, len(infos)),
	}
	for i, info := range infos {
		resp.Routes[i] = RouteEntry{RouteInfo: info, Dest: info.Dest.String()}
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleAddrs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Source == nil {
		http.Error(w, "Registry not available", http.StatusServiceUnavailable)
		return
	}

	addrs := s.config.Source.Addresses()
	out := make([]AddressEntry, len(addrs))
	for i, a := range addrs {
		out[i] = AddressEntry{Addr: a.Addr.String(), InterfaceID: a.InterfaceID, Interface: a.Interface}
	}
	s.writeJSON(w, out)
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, collectRuntimeInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	}
	if s.config.Source == nil {
		health.Status = "degraded"
	} else {
		health.Ports = len(s.config.Source.Ports())
	}
	s.writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func collectPorts(src Source) []PortSummary {
	ports := src.Ports()
	out := make([]PortSummary, len(ports))
	for i, p := range ports {
		out[i] = PortSummary{
			PortInfo:    p,
			LinkAddress: p.LinkAddress.String(),
			Kind:        p.Kind.String(),
		}
	}
	return out
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
