package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-fabricat/pkg/types"
)

// Collector 路径缓存指标收集器
type Collector struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	queries          prometheus.Counter
	submitFailures   prometheus.Counter
	completions      *prometheus.CounterVec
	waitersNotified  prometheus.Counter
	ports            prometheus.Gauge
	addressEntries   prometheus.Gauge
	addressRefreshes *prometheus.CounterVec
}

// New 创建收集器并注册到 reg
//
// reg 为 nil 时只创建不注册（测试中直接读取计数）。
func New(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_cache_hits_total",
			Help:      "Resolutions answered synchronously from a resolved route.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_cache_misses_total",
			Help:      "Resolutions that joined a pending wait or started a query.",
		}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_queries_total",
			Help:      "Path queries submitted to the query client.",
		}),
		submitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_query_submit_failures_total",
			Help:      "Path queries the query client refused to accept.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_query_completions_total",
			Help:      "Path query completions by outcome.",
		}, []string{"outcome"}),
		waitersNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_waiters_notified_total",
			Help:      "Waiter callbacks invoked.",
		}),
		ports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ports_registered",
			Help:      "Local fabric ports currently registered.",
		}),
		addressEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "address_table_entries",
			Help:      "Entries in the last local address table snapshot.",
		}),
		addressRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_table_refreshes_total",
			Help:      "Local address table refreshes by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		for _, col := range c.collectors() {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.cacheHits, c.cacheMisses, c.queries, c.submitFailures, c.completions,
		c.waitersNotified, c.ports, c.addressEntries, c.addressRefreshes,
	}
}

// CacheHit 记录一次缓存命中
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// CacheMiss 记录一次缓存未命中
func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}

// QuerySubmitted 记录一次查询提交
func (c *Collector) QuerySubmitted() {
	if c == nil {
		return
	}
	c.queries.Inc()
}

// QuerySubmitFailed 记录一次提交失败
func (c *Collector) QuerySubmitFailed() {
	if c == nil {
		return
	}
	c.submitFailures.Inc()
}

// QueryCompleted 记录一次查询完成
func (c *Collector) QueryCompleted(status types.QueryStatus) {
	if c == nil {
		return
	}
	c.completions.WithLabelValues(status.String()).Inc()
}

// WaitersNotified 记录通知的等待者数量
func (c *Collector) WaitersNotified(n int) {
	if c == nil || n == 0 {
		return
	}
	c.waitersNotified.Add(float64(n))
}

// SetPorts 设置已注册端口数
func (c *Collector) SetPorts(n int) {
	if c == nil {
		return
	}
	c.ports.Set(float64(n))
}

// AddressTableRefreshed 记录一次地址表刷新
func (c *Collector) AddressTableRefreshed(entries int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.addressRefreshes.WithLabelValues("error").Inc()
		return
	}
	c.addressRefreshes.WithLabelValues("ok").Inc()
	c.addressEntries.Set(float64(entries))
}

// ============================================================================
//                              读取（诊断与测试）
// ============================================================================

// CacheHits 返回缓存命中计数器
func (c *Collector) CacheHits() prometheus.Counter { return c.cacheHits }

// CacheMisses 返回缓存未命中计数器
func (c *Collector) CacheMisses() prometheus.Counter { return c.cacheMisses }

// Queries 返回查询提交计数器
func (c *Collector) Queries() prometheus.Counter { return c.queries }

// SubmitFailures 返回提交失败计数器
func (c *Collector) SubmitFailures() prometheus.Counter { return c.submitFailures }

// Completions 返回指定结果的查询完成计数器
func (c *Collector) Completions(status types.QueryStatus) prometheus.Counter {
	return c.completions.WithLabelValues(status.String())
}

// WaitersNotifiedCounter 返回等待者通知计数器
func (c *Collector) WaitersNotifiedCounter() prometheus.Counter { return c.waitersNotified }

// Ports 返回已注册端口数仪表
func (c *Collector) Ports() prometheus.Gauge { return c.ports }

// AddressEntries 返回地址表条目数仪表
func (c *Collector) AddressEntries() prometheus.Gauge { return c.addressEntries }
