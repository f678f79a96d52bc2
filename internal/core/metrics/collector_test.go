package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-fabricat/config"
	"github.com/dep2p/go-fabricat/pkg/types"
)

// TestCollector_NilSafe 测试 nil 收集器为空操作
func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.CacheHit()
		c.CacheMiss()
		c.QuerySubmitted()
		c.QuerySubmitFailed()
		c.QueryCompleted(types.QuerySuccess)
		c.WaitersNotified(3)
		c.SetPorts(2)
		c.AddressTableRefreshed(5, nil)
	})
}

// TestCollector_Counts 测试计数
func TestCollector_Counts(t *testing.T) {
	c, err := New("test", nil)
	require.NoError(t, err)

	c.CacheHit()
	c.CacheHit()
	c.CacheMiss()
	c.QuerySubmitted()
	c.QuerySubmitFailed()
	c.QueryCompleted(types.QuerySuccess)
	c.QueryCompleted(types.QueryTimedOut)
	c.QueryCompleted(types.QueryTimedOut)
	c.WaitersNotified(0)
	c.WaitersNotified(3)
	c.SetPorts(2)
	c.AddressTableRefreshed(5, nil)
	c.AddressTableRefreshed(0, errors.New("netlink"))

	assert.Equal(t, float64(2), testutil.ToFloat64(c.CacheHits()))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.CacheMisses()))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Queries()))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.SubmitFailures()))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Completions(types.QuerySuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.Completions(types.QueryTimedOut)))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.WaitersNotifiedCounter()))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.Ports()))
	// 失败的刷新不覆盖条目数
	assert.Equal(t, float64(5), testutil.ToFloat64(c.AddressEntries()))
}

// TestNew_DuplicateRegistration 测试重复注册到同一注册表
func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("fabricat", reg)
	require.NoError(t, err)

	_, err = New("fabricat", reg)
	assert.Error(t, err)

	// 不同命名空间可以共存
	_, err = New("other", reg)
	assert.NoError(t, err)
}

// TestNewFromParams 测试 Fx 构造
func TestNewFromParams(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Metrics.Enabled = false
		out, err := NewFromParams(Params{Config: cfg})
		require.NoError(t, err)
		assert.Nil(t, out.Collector)
		assert.Nil(t, out.Gatherer)
	})

	t.Run("PrivateRegistry", func(t *testing.T) {
		out, err := NewFromParams(Params{})
		require.NoError(t, err)
		require.NotNil(t, out.Collector)
		require.NotNil(t, out.Gatherer)

		out.Collector.SetPorts(1)
		n, err := testutil.GatherAndCount(out.Gatherer, "fabricat_ports_registered")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("InjectedRegisterer", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		cfg := config.NewConfig()
		cfg.Metrics.Namespace = "ib"
		out, err := NewFromParams(Params{Config: cfg, Registerer: reg})
		require.NoError(t, err)
		assert.Same(t, reg, out.Gatherer)

		out.Collector.QuerySubmitted()
		assert.Equal(t, float64(1), testutil.ToFloat64(out.Collector.Queries()))
		n, err := testutil.GatherAndCount(reg, "ib_path_queries_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
