package types

// ============================================================================
//                              TransportKind - 传输模式
// ============================================================================

// TransportKind 路由器传输模式，在创建时固定
type TransportKind int

const (
	// TransportCached 缓存模式：目的身份需要经路径查询解析
	TransportCached TransportKind = iota
	// TransportDirect 直连模式：目的身份可由链路地址本地推导，无需缓存
	TransportDirect
)

// String 返回传输模式的字符串表示
func (k TransportKind) String() string {
	switch k {
	case TransportCached:
		return "cached"
	case TransportDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              RouteState - 路由状态
// ============================================================================

// RouteState 路由解析状态
type RouteState int

const (
	// RouteUnresolved 未解析：无未完成查询，无缓存结果
	RouteUnresolved RouteState = iota
	// RoutePending 解析中：有一个未完成查询
	RoutePending
	// RouteResolved 已解析：缓存的路径记录有效
	RouteResolved
)

// String 返回路由状态的字符串表示
func (s RouteState) String() string {
	switch s {
	case RouteUnresolved:
		return "unresolved"
	case RoutePending:
		return "pending"
	case RouteResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              QueryStatus - 查询结果
// ============================================================================

// QueryStatus 路径查询客户端上报的完成状态
type QueryStatus int

const (
	// QuerySuccess 查询成功，路径记录有效
	QuerySuccess QueryStatus = iota
	// QueryCancelled 查询被显式取消
	QueryCancelled
	// QuerySuperseded 查询因被更新的请求取代而取消
	QuerySuperseded
	// QueryTimedOut 查询超时
	QueryTimedOut
	// QueryFailed 其他协议层错误
	QueryFailed
)

// String 返回查询状态的字符串表示
func (s QueryStatus) String() string {
	switch s {
	case QuerySuccess:
		return "success"
	case QueryCancelled:
		return "cancelled"
	case QuerySuperseded:
		return "superseded"
	case QueryTimedOut:
		return "timeout"
	case QueryFailed:
		return "failed"
	default:
		return "unknown"
	}
}
