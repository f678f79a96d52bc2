package interfaces

import (
	"github.com/dep2p/go-fabricat/pkg/types"
)

// PathQuery 路径查询输入
type PathQuery struct {
	// Source 源端身份
	Source types.FabricID

	// Dest 目的端身份
	Dest types.FabricID

	// PKey 分区键
	PKey uint16
}

// QueryResult 路径查询完成结果
type QueryResult struct {
	// Status 完成状态
	Status types.QueryStatus

	// Path 查询成功时的路径记录
	Path types.PathRecord

	// Err 失败时的底层错误（可选）
	Err error
}

// QueryHandle 未完成查询的不透明句柄
type QueryHandle uint64

// QueryCompletion 查询完成回调
//
// 对每个成功提交的查询恰好调用一次，可能发生在任意 goroutine 上，
// 也可能在 SubmitQuery 返回之前。
type QueryCompletion func(QueryResult)

// PathQueryClient 子网管理路径查询客户端
//
// 网络往返由客户端完成，本模块不实现查询协议本身。
type PathQueryClient interface {
	// SubmitQuery 提交查询（非阻塞）
	//
	// 返回错误时 done 不会被调用。
	SubmitQuery(q PathQuery, done QueryCompletion) (QueryHandle, error)

	// CancelQuery 请求取消查询（非阻塞，尽力而为）
	//
	// 取消不会抑制完成回调：被取消的查询仍以 QueryCancelled
	// 或其最终结果完成一次。
	CancelQuery(h QueryHandle)
}
