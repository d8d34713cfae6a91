package middleware

import (
	"context"

	"github.com/startdusk/go-batis/batis/statement"
)

// Op 是会话层面的操作
type Op uint8

const (
	OpSelectOne Op = iota
	OpSelectMany
	OpExecute
)

func (o Op) String() string {
	switch o {
	case OpSelectOne:
		return "selectOne"
	case OpSelectMany:
		return "selectMany"
	default:
		return "execute"
	}
}

type QueryContext struct {
	// Type 声明语句类型 即 SELECT, UPDATE, DELETE 和 INSERT
	Type string
	Op   Op

	StatementID string
	Statement   *statement.Statement

	// Bound 和 Args 是即将执行的 SQL 和绑定好的参数, 中间件可以篡改
	Bound *statement.BoundSQL
	Args  []any

	// Param 是调用方传入的参数对象
	Param any
}

type Middleware func(next Handler) Handler

type Handler func(ctx context.Context, qc *QueryContext) *QueryResult

type QueryResult struct {
	// Result 在不同的操作里面, 类型是不同的
	// OpSelectOne 是映射好的单个结果
	// OpSelectMany 是 *batis.Cursor, 实现了 Stream
	// OpExecute 是 int64 类型的影响行数
	Result any
	Err    error
}

// Stream 是延迟产出结果的游标.
// 需要在结果流结束时做点什么的中间件(比如结束 span)用 OnClose 注册回调,
// err 是游标的最终错误, 正常结束或者被调用方关闭的时候为 nil
type Stream interface {
	OnClose(fn func(err error))
}

// Chain 按顺序组装中间件, mdls[0] 在最外层
func Chain(root Handler, mdls ...Middleware) Handler {
	for i := len(mdls) - 1; i >= 0; i-- {
		root = mdls[i](root)
	}
	return root
}
