package batis

import (
	"context"

	"github.com/startdusk/go-batis/batis/middleware"
)

type (
	Middleware   = middleware.Middleware
	Handler      = middleware.Handler
	QueryContext = middleware.QueryContext
	QueryResult  = middleware.QueryResult
)

// Session 是执行语句的入口, 可以并发使用
type Session interface {
	// SelectOne 消费完整个结果流, 返回最后一行. 没有数据返回 ErrNoRows
	SelectOne(ctx context.Context, id string, param any) (any, error)
	// SelectMany 返回一个延迟映射的游标, 调用方必须消费完或者 Close
	SelectMany(ctx context.Context, id string, param any) (*Cursor, error)
	SelectBounds(ctx context.Context, id string, param any, bounds RowBounds) (*Cursor, error)

	// Insert, Update 和 Delete 返回影响行数
	Insert(ctx context.Context, id string, param any) (int64, error)
	Update(ctx context.Context, id string, param any) (int64, error)
	Delete(ctx context.Context, id string, param any) (int64, error)

	// GetMapper 给 mapper 结构体的函数字段赋值, mapper 必须是结构体指针
	GetMapper(mapper any) error
}

// RowBounds 跳过 Offset 行, 最多映射 Limit 行. Limit 为 0 代表不限制
type RowBounds struct {
	Offset int
	Limit  int
}

// Namespacer 让 mapper 自己声明语句 id 的前缀
type Namespacer interface {
	Namespace() string
}
