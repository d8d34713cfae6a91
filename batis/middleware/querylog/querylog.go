package querylog

import (
	"context"
	"log"

	"github.com/startdusk/go-batis/batis/middleware"
)

type MiddlewareBuilder struct {
	// 存在问题, SQL参数存在敏感数据不应该被打印出来
	logFunc func(query string, args []any)
}

// NewMiddlewareBuilder fn 为 nil 的时候用 log 包输出
func NewMiddlewareBuilder(fn func(query string, args []any)) *MiddlewareBuilder {
	if fn == nil {
		fn = func(query string, args []any) {
			log.Printf("batis: sql: %s, args: %v", query, args)
		}
	}
	return &MiddlewareBuilder{
		logFunc: fn,
	}
}

func (m MiddlewareBuilder) Build() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			if qc.Bound != nil {
				m.logFunc(qc.Bound.SQL, qc.Args)
			}
			return next(ctx, qc)
		}
	}
}
