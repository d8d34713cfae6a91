package slowquery

import (
	"context"
	"log"
	"time"

	"github.com/startdusk/go-batis/batis/middleware"
)

type MiddlewareBuilder struct {
	logFunc func(query string, args []any)

	// 慢查询阈值, 设置需要考虑公司实际情况, 如100ms
	threshold time.Duration
}

// NewMiddlewareBuilder fn 为 nil 的时候用 log 包输出
func NewMiddlewareBuilder(threshold time.Duration, fn func(query string, args []any)) *MiddlewareBuilder {
	if fn == nil {
		fn = func(query string, args []any) {
			log.Printf("batis: 慢查询: %s, args: %v", query, args)
		}
	}
	return &MiddlewareBuilder{
		logFunc:   fn,
		threshold: threshold,
	}
}

func (m MiddlewareBuilder) Build() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			startTime := time.Now()
			check := func(error) {
				// 不是慢查询
				if time.Since(startTime) <= m.threshold {
					return
				}
				if qc.Bound != nil {
					m.logFunc(qc.Bound.SQL, qc.Args)
				}
			}
			res := next(ctx, qc)
			if stream, ok := res.Result.(middleware.Stream); ok && res.Err == nil {
				stream.OnClose(check)
				return res
			}
			check(res.Err)
			return res
		}
	}
}
