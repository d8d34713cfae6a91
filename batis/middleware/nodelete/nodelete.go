package nodelete

import (
	"context"
	"fmt"
	"strings"

	"github.com/startdusk/go-batis/batis/middleware"
)

// MiddlewareBuilder 强制 UPDATE, DELETE 必须带 WHERE
type MiddlewareBuilder struct {
}

func NewMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{}
}

func (m MiddlewareBuilder) Build() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			if qc.Type == "SELECT" || qc.Type == "INSERT" {
				return next(ctx, qc)
			}
			if qc.Bound == nil || !strings.Contains(strings.ToUpper(qc.Bound.SQL), "WHERE") {
				return &middleware.QueryResult{
					Err: fmt.Errorf("batis: 禁止执行没有WHERE的 %s 语句 %s", qc.Type, qc.StatementID),
				}
			}
			return next(ctx, qc)
		}
	}
}
