package safedml

import (
	"context"
	"errors"

	"github.com/startdusk/go-batis/batis/middleware"
)

var ErrDeleteForbidden = errors.New("batis: 禁止使用DELETE语句")

// MiddlewareBuilder 禁用所有的 DELETE 语句
type MiddlewareBuilder struct {
}

func NewMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{}
}

func (m MiddlewareBuilder) Build() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			if qc.Type == "DELETE" {
				return &middleware.QueryResult{
					Err: ErrDeleteForbidden,
				}
			}
			return next(ctx, qc)
		}
	}
}
