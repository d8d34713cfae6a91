package resultcache

import (
	"context"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/startdusk/go-batis/batis/middleware"
)

// MiddlewareBuilder 缓存声明了 UseCache 的语句的 SelectOne 结果.
// 任意一条修改语句执行成功之后清空整个缓存.
// 缓存的结果是共享的, 调用方不要修改
type MiddlewareBuilder struct {
	c *cache.Cache
	g singleflight.Group
}

func NewMiddlewareBuilder(expiration time.Duration, cleanupInterval time.Duration) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		c: cache.New(expiration, cleanupInterval),
	}
}

func (m *MiddlewareBuilder) Build() middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			if qc.Op == middleware.OpExecute {
				res := next(ctx, qc)
				if res.Err == nil {
					m.c.Flush()
				}
				return res
			}
			if qc.Op != middleware.OpSelectOne || qc.Statement == nil || !qc.Statement.UseCache {
				return next(ctx, qc)
			}

			key := m.key(qc)
			if val, ok := m.c.Get(key); ok {
				return &middleware.QueryResult{Result: val}
			}
			// 同一个 key 并发只查一次数据库
			val, err, _ := m.g.Do(key, func() (any, error) {
				res := next(ctx, qc)
				if res.Err != nil {
					return nil, res.Err
				}
				m.c.SetDefault(key, res.Result)
				return res.Result, nil
			})
			return &middleware.QueryResult{Result: val, Err: err}
		}
	}
}

// Len 返回缓存的结果数量
func (m *MiddlewareBuilder) Len() int {
	return m.c.ItemCount()
}

func (m *MiddlewareBuilder) key(qc *middleware.QueryContext) string {
	sql := ""
	if qc.Bound != nil {
		sql = qc.Bound.SQL
	}
	return fmt.Sprintf("%s:%s:%v", qc.StatementID, sql, qc.Args)
}
