package opentelemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/startdusk/go-batis/batis/middleware"
)

const instrumentationName = "github.com/startdusk/go-batis/batis/middleware/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (m MiddlewareBuilder) Build() middleware.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			// span name: SELECT-user.findById
			spanCtx, span := m.Tracer.Start(ctx, fmt.Sprintf("%s-%s", qc.Type, qc.StatementID))

			if qc.Bound != nil {
				span.SetAttributes(attribute.String("sql", qc.Bound.SQL))
				// tracing这里没必要记录参数, 防止数据过大(如 blob), 防止敏感数据被记录到tracing(如 用户密码)
			}
			span.SetAttributes(
				attribute.String("statement", qc.StatementID),
				attribute.String("op", qc.Op.String()),
				attribute.String("component", "batis"),
			)

			end := func(err error) {
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				span.End()
			}
			res := next(spanCtx, qc)
			// 游标结束的时候才结束 span
			if stream, ok := res.Result.(middleware.Stream); ok && res.Err == nil {
				stream.OnClose(end)
				return res
			}
			end(res.Err)
			return res
		}
	}
}
