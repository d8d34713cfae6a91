package prometheus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/startdusk/go-batis/batis/middleware"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string

	// Registerer 为空的时候使用 prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

func (m MiddlewareBuilder) Build() middleware.Middleware {
	vector := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:      m.Name,
		Subsystem: m.Subsystem,
		Namespace: m.Namespace,
		Help:      m.Help,

		// 设置指标 如 0.5: 0.01 0.5是一个指标，0.01是一个误差值，表示0.5上下0.01 即误差范围为 0.49-0.51
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{
		"type",      // SELECT, INSERT, UPDATE, DELETE
		"statement", // 语句 id
		"status",    // ok 或者 error
	})

	reg := m.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(vector); err != nil {
		// 多个 Factory 共用同一个指标
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.SummaryVec)
		if !ok {
			panic(fmt.Errorf("batis: 指标 %s 已经被注册成 %T", prometheus.BuildFQName(m.Namespace, m.Subsystem, m.Name), are.ExistingCollector))
		}
		vector = existing
	}

	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, qc *middleware.QueryContext) *middleware.QueryResult {
			startTime := time.Now()
			observe := func(err error) {
				status := "ok"
				if err != nil {
					status = "error"
				}
				duration := time.Since(startTime).Milliseconds()
				// 记录执行时间
				vector.WithLabelValues(qc.Type, qc.StatementID, status).Observe(float64(duration))
			}
			res := next(ctx, qc)
			// 游标要等到结果流结束才算执行完
			if stream, ok := res.Result.(middleware.Stream); ok && res.Err == nil {
				stream.OnClose(observe)
				return res
			}
			observe(res.Err)
			return res
		}
	}
}
