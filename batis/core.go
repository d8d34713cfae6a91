package batis

import (
	"context"
	"errors"
	"reflect"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/internal/syncx"
	"github.com/startdusk/go-batis/batis/internal/valuer"
	"github.com/startdusk/go-batis/batis/middleware"
	"github.com/startdusk/go-batis/batis/model"
	"github.com/startdusk/go-batis/batis/statement"
)

// core 是一个 Factory 范围内共享的状态, 随 Factory 创建和销毁
type core struct {
	catalog *statement.Catalog
	codecs  *codec.Registry
	models  model.Registry
	creator valuer.Creator
	config  Configuration
	conns   ConnFactory
	mdls    []Middleware

	plans  *planCache
	binder *binder
	mapper *rowMapper
	// mapper 类型到方法描述, 每个类型只解析一次
	mappers *syncx.Map[reflect.Type, []*mapperMethod]
}

// prepare 找到语句, 生成 SQL 并且绑定参数. 这一步不占用连接
func (c *core) prepare(op middleware.Op, id string, param any) (*QueryContext, error) {
	st, err := c.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	if op == middleware.OpExecute && st.KeyGenerator != statement.KeyGenNone {
		kw := keyWriter{s: c, st: st, param: param}
		if err = kw.check(); err != nil {
			return nil, err
		}
		if st.KeyGenerator == statement.KeyGenUUID {
			if err = kw.generateUUID(); err != nil {
				return nil, err
			}
		}
	}
	bound, err := st.Bind(param)
	if err != nil {
		return nil, err
	}
	args, err := c.binder.bind(st.ID, bound, param)
	if err != nil {
		return nil, err
	}
	return &QueryContext{
		Type:        st.Kind.String(),
		Op:          op,
		StatementID: st.ID,
		Statement:   st,
		Bound:       bound,
		Args:        args,
		Param:       param,
	}, nil
}

func (c *core) run(ctx context.Context, qc *QueryContext, root Handler) *QueryResult {
	return middleware.Chain(root, c.mdls...)(ctx, qc)
}

// query 获取连接并执行, 成功的时候连接交给游标管理
func (c *core) query(ctx context.Context, qc *QueryContext, bounds RowBounds) (*Cursor, error) {
	if qc.Statement.Result == nil {
		return nil, errs.NewErrMissingConfig(qc.StatementID + " result")
	}
	conn, err := c.conns.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := conn.PrepareContext(ctx, qc.Bound.SQL)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, qc.Args...)
	if err != nil {
		_ = errors.Join(stmt.Close(), conn.Close())
		return nil, err
	}
	return newCursor(ctx, qc.Statement, c.mapper, bounds, conn, stmt, rows), nil
}

func (c *core) selectManyHandler(bounds RowBounds) Handler {
	return func(ctx context.Context, qc *QueryContext) *QueryResult {
		cur, err := c.query(ctx, qc, bounds)
		if err != nil {
			return &QueryResult{Err: err}
		}
		return &QueryResult{Result: cur}
	}
}

// selectOneHandler 消费完整个结果流, 留下最后一行
func (c *core) selectOneHandler(ctx context.Context, qc *QueryContext) *QueryResult {
	cur, err := c.query(ctx, qc, RowBounds{})
	if err != nil {
		return &QueryResult{Err: err}
	}
	defer func() {
		_ = cur.Close()
	}()
	var (
		last  any
		found bool
	)
	for cur.Next() {
		last = cur.Value()
		found = true
	}
	if err = cur.Err(); err != nil {
		return &QueryResult{Err: err}
	}
	if !found {
		// 返回要和sql包语义一致
		return &QueryResult{Err: ErrNoRows}
	}
	return &QueryResult{Result: last}
}

func (c *core) executeHandler(ctx context.Context, qc *QueryContext) *QueryResult {
	n, err := c.execute(ctx, qc)
	return &QueryResult{Result: n, Err: err}
}

func (c *core) execute(ctx context.Context, qc *QueryContext) (int64, error) {
	conn, err := c.conns.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = conn.Close()
	}()
	stmt, err := conn.PrepareContext(ctx, qc.Bound.SQL)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = stmt.Close()
	}()

	st := qc.Statement
	kw := keyWriter{s: c, st: st, param: qc.Param}
	if st.KeyGenerator == statement.KeyGenReturning {
		rows, err := stmt.QueryContext(ctx, qc.Args...)
		if err != nil {
			return 0, err
		}
		defer func() {
			_ = rows.Close()
		}()
		return kw.returning(ctx, rows)
	}

	res, err := stmt.ExecContext(ctx, qc.Args...)
	if err != nil {
		return 0, err
	}
	if st.KeyGenerator == statement.KeyGenLastInsertID {
		if err = kw.lastInsertID(res); err != nil {
			return 0, err
		}
	}
	return res.RowsAffected()
}
