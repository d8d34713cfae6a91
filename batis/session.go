package batis

import (
	"context"
	"reflect"

	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/middleware"
)

var _ Session = &session{}

// session 没有自己的状态, 一个 Factory 只需要一个
type session struct {
	*core
}

func (s *session) SelectOne(ctx context.Context, id string, param any) (any, error) {
	qc, err := s.prepare(middleware.OpSelectOne, id, param)
	if err != nil {
		return nil, err
	}
	res := s.run(ctx, qc, s.selectOneHandler)
	return res.Result, res.Err
}

func (s *session) SelectMany(ctx context.Context, id string, param any) (*Cursor, error) {
	return s.SelectBounds(ctx, id, param, RowBounds{})
}

func (s *session) SelectBounds(ctx context.Context, id string, param any, bounds RowBounds) (*Cursor, error) {
	qc, err := s.prepare(middleware.OpSelectMany, id, param)
	if err != nil {
		return nil, err
	}
	res := s.run(ctx, qc, s.selectManyHandler(bounds))
	if res.Err != nil {
		// 中间件可能在拿到游标之后返回错误, 不能漏掉释放
		if cur, ok := res.Result.(*Cursor); ok {
			_ = cur.Close()
		}
		return nil, res.Err
	}
	cur, ok := res.Result.(*Cursor)
	if !ok {
		return nil, errs.NewErrUnsupportedResultType(reflect.TypeOf(res.Result))
	}
	return cur, nil
}

func (s *session) Insert(ctx context.Context, id string, param any) (int64, error) {
	return s.update(ctx, id, param)
}

func (s *session) Update(ctx context.Context, id string, param any) (int64, error) {
	return s.update(ctx, id, param)
}

func (s *session) Delete(ctx context.Context, id string, param any) (int64, error) {
	return s.update(ctx, id, param)
}

func (s *session) update(ctx context.Context, id string, param any) (int64, error) {
	qc, err := s.prepare(middleware.OpExecute, id, param)
	if err != nil {
		return 0, err
	}
	res := s.run(ctx, qc, s.executeHandler)
	if res.Err != nil {
		return 0, res.Err
	}
	n, _ := res.Result.(int64)
	return n, nil
}
