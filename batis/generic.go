package batis

import (
	"context"
	"reflect"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

// SelectOne 是 Session.SelectOne 的泛型版本, T 需要和结果类型一致
func SelectOne[T any](ctx context.Context, sess Session, id string, param any) (T, error) {
	v, err := sess.SelectOne(ctx, id, param)
	if err != nil {
		var t T
		return t, err
	}
	return as[T](v)
}

func SelectList[T any](ctx context.Context, sess Session, id string, param any) ([]T, error) {
	cur, err := sess.SelectMany(ctx, id, param)
	if err != nil {
		return nil, err
	}
	return Collect[T](cur)
}

// Collect 消费完游标, 返回之前游标一定已经关闭
func Collect[T any](cur *Cursor) ([]T, error) {
	defer func() {
		_ = cur.Close()
	}()
	res := make([]T, 0, 8)
	for cur.Next() {
		t, err := as[T](cur.Value())
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func as[T any](v any) (T, error) {
	var t T
	if v == nil {
		return t, nil
	}
	res, ok := v.(T)
	if !ok {
		return t, errs.NewErrTypeConversion(v, reflect.TypeOf(&t).Elem())
	}
	return res, nil
}
