package codec

import (
	"reflect"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

// Setter 是参数绑定的目标, index 从 0 开始
type Setter interface {
	Bind(index int, val any)
	// BindNull 绑定一个带类型的 NULL, typ 可以为 nil
	BindNull(index int, typ reflect.Type)
}

// Row 是一行数据的只读视图, 只在映射这一行的时候有效, 不要持有它
type Row interface {
	Columns() []string
	// Index 按列名查找下标, 不区分大小写, 找不到返回 -1
	Index(column string) int
	// Value 返回驱动给出的原始值
	Value(index int) any
}

// Handler 负责 V 类型在参数和列之间的双向转换.
// Decode 不会在列为 NULL 的时候被调用, NULL 总是映射成 nil
type Handler[V any] interface {
	Encode(s Setter, index int, val V) error
	Decode(row Row, index int) (V, error)
}

// Codec 是类型擦除之后的 Handler, 注册表里面存的是它
type Codec interface {
	// Type 是这个 Codec 负责的类型
	Type() reflect.Type
	Encode(s Setter, index int, val any) error
	Decode(row Row, index int) (any, error)
}

// Of 把 Handler[V] 包装成 Codec
func Of[V any](h Handler[V]) Codec {
	return typed[V]{
		h:   h,
		typ: reflect.TypeOf((*V)(nil)).Elem(),
	}
}

type typed[V any] struct {
	h   Handler[V]
	typ reflect.Type
}

func (t typed[V]) Type() reflect.Type {
	return t.typ
}

func (t typed[V]) Encode(s Setter, index int, val any) error {
	if val == nil {
		s.BindNull(index, t.typ)
		return nil
	}
	v, ok := val.(V)
	if !ok {
		return errs.NewErrTypeConversion(val, t.typ)
	}
	return t.h.Encode(s, index, v)
}

func (t typed[V]) Decode(row Row, index int) (any, error) {
	if row.Value(index) == nil {
		return nil, nil
	}
	return t.h.Decode(row, index)
}
