package codec

import (
	"reflect"
)

// Default 返回 typ 的兜底 Codec: 绑定的时候原样交给驱动,
// 读取的时候用 Convert 把驱动值转换成 typ
func Default(typ reflect.Type) Codec {
	return defaultCodec{typ: typ}
}

type defaultCodec struct {
	typ reflect.Type
}

func (d defaultCodec) Type() reflect.Type {
	return d.typ
}

func (d defaultCodec) Encode(s Setter, index int, val any) error {
	if val == nil {
		s.BindNull(index, d.typ)
		return nil
	}
	s.Bind(index, val)
	return nil
}

func (d defaultCodec) Decode(row Row, index int) (any, error) {
	return Convert(row.Value(index), d.typ)
}
