package codec

import (
	"encoding/json"
	"reflect"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

// JSON 把 V 序列化成 JSON 存到一列里面.
// 用法: codec.Register[Address](registry, codec.JSON[Address]{})
type JSON[V any] struct{}

func (JSON[V]) Encode(s Setter, index int, val V) error {
	bs, err := json.Marshal(val)
	if err != nil {
		return err
	}
	s.Bind(index, bs)
	return nil
}

func (JSON[V]) Decode(row Row, index int) (V, error) {
	var v V
	var bs []byte
	switch data := row.Value(index).(type) {
	case []byte:
		bs = data
	case string:
		bs = []byte(data)
	default:
		return v, errs.NewErrTypeConversion(data, reflect.TypeOf(&v).Elem())
	}
	err := json.Unmarshal(bs, &v)
	return v, err
}
