package codec

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

// UUID 以字符串形式绑定, 读取的时候兼容 16 字节的二进制形式
type UUID struct{}

func (UUID) Encode(s Setter, index int, val uuid.UUID) error {
	s.Bind(index, val.String())
	return nil
}

func (UUID) Decode(row Row, index int) (uuid.UUID, error) {
	switch data := row.Value(index).(type) {
	case string:
		return uuid.Parse(data)
	case []byte:
		if len(data) == 16 {
			return uuid.FromBytes(data)
		}
		return uuid.ParseBytes(data)
	case uuid.UUID:
		return data, nil
	default:
		return uuid.Nil, errs.NewErrTypeConversion(data, reflect.TypeOf(uuid.UUID{}))
	}
}
