package batis

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/internal/valuer"
	"github.com/startdusk/go-batis/batis/model"
	"github.com/startdusk/go-batis/batis/statement"
)

// binder 把参数对象绑定成驱动需要的参数列表
type binder struct {
	codecs  *codec.Registry
	models  model.Registry
	creator valuer.Creator

	camel         bool
	bindAfterNull bool
}

// bind 按参数描述的顺序绑定.
// 绑定到一个 NULL 之后, 如果没有设置 bindAfterNull, 后面的参数都不会再绑定
func (b *binder) bind(id string, bound *statement.BoundSQL, param any) ([]any, error) {
	s := &argSetter{args: make([]any, len(bound.Params))}
	src := &paramSource{binder: b, param: param}
	for i, p := range bound.Params {
		// OUT 参数由数据库写回, 不需要绑定
		if p.Mode == statement.ModeOut {
			continue
		}
		val, err := src.value(p.Name, bound.Additional)
		if err != nil {
			return nil, errs.NewErrBinding(id, i, err)
		}
		if isNil(val) {
			s.BindNull(i, p.Type)
			if !b.bindAfterNull {
				return s.args[:i+1], nil
			}
			continue
		}
		c := p.Codec
		if c == nil {
			if rc, ok := b.codecs.Get(reflect.TypeOf(val)); ok {
				c = rc
			}
		}
		if c == nil {
			s.Bind(i, val)
			continue
		}
		if err = c.Encode(s, i, val); err != nil {
			return nil, errs.NewErrBinding(id, i, err)
		}
	}
	return s.args, nil
}

// paramSource 按名字从参数对象里面取值, 结构体的元数据只解析一次
type paramSource struct {
	*binder
	param any

	model *model.Model
	val   valuer.Value
}

func (s *paramSource) value(name string, additional map[string]any) (any, error) {
	if v, ok := additional[name]; ok {
		return v, nil
	}
	if s.param == nil {
		return nil, nil
	}
	typ := reflect.TypeOf(s.param)
	// 单个参数直接作为值
	if s.codecs.Has(typ) || simple(typ) {
		return s.param, nil
	}
	if m, ok := s.param.(map[string]any); ok {
		v, ok := m[name]
		if !ok {
			return nil, errs.NewErrUnknownProperty(typ, name)
		}
		return v, nil
	}
	if s.val == nil {
		if err := s.init(); err != nil {
			return nil, err
		}
	}
	fd, ok := s.model.FindProperty(name, s.camel)
	if !ok {
		return nil, errs.NewErrUnknownProperty(s.model.Type, name)
	}
	return s.val.Field(fd.GoName)
}

func (s *paramSource) init() error {
	entity := s.param
	typ := reflect.TypeOf(entity)
	// 结构体拷贝一份, 元数据只支持指针
	if typ.Kind() == reflect.Struct {
		ptr := reflect.New(typ)
		ptr.Elem().Set(reflect.ValueOf(entity))
		entity = ptr.Interface()
	}
	m, err := s.models.Get(entity)
	if err != nil {
		return errs.NewErrUnsupportedParameter(s.param)
	}
	s.model = m
	s.val = s.creator(m, entity)
	return nil
}

func simple(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isNil(val any) bool {
	if val == nil {
		return true
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

var _ codec.Setter = &argSetter{}

type argSetter struct {
	args []any
}

func (s *argSetter) Bind(index int, val any) {
	s.args[index] = val
}

// BindNull 尽量绑定带类型的 NULL
func (s *argSetter) BindNull(index int, typ reflect.Type) {
	s.args[index] = typedNull(typ)
}

func typedNull(typ reflect.Type) any {
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == reflect.TypeOf(time.Time{}) {
		return sql.NullTime{}
	}
	switch typ.Kind() {
	case reflect.String:
		return sql.NullString{}
	case reflect.Bool:
		return sql.NullBool{}
	case reflect.Int8, reflect.Uint8:
		return sql.NullByte{}
	case reflect.Int16:
		return sql.NullInt16{}
	case reflect.Int32:
		return sql.NullInt32{}
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sql.NullInt64{}
	case reflect.Float32, reflect.Float64:
		return sql.NullFloat64{}
	default:
		return nil
	}
}
