package valuer

import (
	"reflect"

	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/model"
)

type reflectValue struct {
	model *model.Model

	// val 是结构体指针对应的元素
	val reflect.Value
}

// 确保类型变更 我们能得到通知
var _ Creator = NewReflectValue

func NewReflectValue(model *model.Model, val any) Value {
	return reflectValue{
		model: model,
		val:   reflect.ValueOf(val).Elem(),
	}
}

func (r reflectValue) Field(name string) (any, error) {
	fd, ok := r.model.FieldMap[name]
	if !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	return r.val.Field(fd.Index).Interface(), nil
}

func (r reflectValue) SetField(name string, val any) error {
	fd, ok := r.model.FieldMap[name]
	if !ok {
		return errs.NewErrUnknownField(name)
	}
	fdVal := r.val.Field(fd.Index)
	if val == nil {
		fdVal.SetZero()
		return nil
	}
	v := reflect.ValueOf(val)
	if !v.Type().AssignableTo(fd.Type) {
		return errs.NewErrTypeConversion(val, fd.Type)
	}
	fdVal.Set(v)
	return nil
}
