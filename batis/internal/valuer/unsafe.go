package valuer

import (
	"reflect"
	"unsafe"

	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/model"
)

type unsafeValue struct {
	model *model.Model

	// 结构体的起始地址
	address unsafe.Pointer
}

// 确保类型变更 我们能得到通知
var _ Creator = NewUnsafeValue

func NewUnsafeValue(model *model.Model, val any) Value {
	return unsafeValue{
		model:   model,
		address: reflect.ValueOf(val).UnsafePointer(),
	}
}

func (u unsafeValue) Field(name string) (any, error) {
	fd, ok := u.model.FieldMap[name]
	if !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	// 字段地址 = 起始地址 + 偏移量
	fdAddress := unsafe.Add(u.address, fd.Offset)
	return reflect.NewAt(fd.Type, fdAddress).Elem().Interface(), nil
}

func (u unsafeValue) SetField(name string, val any) error {
	fd, ok := u.model.FieldMap[name]
	if !ok {
		return errs.NewErrUnknownField(name)
	}
	fdAddress := unsafe.Add(u.address, fd.Offset)
	fdVal := reflect.NewAt(fd.Type, fdAddress).Elem()
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
