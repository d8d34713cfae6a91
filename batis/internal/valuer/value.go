package valuer

import (
	"github.com/startdusk/go-batis/batis/model"
)

// Value 是对结构体实例的内部抽象, 按属性名读写
type Value interface {
	// Field 返回字段对应的值
	Field(name string) (any, error)
	// SetField 设置新值, val 为 nil 时设置为零值.
	// val 的类型必须可以直接赋值给字段, 转换由调用方负责
	SetField(name string, val any) error
}

type Creator func(model *model.Model, entity any) Value
