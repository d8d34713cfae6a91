package errs

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrPointerOnly = errors.New("batis: 只支持指向结构体的一级指针")
	ErrNoRows      = errors.New("batis: 没有数据")

	// 下面三个是错误分类, 具体错误都会 wrap 其中一个, 用 errors.Is 判断
	ErrConfiguration = errors.New("batis: 配置错误")
	ErrBinding       = errors.New("batis: 参数绑定失败")
	ErrMapping       = errors.New("batis: 结果映射失败")
)

func NewErrUnknownStatement(id string) error {
	return fmt.Errorf("%w: 未知语句 %s", ErrConfiguration, id)
}

func NewErrDuplicateStatement(id string) error {
	return fmt.Errorf("%w: 重复的语句 %s", ErrConfiguration, id)
}

func NewErrMissingConfig(key string) error {
	return fmt.Errorf("%w: 缺少配置项 %s", ErrConfiguration, key)
}

func NewErrInvalidPlaceholder(content string) error {
	return fmt.Errorf("%w: 非法占位符 #{%s}", ErrConfiguration, content)
}

func NewErrInvalidTagContent(pair string) error {
	return fmt.Errorf("%w: 非法标签值 %s", ErrConfiguration, pair)
}

func NewErrUnsupportedResultType(typ reflect.Type) error {
	return fmt.Errorf("%w: 不支持的结果类型 %v", ErrConfiguration, typ)
}

func NewErrUnsupportedMapperMethod(name string, typ reflect.Type) error {
	return fmt.Errorf("%w: 不支持的 mapper 方法 %s %v", ErrConfiguration, name, typ)
}

func NewErrKeyGeneration(id string, reason string) error {
	return fmt.Errorf("%w: 语句 %s 无法回写主键, %s", ErrConfiguration, id, reason)
}

func NewErrUnknownField(name string) error {
	return fmt.Errorf("batis: 未知字段 %s", name)
}

func NewErrUnknownProperty(typ reflect.Type, name string) error {
	return fmt.Errorf("batis: 类型 %v 没有属性 %s", typ, name)
}

func NewErrTypeConversion(src any, typ reflect.Type) error {
	return fmt.Errorf("batis: 无法把 %T(%v) 转换成 %v", src, src, typ)
}

func NewErrUnsupportedParameter(param any) error {
	return fmt.Errorf("batis: 不支持的参数类型 %T", param)
}

// NewErrBinding 参数绑定失败, 带上语句 id 和参数位置
func NewErrBinding(id string, index int, err error) error {
	return fmt.Errorf("%w: 语句 %s 第 %d 个参数: %w", ErrBinding, id, index, err)
}

// NewErrMapping 结果映射失败, column 可以为空
func NewErrMapping(id string, column string, err error) error {
	if column == "" {
		return fmt.Errorf("%w: 语句 %s: %w", ErrMapping, id, err)
	}
	return fmt.Errorf("%w: 语句 %s 列 %s: %w", ErrMapping, id, column, err)
}
