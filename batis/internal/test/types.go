// Package test 是用于辅助测试的包。仅限于内部使用
package test

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// User 是最常用的测试结构体
type User struct {
	ID   int64
	Name string
}

// SimpleStruct 包含所有支持的类型, 列名是字段名的下划线形式
type SimpleStruct struct {
	ID      uint64
	Bool    bool
	BoolPtr *bool

	Int    int
	IntPtr *int

	Int8  int8
	Int16 int16
	Int32 int32
	Int64 int64

	Uint   uint
	Uint8  uint8
	Uint16 uint16
	Uint32 uint32
	Uint64 uint64

	Float32    float32
	Float64    float64
	Float64Ptr *float64

	ByteArray []byte
	String    string

	// 特殊类型
	NullStringPtr *sql.NullString
	NullInt64Ptr  *sql.NullInt64
	JsonColumn    *JsonColumn
}

// JsonColumn 是自定义的 JSON 类型字段, 通过 sql.Scanner 和 driver.Valuer 读写
type JsonColumn struct {
	Val   Address
	Valid bool
}

type Address struct {
	City string `json:"city"`
	Zip  string `json:"zip"`
}

func (j *JsonColumn) Scan(src any) error {
	if src == nil {
		return nil
	}
	var bs []byte
	switch val := src.(type) {
	case string:
		bs = []byte(val)
	case []byte:
		bs = val
	default:
		return fmt.Errorf("不合法类型 %+v", src)
	}
	if len(bs) == 0 {
		return nil
	}
	if err := json.Unmarshal(bs, &j.Val); err != nil {
		return err
	}
	j.Valid = true
	return nil
}

// Value 参考 sql.NullXXX 类型定义的
func (j JsonColumn) Value() (driver.Value, error) {
	if !j.Valid {
		return nil, nil
	}
	return json.Marshal(j.Val)
}

func NewSimpleStruct(id uint64) *SimpleStruct {
	return &SimpleStruct{
		ID:            id,
		Bool:          true,
		BoolPtr:       ToPtr[bool](false),
		Int:           12,
		IntPtr:        ToPtr[int](13),
		Int8:          -8,
		Int16:         -16,
		Int32:         -32,
		Int64:         -64,
		Uint:          14,
		Uint8:         8,
		Uint16:        16,
		Uint32:        32,
		Uint64:        64,
		Float32:       3.25,
		Float64:       6.5,
		Float64Ptr:    ToPtr[float64](-6.5),
		ByteArray:     []byte("hello"),
		String:        "world",
		NullStringPtr: &sql.NullString{String: "null string", Valid: true},
		NullInt64Ptr:  &sql.NullInt64{Int64: 64, Valid: true},
		JsonColumn: &JsonColumn{
			Val:   Address{City: "sz", Zip: "518000"},
			Valid: true,
		},
	}
}

func ToPtr[T any](t T) *T {
	return &t
}
