package codec

import (
	"database/sql"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// 字符串形式的时间, 按顺序尝试
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// IsNumeric 判断 typ 是不是数字类型
func IsNumeric(typ reflect.Type) bool {
	if typ == nil {
		return false
	}
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Convert 把驱动返回的值转换成 typ 类型, src 为 nil 时返回 nil.
// 数字之间的转换超出目标类型范围的时候返回错误, 浮点数转整数直接截断
func Convert(src any, typ reflect.Type) (any, error) {
	if src == nil {
		return nil, nil
	}
	v, err := convertValue(src, typ)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func convertValue(src any, typ reflect.Type) (reflect.Value, error) {
	sv := reflect.ValueOf(src)
	if sv.Type() == typ {
		return sv, nil
	}
	if typ.Kind() == reflect.Interface {
		if !sv.Type().Implements(typ) {
			return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
		}
		v := reflect.New(typ).Elem()
		v.Set(sv)
		return v, nil
	}
	// sql.NullString 之类的
	if reflect.PointerTo(typ).Implements(scannerType) {
		ptr := reflect.New(typ)
		if err := ptr.Interface().(sql.Scanner).Scan(src); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	if typ.Kind() == reflect.Pointer {
		ev, err := convertValue(src, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(ev)
		return ptr, nil
	}

	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := asInt64(sv)
		if !ok || out.OverflowInt(n) {
			return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := asUint64(sv)
		if !ok || out.OverflowUint(n) {
			return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, ok := asFloat64(sv)
		if !ok || out.OverflowFloat(f) {
			return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
		}
		out.SetFloat(f)
		return out, nil
	case reflect.String:
		s, ok := asString(sv)
		if !ok {
			return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
		}
		out.SetString(s)
		return out, nil
	case reflect.Bool:
		b, ok := asBool(sv)
		if !ok {
			return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
		}
		out.SetBool(b)
		return out, nil
	case reflect.Slice:
		if typ.Elem().Kind() == reflect.Uint8 {
			bs, ok := asBytes(sv)
			if !ok {
				return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
			}
			out.SetBytes(bs)
			return out, nil
		}
	case reflect.Struct:
		if timeType.ConvertibleTo(typ) {
			t, ok := asTime(sv)
			if !ok {
				return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
			}
			return reflect.ValueOf(t).Convert(typ), nil
		}
	}
	if sv.Type().ConvertibleTo(typ) {
		return sv.Convert(typ), nil
	}
	return reflect.Value{}, errs.NewErrTypeConversion(src, typ)
}

func isBytes(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func asInt64(v reflect.Value) (int64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		// 2^63 本身就超出范围了
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	}
	if isBytes(v) {
		n, err := strconv.ParseInt(strings.TrimSpace(string(v.Bytes())), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asUint64(v reflect.Value) (uint64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.Int()
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	case reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.String:
		n, err := strconv.ParseUint(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	}
	if isBytes(v) {
		n, err := strconv.ParseUint(strings.TrimSpace(string(v.Bytes())), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat64(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		return f, err == nil
	}
	if isBytes(v) {
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v.Bytes())), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v reflect.Value) (string, bool) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	}
	if isBytes(v) {
		return string(v.Bytes()), true
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.RFC3339Nano), true
	}
	return "", false
}

func asBool(v reflect.Value) (bool, bool) {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() != 0, true
	case reflect.String:
		b, err := strconv.ParseBool(strings.TrimSpace(v.String()))
		return b, err == nil
	}
	if isBytes(v) {
		b, err := strconv.ParseBool(strings.TrimSpace(string(v.Bytes())))
		return b, err == nil
	}
	return false, false
}

func asBytes(v reflect.Value) ([]byte, bool) {
	if isBytes(v) {
		// 驱动的缓冲区会被复用, 必须拷贝
		src := v.Bytes()
		dst := make([]byte, len(src))
		copy(dst, src)
		return dst, true
	}
	s, ok := asString(v)
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

func asTime(v reflect.Value) (time.Time, bool) {
	if t, ok := v.Interface().(time.Time); ok {
		return t, true
	}
	var s string
	switch {
	case v.Kind() == reflect.String:
		s = v.String()
	case isBytes(v):
		s = string(v.Bytes())
	default:
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
