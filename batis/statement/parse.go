package statement

import (
	"reflect"
	"strings"
	"time"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

var typeNames = map[string]reflect.Type{
	"bool":    reflect.TypeOf(false),
	"int":     reflect.TypeOf(0),
	"int8":    reflect.TypeOf(int8(0)),
	"int16":   reflect.TypeOf(int16(0)),
	"int32":   reflect.TypeOf(int32(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"uint":    reflect.TypeOf(uint(0)),
	"uint8":   reflect.TypeOf(uint8(0)),
	"uint16":  reflect.TypeOf(uint16(0)),
	"uint32":  reflect.TypeOf(uint32(0)),
	"uint64":  reflect.TypeOf(uint64(0)),
	"float32": reflect.TypeOf(float32(0)),
	"float64": reflect.TypeOf(float64(0)),
	"string":  reflect.TypeOf(""),
	"bytes":   reflect.TypeOf([]byte(nil)),
	"time":    reflect.TypeOf(time.Time{}),
}

// Compile 把 #{name,mode=OUT,type=int64} 形式的占位符替换成方言的占位符,
// 按出现顺序返回参数描述
func Compile(raw string, d Dialect) (string, []Param, error) {
	var sb strings.Builder
	sb.Grow(len(raw))
	params := make([]Param, 0, 4)
	rest := raw
	for {
		start := strings.Index(rest, "#{")
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", nil, errs.NewErrInvalidPlaceholder(rest[start+2:])
		}
		end += start
		p, err := parseParam(rest[start+2 : end])
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(rest[:start])
		d.placeholder(&sb, len(params))
		params = append(params, p)
		rest = rest[end+1:]
	}
	return sb.String(), params, nil
}

func parseParam(content string) (Param, error) {
	segs := strings.Split(content, ",")
	p := Param{Name: strings.TrimSpace(segs[0])}
	if p.Name == "" {
		return Param{}, errs.NewErrInvalidPlaceholder(content)
	}
	for _, seg := range segs[1:] {
		kv := strings.Split(seg, "=")
		if len(kv) != 2 {
			return Param{}, errs.NewErrInvalidPlaceholder(content)
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "mode":
			switch strings.ToUpper(val) {
			case "IN":
				p.Mode = ModeIn
			case "OUT":
				p.Mode = ModeOut
			case "INOUT":
				p.Mode = ModeInOut
			default:
				return Param{}, errs.NewErrInvalidPlaceholder(content)
			}
		case "type":
			typ, ok := typeNames[val]
			if !ok {
				return Param{}, errs.NewErrInvalidPlaceholder(content)
			}
			p.Type = typ
		default:
			return Param{}, errs.NewErrInvalidPlaceholder(content)
		}
	}
	return p, nil
}
