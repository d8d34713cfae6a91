package batis

import (
	"reflect"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/internal/valuer"
	"github.com/startdusk/go-batis/batis/model"
	"github.com/startdusk/go-batis/batis/statement"
)

// rowMapper 把一行数据映射成一个结果
type rowMapper struct {
	codecs  *codec.Registry
	models  model.Registry
	creator valuer.Creator
	plans   *planCache

	camel              bool
	callSettersOnNulls bool
}

// plan 查找或者计算映射计划, 同一个游标只需要调用一次
func (m *rowMapper) plan(res *statement.Result, row codec.Row) (*plan, error) {
	return m.plans.get(planKey(res, row.Columns()), func() (*plan, error) {
		return m.buildPlan(res, row)
	})
}

func (m *rowMapper) mapRow(id string, p *plan, row codec.Row) (any, error) {
	switch p.kind {
	case shapeNumeric:
		if len(row.Columns()) == 0 {
			return nil, errs.NewErrMapping(id, "", errs.NewErrUnsupportedResultType(p.typ))
		}
		v, err := codec.Convert(row.Value(0), p.typ)
		if err != nil {
			return nil, errs.NewErrMapping(id, row.Columns()[0], err)
		}
		return v, nil
	case shapeRegistered:
		if len(row.Columns()) == 0 {
			return nil, errs.NewErrMapping(id, "", errs.NewErrUnsupportedResultType(p.typ))
		}
		v, err := p.codec.Decode(row, 0)
		if err != nil {
			return nil, errs.NewErrMapping(id, row.Columns()[0], err)
		}
		return v, nil
	case shapeRaw:
		if len(row.Columns()) == 0 {
			return nil, nil
		}
		return row.Value(0), nil
	case shapeMap:
		res := reflect.MakeMapWithSize(p.typ, len(row.Columns()))
		for i, col := range row.Columns() {
			v := row.Value(i)
			if v == nil {
				res.SetMapIndex(reflect.ValueOf(col).Convert(p.typ.Key()), reflect.Zero(p.typ.Elem()))
				continue
			}
			res.SetMapIndex(reflect.ValueOf(col).Convert(p.typ.Key()), reflect.ValueOf(v))
		}
		return res.Interface(), nil
	case shapeList:
		res := reflect.MakeSlice(p.typ, 0, len(row.Columns()))
		for i := range row.Columns() {
			v := row.Value(i)
			if v == nil {
				res = reflect.Append(res, reflect.Zero(p.typ.Elem()))
				continue
			}
			res = reflect.Append(res, reflect.ValueOf(v))
		}
		return res.Interface(), nil
	default:
		return m.mapStruct(id, p, row)
	}
}

func (m *rowMapper) mapStruct(id string, p *plan, row codec.Row) (any, error) {
	entity := reflect.New(p.typ)
	val := m.creator(p.model, entity.Interface())
	// 一列都没有匹配上的时候按列名原样写属性.
	// 生成 plan 的时候已经按列名和属性名找过一遍, 这里实际上总是在第一列返回映射错误
	if p.fallback {
		for i, col := range row.Columns() {
			fd, ok := p.model.FieldMap[col]
			if !ok {
				return nil, errs.NewErrMapping(id, col, errs.NewErrUnknownProperty(p.typ, col))
			}
			v, err := codec.Convert(row.Value(i), fd.Type)
			if err != nil {
				return nil, errs.NewErrMapping(id, col, err)
			}
			if err = val.SetField(fd.GoName, v); err != nil {
				return nil, errs.NewErrMapping(id, col, err)
			}
		}
	}
	for _, pc := range p.cols {
		v, err := pc.codec.Decode(row, pc.index)
		if err != nil {
			return nil, errs.NewErrMapping(id, pc.column, err)
		}
		if v == nil && !(m.callSettersOnNulls && nullable(pc.field.Type)) {
			continue
		}
		if err = val.SetField(pc.field.GoName, v); err != nil {
			return nil, errs.NewErrMapping(id, pc.column, err)
		}
	}
	if p.ptr {
		return entity.Interface(), nil
	}
	return entity.Elem().Interface(), nil
}

// nullable 判断属性能不能表达 NULL
func nullable(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}
