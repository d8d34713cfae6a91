package batis

import (
	"reflect"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/model"
	"github.com/startdusk/go-batis/batis/statement"
)

type shapeKind uint8

const (
	// 数字标量, 需要做数字类型转换
	shapeNumeric shapeKind = iota
	// 注册了 Codec 的标量
	shapeRegistered
	// 声明为 any, 原样返回第一列
	shapeRaw
	shapeMap
	shapeList
	shapeStruct
)

// plan 是某一种结果形状在某一组列上的映射计划, 构造之后只读
type plan struct {
	kind  shapeKind
	typ   reflect.Type
	codec codec.Codec

	// 下面的字段只有结构体才有
	model *model.Model
	ptr   bool
	cols  []planColumn
	// 没有任何列可以映射的时候, 按列名直接写属性
	fallback bool
}

type planColumn struct {
	index  int
	column string
	field  *model.Field
	codec  codec.Codec
}

// planCache 按结果形状 id 和列缓存映射计划.
// 并发第一次使用的时候可能会重复计算, 但是只有一个结果会被保留下来
type planCache struct {
	plans *lru.Cache[string, *plan]
}

func newPlanCache(size int) (*planCache, error) {
	if size <= 0 {
		size = DefaultConfiguration().PlanCacheSize
	}
	c, err := lru.New[string, *plan](size)
	if err != nil {
		return nil, err
	}
	return &planCache{plans: c}, nil
}

func (c *planCache) get(key string, build func() (*plan, error)) (*plan, error) {
	if p, ok := c.plans.Get(key); ok {
		return p, nil
	}
	p, err := build()
	if err != nil {
		return nil, err
	}
	if prev, ok, _ := c.plans.PeekOrAdd(key, p); ok {
		return prev, nil
	}
	return p, nil
}

func (c *planCache) len() int {
	return c.plans.Len()
}

func (c *planCache) purge() {
	c.plans.Purge()
}

func planKey(res *statement.Result, cols []string) string {
	return res.ID + "\x00" + strings.Join(cols, ",")
}

// buildPlan 先确定形状, 结构体再计算列到属性的映射
func (m *rowMapper) buildPlan(res *statement.Result, row codec.Row) (*plan, error) {
	typ := res.Type
	if typ == nil {
		return nil, errs.NewErrUnsupportedResultType(typ)
	}
	if codec.IsNumeric(typ) {
		return &plan{kind: shapeNumeric, typ: typ}, nil
	}
	if c, ok := m.codecs.Get(typ); ok {
		return &plan{kind: shapeRegistered, typ: typ, codec: c}, nil
	}
	switch typ.Kind() {
	case reflect.Interface:
		return &plan{kind: shapeRaw, typ: typ}, nil
	case reflect.Map:
		if typ.Key().Kind() != reflect.String || typ.Elem().Kind() != reflect.Interface {
			return nil, errs.NewErrUnsupportedResultType(typ)
		}
		return &plan{kind: shapeMap, typ: typ}, nil
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.Interface {
			return nil, errs.NewErrUnsupportedResultType(typ)
		}
		return &plan{kind: shapeList, typ: typ}, nil
	case reflect.Struct:
		return m.buildStructPlan(res, typ, false, row)
	case reflect.Pointer:
		if typ.Elem().Kind() == reflect.Struct {
			return m.buildStructPlan(res, typ.Elem(), true, row)
		}
	}
	return nil, errs.NewErrUnsupportedResultType(typ)
}

func (m *rowMapper) buildStructPlan(res *statement.Result, typ reflect.Type, ptr bool, row codec.Row) (*plan, error) {
	md, err := m.models.Get(reflect.New(typ).Interface())
	if err != nil {
		return nil, err
	}
	p := &plan{
		kind:  shapeStruct,
		typ:   typ,
		model: md,
		ptr:   ptr,
	}

	claimedCols := make(map[int]struct{}, len(res.Mappings))
	claimedFields := make(map[string]struct{}, len(res.Mappings))
	for _, mp := range res.Mappings {
		fd, ok := md.FieldMap[mp.Property]
		if !ok {
			fd, ok = md.FindProperty(mp.Property, false)
		}
		if !ok {
			return nil, errs.NewErrUnknownProperty(typ, mp.Property)
		}
		claimedFields[fd.GoName] = struct{}{}
		idx := row.Index(mp.Column)
		// 结果集里面没有这一列, 等同于 NULL
		if idx < 0 {
			continue
		}
		claimedCols[idx] = struct{}{}
		c := mp.Codec
		if c == nil {
			c = m.codecFor(fd.Type)
		}
		p.cols = append(p.cols, planColumn{
			index:  idx,
			column: mp.Column,
			field:  fd,
			codec:  c,
		})
	}
	if len(res.Mappings) > 0 && !res.AutoMapping {
		return p, nil
	}

	explicit := len(p.cols)
	for i, col := range row.Columns() {
		if _, ok := claimedCols[i]; ok {
			continue
		}
		fd, ok := md.FieldByColumn(col, m.camel)
		if !ok {
			continue
		}
		if _, ok := claimedFields[fd.GoName]; ok {
			continue
		}
		claimedFields[fd.GoName] = struct{}{}
		p.cols = append(p.cols, planColumn{
			index:  i,
			column: col,
			field:  fd,
			codec:  m.codecFor(fd.Type),
		})
	}
	if len(p.cols) == explicit && explicit == 0 {
		p.fallback = true
	}
	return p, nil
}

func (m *rowMapper) codecFor(typ reflect.Type) codec.Codec {
	if c, ok := m.codecs.Get(typ); ok {
		return c
	}
	return codec.Default(typ)
}
