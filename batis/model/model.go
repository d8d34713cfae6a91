package model

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

const (
	tagName      = "batis"
	tagKeyColumn = "column"
)

// Registry 代表元数据的注册中心
type Registry interface {
	// Get 查找元数据, 没有就解析并注册
	Get(val any) (*Model, error)
	Register(val any, opts ...ModelOption) (*Model, error)
}

// Model 是一个结构体可以被设置的属性集合
type Model struct {
	Type   reflect.Type
	Fields []*Field
	// 字段名到字段的映射
	FieldMap map[string]*Field
	// 标签声明的列名(小写)到字段的映射
	ColumnMap map[string]*Field

	// 小写字段名到字段的映射, 属性查找不区分大小写
	props map[string]*Field
}

type ModelOption func(m *Model) error

type Field struct {
	// 列名, 标签里没有声明的时候是字段名的下划线形式
	ColName string
	GoName  string
	Type    reflect.Type

	// 字段相对于结构体本身的偏移量
	Offset uintptr
	Index  int
}

// FindProperty 按名字查找属性, 不区分大小写.
// underscoreToCamel 为 true 时会先去掉下划线, 即 user_name 可以找到 UserName
func (m *Model) FindProperty(name string, underscoreToCamel bool) (*Field, bool) {
	if underscoreToCamel {
		name = strings.ReplaceAll(name, "_", "")
	}
	fd, ok := m.props[strings.ToLower(name)]
	return fd, ok
}

// FieldByColumn 先找标签声明的列名, 再按属性名找
func (m *Model) FieldByColumn(column string, underscoreToCamel bool) (*Field, bool) {
	if fd, ok := m.ColumnMap[strings.ToLower(column)]; ok {
		return fd, true
	}
	return m.FindProperty(column, underscoreToCamel)
}

// registry 基于 reflect.Type 缓存元数据
// 同名结构体在不同的包里面也能区分开
type registry struct {
	models map[reflect.Type]*Model
	lock   sync.RWMutex
}

func NewRegistry() Registry {
	return &registry{
		models: make(map[reflect.Type]*Model, 64),
	}
}

func (r *registry) Get(val any) (*Model, error) {
	typ := reflect.TypeOf(val)
	r.lock.RLock()
	m, ok := r.models[typ]
	r.lock.RUnlock()
	if ok {
		return m, nil
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	// double check 写法, 保证不重复创建对象
	m, ok = r.models[typ]
	if ok {
		return m, nil
	}
	m, err := r.parseModel(val)
	if err != nil {
		return nil, err
	}
	r.models[typ] = m
	return m, nil
}

// Register 限制只能用一级指针
func (r *registry) Register(val any, opts ...ModelOption) (*Model, error) {
	m, err := r.parseModel(val)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	r.lock.Lock()
	r.models[reflect.TypeOf(val)] = m
	r.lock.Unlock()
	return m, nil
}

func (r *registry) parseModel(entity any) (*Model, error) {
	typ := reflect.TypeOf(entity)
	if typ == nil || typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, errs.ErrPointerOnly
	}
	typ = typ.Elem()
	numField := typ.NumField()
	fields := make([]*Field, 0, numField)
	fieldMap := make(map[string]*Field, numField)
	columnMap := make(map[string]*Field, numField)
	props := make(map[string]*Field, numField)
	for i := 0; i < numField; i++ {
		fd := typ.Field(i)
		// 未导出的字段没法设置
		if !fd.IsExported() {
			continue
		}
		tag, ok := fd.Tag.Lookup(tagName)
		if ok && tag == "-" {
			continue
		}
		pairs, err := r.parseTag(tag)
		if err != nil {
			return nil, err
		}
		colName := pairs[tagKeyColumn]
		fdMeta := &Field{
			ColName: colName,
			GoName:  fd.Name,
			Type:    fd.Type,
			Offset:  fd.Offset,
			Index:   i,
		}
		if colName != "" {
			columnMap[strings.ToLower(colName)] = fdMeta
		} else {
			fdMeta.ColName = underscoreName(fd.Name)
		}
		fields = append(fields, fdMeta)
		fieldMap[fd.Name] = fdMeta
		props[strings.ToLower(fd.Name)] = fdMeta
	}

	return &Model{
		Type:      typ,
		Fields:    fields,
		FieldMap:  fieldMap,
		ColumnMap: columnMap,
		props:     props,
	}, nil
}

// 标签格式 batis:"column=user_name"
func (r *registry) parseTag(tag string) (map[string]string, error) {
	if tag == "" {
		return map[string]string{}, nil
	}
	pairs := strings.Split(tag, ",")
	res := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		segs := strings.Split(pair, "=")
		if len(segs) != 2 {
			return nil, errs.NewErrInvalidTagContent(pair)
		}
		res[segs[0]] = segs[1]
	}
	return res, nil
}

func ModelWithColumnName(field string, colName string) ModelOption {
	return func(m *Model) error {
		fd, ok := m.FieldMap[field]
		if !ok {
			return errs.NewErrUnknownField(field)
		}
		fd.ColName = colName
		m.ColumnMap[strings.ToLower(colName)] = fd
		return nil
	}
}

// 驼峰名字符串转下划线命名
func underscoreName(name string) string {
	runes := []rune(name)
	var buf []rune
	for i, v := range runes {
		if unicode.IsUpper(v) {
			if i != 0 && i < len(runes)-1 && !unicode.IsUpper(runes[i+1]) {
				buf = append(buf, '_')
			}
			buf = append(buf, unicode.ToLower(v))
		} else {
			buf = append(buf, v)
		}
	}
	return string(buf)
}
