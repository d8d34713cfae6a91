package batis

import (
	"context"
	"reflect"
	"strings"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/statement"
)

const (
	tagName      = "batis"
	tagKeyID     = "id"
	tagKeyParams = "params"
)

var (
	ctxType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType    = reflect.TypeOf((*error)(nil)).Elem()
	cursorType = reflect.TypeOf(&Cursor{})
)

type dispatch uint8

const (
	dispatchOne dispatch = iota
	dispatchList
	dispatchCursor
	dispatchCount
	dispatchExec
)

// mapperMethod 是 mapper 的一个函数字段解析之后的调用方式
type mapperMethod struct {
	index  int
	typ    reflect.Type
	id     string
	params []string
	kind   dispatch
	// out 是第一个返回值的类型, 只返回 error 的时候为 nil
	out reflect.Type
}

// GetMapper 给 mapper 的函数字段赋值, 每个字段对应一条语句:
//
//	type UserMapper struct {
//		FindByID func(ctx context.Context, id int64) (*User, error)
//		ListByAge func(ctx context.Context, min, max int) ([]*User, error) `batis:"params=min|max"`
//		Insert func(ctx context.Context, u *User) (int64, error)
//	}
//
// 语句 id 是命名空间加上字段名, 命名空间默认是 包路径.类型名, 可以实现 Namespacer 修改.
// 标签 id=xxx 可以直接指定语句 id
func (s *session) GetMapper(mapper any) error {
	if mapper == nil {
		return errs.ErrPointerOnly
	}
	val := reflect.ValueOf(mapper)
	typ := val.Type()
	// 只支持指向结构体的一级指针
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return errs.ErrPointerOnly
	}
	methods, ok := s.mappers.Load(typ)
	if !ok {
		var err error
		methods, err = s.resolveMapper(mapper, typ.Elem())
		if err != nil {
			return err
		}
		methods, _ = s.mappers.LoadOrStore(typ, methods)
	}
	val = val.Elem()
	for _, mm := range methods {
		val.Field(mm.index).Set(reflect.MakeFunc(mm.typ, s.stub(mm)))
	}
	return nil
}

func (s *session) resolveMapper(mapper any, typ reflect.Type) ([]*mapperMethod, error) {
	ns := typ.PkgPath() + "." + typ.Name()
	if n, ok := mapper.(Namespacer); ok {
		ns = n.Namespace()
	}
	numField := typ.NumField()
	methods := make([]*mapperMethod, 0, numField)
	for i := 0; i < numField; i++ {
		fd := typ.Field(i)
		if !fd.IsExported() || fd.Type.Kind() != reflect.Func {
			continue
		}
		tag, ok := fd.Tag.Lookup(tagName)
		if ok && tag == "-" {
			continue
		}
		mm := &mapperMethod{
			index: i,
			typ:   fd.Type,
			id:    ns + "." + fd.Name,
		}
		if err := mm.parseTag(tag); err != nil {
			return nil, err
		}
		st, err := s.catalog.Get(mm.id)
		if err != nil {
			return nil, err
		}
		if err = mm.resolve(st); err != nil {
			return nil, errs.NewErrUnsupportedMapperMethod(fd.Name, fd.Type)
		}
		methods = append(methods, mm)
	}
	return methods, nil
}

// 标签格式 batis:"id=user.findById,params=min|max"
func (mm *mapperMethod) parseTag(tag string) error {
	if tag == "" {
		return nil
	}
	for _, pair := range strings.Split(tag, ",") {
		segs := strings.Split(pair, "=")
		if len(segs) != 2 {
			return errs.NewErrInvalidTagContent(pair)
		}
		switch segs[0] {
		case tagKeyID:
			mm.id = segs[1]
		case tagKeyParams:
			mm.params = strings.Split(segs[1], "|")
		default:
			return errs.NewErrInvalidTagContent(pair)
		}
	}
	return nil
}

// resolve 根据函数签名和语句类型决定调用方式, 返回的错误只用来判断
func (mm *mapperMethod) resolve(st *statement.Statement) error {
	ft := mm.typ
	if ft.IsVariadic() || ft.NumIn() < 1 || ft.In(0) != ctxType {
		return errs.ErrConfiguration
	}
	n := ft.NumIn() - 1
	if len(mm.params) > 0 && len(mm.params) != n {
		return errs.ErrConfiguration
	}
	if n > 1 && len(mm.params) == 0 {
		return errs.ErrConfiguration
	}

	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != errType || st.Kind == statement.Select {
			return errs.ErrConfiguration
		}
		mm.kind = dispatchExec
		return nil
	case 2:
		if ft.Out(1) != errType {
			return errs.ErrConfiguration
		}
	default:
		return errs.ErrConfiguration
	}

	out := ft.Out(0)
	mm.out = out
	if st.Kind != statement.Select {
		switch out.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			mm.kind = dispatchCount
			return nil
		}
		return errs.ErrConfiguration
	}

	res := st.Result.Type
	switch {
	case out == cursorType:
		mm.kind = dispatchCursor
	case assignable(res, out):
		mm.kind = dispatchOne
	case out.Kind() == reflect.Slice && assignable(res, out.Elem()):
		mm.kind = dispatchList
	default:
		return errs.ErrConfiguration
	}
	return nil
}

func assignable(from, to reflect.Type) bool {
	if from.AssignableTo(to) {
		return true
	}
	return codec.IsNumeric(from) && codec.IsNumeric(to)
}

func (mm *mapperMethod) param(args []reflect.Value) any {
	if len(args) == 0 {
		return nil
	}
	if len(mm.params) == 0 {
		return args[0].Interface()
	}
	res := make(map[string]any, len(args))
	for i, name := range mm.params {
		res[name] = args[i].Interface()
	}
	return res
}

func (s *session) stub(mm *mapperMethod) func(args []reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		ctx, _ := args[0].Interface().(context.Context)
		if ctx == nil {
			ctx = context.Background()
		}
		param := mm.param(args[1:])
		switch mm.kind {
		case dispatchExec:
			_, err := s.update(ctx, mm.id, param)
			return []reflect.Value{errValue(err)}
		case dispatchCount:
			n, err := s.update(ctx, mm.id, param)
			if err != nil {
				return []reflect.Value{reflect.Zero(mm.out), errValue(err)}
			}
			rv, err := valueOf(n, mm.out)
			if err != nil {
				return []reflect.Value{reflect.Zero(mm.out), errValue(errs.NewErrMapping(mm.id, "", err))}
			}
			return []reflect.Value{rv, errValue(nil)}
		case dispatchCursor:
			cur, err := s.SelectMany(ctx, mm.id, param)
			return []reflect.Value{reflect.ValueOf(cur), errValue(err)}
		case dispatchList:
			list, err := s.selectList(ctx, mm.id, param, mm.out)
			return []reflect.Value{list, errValue(err)}
		default:
			v, err := s.SelectOne(ctx, mm.id, param)
			if err != nil {
				return []reflect.Value{reflect.Zero(mm.out), errValue(err)}
			}
			rv, err := valueOf(v, mm.out)
			if err != nil {
				return []reflect.Value{reflect.Zero(mm.out), errValue(errs.NewErrMapping(mm.id, "", err))}
			}
			return []reflect.Value{rv, errValue(nil)}
		}
	}
}

func (s *session) selectList(ctx context.Context, id string, param any, typ reflect.Type) (reflect.Value, error) {
	cur, err := s.SelectMany(ctx, id, param)
	if err != nil {
		return reflect.Zero(typ), err
	}
	defer func() {
		_ = cur.Close()
	}()
	res := reflect.MakeSlice(typ, 0, 8)
	for cur.Next() {
		rv, err := valueOf(cur.Value(), typ.Elem())
		if err != nil {
			return reflect.Zero(typ), errs.NewErrMapping(id, "", err)
		}
		res = reflect.Append(res, rv)
	}
	if err = cur.Err(); err != nil {
		return reflect.Zero(typ), err
	}
	return res, nil
}

// valueOf 数字之间的转换走 codec.Convert, 超出范围返回错误而不是截断
func valueOf(v any, typ reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	cv, err := codec.Convert(v, typ)
	if err != nil {
		return reflect.Zero(typ), err
	}
	return reflect.ValueOf(cv), nil
}

// 返回 nil 的 error 需要带上类型
func errValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errType)
	}
	return reflect.ValueOf(&err).Elem()
}
