package batis

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/google/uuid"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/statement"
)

// keyWriter 把生成的主键写回参数对象
type keyWriter struct {
	s     *core
	st    *statement.Statement
	param any
}

// check 在获取连接之前调用, 参数没法回写主键的时候语句不会被执行
func (w keyWriter) check() error {
	switch w.param.(type) {
	case map[string]any:
		return nil
	case nil:
		return errs.NewErrKeyGeneration(w.st.ID, "参数为 nil")
	}
	typ := reflect.TypeOf(w.param)
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return errs.NewErrKeyGeneration(w.st.ID, "参数必须是结构体指针或者 map[string]any")
	}
	if reflect.ValueOf(w.param).IsNil() {
		return errs.NewErrKeyGeneration(w.st.ID, "参数为 nil")
	}
	return nil
}

func (w keyWriter) write(property string, val any) error {
	if err := w.check(); err != nil {
		return err
	}
	if p, ok := w.param.(map[string]any); ok {
		p[property] = val
		return nil
	}
	m, err := w.s.models.Get(w.param)
	if err != nil {
		return err
	}
	fd, ok := m.FindProperty(property, w.s.config.MapUnderscoreToCamelCase)
	if !ok {
		return errs.NewErrUnknownProperty(m.Type, property)
	}
	if id, ok := val.(uuid.UUID); ok && fd.Type.Kind() == reflect.String {
		val = id.String()
	}
	v, err := codec.Convert(val, fd.Type)
	if err != nil {
		return err
	}
	return w.s.creator(m, w.param).SetField(fd.GoName, v)
}

// generateUUID 在绑定之前执行
func (w keyWriter) generateUUID() error {
	for _, prop := range w.st.KeyProperties {
		if err := w.write(prop, uuid.New()); err != nil {
			return err
		}
	}
	return nil
}

// lastInsertID 只支持一个主键属性
func (w keyWriter) lastInsertID(res sql.Result) error {
	if len(w.st.KeyProperties) != 1 {
		return errs.NewErrKeyGeneration(w.st.ID, "LastInsertId 只支持一个主键属性")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return w.write(w.st.KeyProperties[0], id)
}

// returning 读取语句返回的列, 每一行都写一次, 返回行数
func (w keyWriter) returning(ctx context.Context, rows *sql.Rows) (int64, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	view := newRowView(cols)
	var cnt int64
	for rows.Next() {
		if err = rows.Scan(view.dest...); err != nil {
			return cnt, err
		}
		cnt++
		for i, prop := range w.st.KeyProperties {
			col := w.st.KeyColumn(i)
			idx := view.Index(col)
			if idx < 0 {
				return cnt, errs.NewErrKeyGeneration(w.st.ID, "结果里没有列 "+col)
			}
			if err = w.write(prop, view.Value(idx)); err != nil {
				return cnt, err
			}
		}
	}
	if err = rows.Err(); err != nil {
		return cnt, err
	}
	return cnt, ctx.Err()
}
