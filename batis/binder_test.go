package batis

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/internal/test"
	"github.com/startdusk/go-batis/batis/internal/valuer"
	"github.com/startdusk/go-batis/batis/model"
	"github.com/startdusk/go-batis/batis/statement"
)

type prefixHandler struct{}

func (prefixHandler) Encode(s codec.Setter, index int, val string) error {
	s.Bind(index, "X:"+val)
	return nil
}

func (prefixHandler) Decode(row codec.Row, index int) (string, error) {
	return "X", nil
}

var errEncode = errors.New("encode failed")

type brokenHandler struct{}

func (brokenHandler) Encode(s codec.Setter, index int, val string) error {
	return errEncode
}

func (brokenHandler) Decode(row codec.Row, index int) (string, error) {
	return "", errEncode
}

func params(names ...string) []statement.Param {
	res := make([]statement.Param, 0, len(names))
	for _, n := range names {
		res = append(res, statement.Param{Name: n})
	}
	return res
}

type Age int

func Test_binder_bind(t *testing.T) {
	registry := codec.NewRegistry()
	codec.Register[test.Address](registry, codec.JSON[test.Address]{})

	cases := []struct {
		name          string
		bound         *statement.BoundSQL
		param         any
		camel         bool
		bindAfterNull bool
		wantArgs      []any
		wantErr       error
	}{
		{
			name:     "null stops binding",
			bound:    &statement.BoundSQL{Params: params("a", "b", "c")},
			param:    map[string]any{"a": 1, "b": nil, "c": 3},
			wantArgs: []any{1, nil},
		},
		{
			name:          "bind after null",
			bound:         &statement.BoundSQL{Params: params("a", "b", "c")},
			param:         map[string]any{"a": 1, "b": nil, "c": 3},
			bindAfterNull: true,
			wantArgs:      []any{1, nil, 3},
		},
		{
			name: "typed null",
			bound: &statement.BoundSQL{Params: []statement.Param{
				{Name: "a", Type: reflect.TypeOf("")},
				{Name: "b", Type: reflect.TypeOf(int64(0))},
			}},
			param:         map[string]any{"a": nil, "b": nil},
			bindAfterNull: true,
			wantArgs:      []any{sql.NullString{}, sql.NullInt64{}},
		},
		{
			name:     "nil param",
			bound:    &statement.BoundSQL{Params: params("a", "b")},
			param:    nil,
			wantArgs: []any{nil},
		},
		{
			name: "additional first",
			bound: &statement.BoundSQL{
				Params:     params("a"),
				Additional: map[string]any{"a": 9},
			},
			param:    map[string]any{"a": 1},
			wantArgs: []any{9},
		},
		{
			name:     "single param",
			bound:    &statement.BoundSQL{Params: params("id", "other")},
			param:    int64(7),
			wantArgs: []any{int64(7), int64(7)},
		},
		{
			name:     "named simple type",
			bound:    &statement.BoundSQL{Params: params("age")},
			param:    Age(3),
			wantArgs: []any{Age(3)},
		},
		{
			name:     "registered type as single param",
			bound:    &statement.BoundSQL{Params: params("addr")},
			param:    test.Address{City: "sz"},
			wantArgs: []any{[]byte(`{"city":"sz","zip":""}`)},
		},
		{
			name:     "struct pointer",
			bound:    &statement.BoundSQL{Params: params("name", "id")},
			param:    &test.User{ID: 7, Name: "ann"},
			wantArgs: []any{"ann", int64(7)},
		},
		{
			name:     "struct value",
			bound:    &statement.BoundSQL{Params: params("NAME", "Id")},
			param:    test.User{ID: 7, Name: "ann"},
			wantArgs: []any{"ann", int64(7)},
		},
		{
			name:     "underscore to camel",
			bound:    &statement.BoundSQL{Params: params("byte_array")},
			param:    test.NewSimpleStruct(1),
			camel:    true,
			wantArgs: []any{[]byte("hello")},
		},
		{
			name:     "nil pointer field is null",
			bound:    &statement.BoundSQL{Params: params("NullStringPtr", "ID")},
			param:    &test.SimpleStruct{ID: 3},
			wantArgs: []any{nil},
		},
		{
			name: "out param skipped",
			bound: &statement.BoundSQL{Params: []statement.Param{
				{Name: "a", Mode: statement.ModeOut},
				{Name: "b"},
			}},
			param:    map[string]any{"b": 2},
			wantArgs: []any{nil, 2},
		},
		{
			name: "explicit codec",
			bound: &statement.BoundSQL{Params: []statement.Param{
				{Name: "a", Codec: codec.Of[string](prefixHandler{})},
			}},
			param:    map[string]any{"a": "a"},
			wantArgs: []any{"X:a"},
		},
		{
			name:     "codec by value type",
			bound:    &statement.BoundSQL{Params: params("addr")},
			param:    map[string]any{"addr": test.Address{Zip: "1"}},
			wantArgs: []any{[]byte(`{"city":"","zip":"1"}`)},
		},
		{
			name:     "raw bind without codec",
			bound:    &statement.BoundSQL{Params: params("json")},
			param:    map[string]any{"json": test.JsonColumn{Valid: true}},
			wantArgs: []any{test.JsonColumn{Valid: true}},
		},
		{
			name:    "unknown property",
			bound:   &statement.BoundSQL{Params: params("id", "nope")},
			param:   &test.User{},
			wantErr: errs.NewErrBinding("s", 1, errs.NewErrUnknownProperty(reflect.TypeOf(test.User{}), "nope")),
		},
		{
			name:    "missing map key",
			bound:   &statement.BoundSQL{Params: params("a")},
			param:   map[string]any{},
			wantErr: errs.NewErrBinding("s", 0, errs.NewErrUnknownProperty(reflect.TypeOf(map[string]any{}), "a")),
		},
		{
			name:    "unsupported param",
			bound:   &statement.BoundSQL{Params: params("a")},
			param:   make(chan int),
			wantErr: errs.ErrBinding,
		},
		{
			name: "codec error",
			bound: &statement.BoundSQL{Params: []statement.Param{
				{Name: "a", Codec: codec.Of[string](brokenHandler{})},
			}},
			param:   map[string]any{"a": "a"},
			wantErr: errs.NewErrBinding("s", 0, errEncode),
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := &binder{
				codecs:        registry,
				models:        model.NewRegistry(),
				creator:       valuer.NewUnsafeValue,
				camel:         c.camel,
				bindAfterNull: c.bindAfterNull,
			}
			args, err := b.bind("s", c.bound, c.param)
			if c.wantErr != nil {
				assert.True(t, errors.Is(err, errs.ErrBinding))
				if c.wantErr != errs.ErrBinding {
					assert.Equal(t, c.wantErr, err)
				}
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, c.wantArgs, args)
		})
	}
}

func Test_binder_codecError(t *testing.T) {
	b := &binder{
		codecs:  codec.NewRegistry(),
		models:  model.NewRegistry(),
		creator: valuer.NewReflectValue,
	}
	_, err := b.bind("user.insert", &statement.BoundSQL{Params: []statement.Param{
		{Name: "name", Codec: codec.Of[string](brokenHandler{})},
	}}, &test.User{Name: "x"})
	assert.ErrorIs(t, err, errEncode)
	assert.ErrorIs(t, err, ErrBinding)
	assert.Contains(t, err.Error(), "user.insert")
}
