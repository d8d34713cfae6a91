package statement

import (
	"reflect"

	"github.com/startdusk/go-batis/batis/codec"
)

// Kind 是语句的操作类型
type Kind uint8

const (
	Select Kind = iota
	Insert
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Mode 是参数方向, OUT 的参数不会被绑定
type Mode uint8

const (
	ModeIn Mode = iota
	ModeOut
	ModeInOut
)

func (m Mode) String() string {
	switch m {
	case ModeOut:
		return "OUT"
	case ModeInOut:
		return "INOUT"
	default:
		return "IN"
	}
}

// KeyGenerator 是主键回写策略
type KeyGenerator uint8

const (
	KeyGenNone KeyGenerator = iota
	// KeyGenReturning 语句自己返回生成的列, 例如 INSERT ... RETURNING id
	KeyGenReturning
	// KeyGenLastInsertID 使用驱动的 LastInsertId
	KeyGenLastInsertID
	// KeyGenUUID 绑定之前生成一个 UUID 写到主键属性上
	KeyGenUUID
)

// Param 是参数描述
type Param struct {
	Name string
	// Type 是声明的类型, 绑定 NULL 的时候用, 可以为 nil
	Type  reflect.Type
	Mode  Mode
	Codec codec.Codec
}

// Mapping 是显式声明的列到属性的映射
type Mapping struct {
	Column   string
	Property string
	// Codec 可以为空, 为空的时候按属性类型去注册表找
	Codec codec.Codec
}

// Result 描述结果的形状. Type 决定形状:
// 数字或者注册了 Codec 的类型是标量, map 是键值容器,
// slice 是有序容器, 结构体(或者结构体指针)是对象
type Result struct {
	// ID 是映射计划的缓存键, 形状相同的语句可以共用
	ID       string
	Type     reflect.Type
	Mappings []Mapping
	// AutoMapping 为 true 的时候, 声明了显式映射也会自动映射剩下的列
	AutoMapping bool
}

// ResultOf 用 T 创建结果描述, id 为空的时候用类型名
func ResultOf[T any](id string, mappings ...Mapping) *Result {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if id == "" {
		id = typ.String()
	}
	return &Result{
		ID:       id,
		Type:     typ,
		Mappings: mappings,
	}
}

// BoundSQL 是一次执行实际使用的 SQL 和参数
type BoundSQL struct {
	SQL    string
	Params []Param
	// Additional 是动态 SQL 额外生成的参数值, 绑定时优先于参数对象
	Additional map[string]any
}

// Statement 是语句定义, 加入 Catalog 之后只读, 可以并发使用
type Statement struct {
	ID   string
	Kind Kind
	// Raw 是带 #{name} 占位符的原始 SQL
	Raw string
	// SQL 和 Params 是 Raw 编译之后的结果, 由 Catalog 填充
	SQL    string
	Params []Param

	Result        *Result
	KeyGenerator  KeyGenerator
	KeyProperties []string
	// KeyColumns 和 KeyProperties 一一对应, 为空的时候用属性名
	KeyColumns []string
	UseCache   bool

	// Source 不为空的时候每次执行都用它生成 SQL, 用来支持动态 SQL
	Source func(param any) (*BoundSQL, error)

	paramCodecs map[string]codec.Codec
}

type Option func(s *Statement)

// New 创建语句定义, 需要加入 Catalog 才能使用
func New(id string, kind Kind, raw string, opts ...Option) *Statement {
	s := &Statement{
		ID:   id,
		Kind: kind,
		Raw:  raw,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithResult(r *Result) Option {
	return func(s *Statement) {
		s.Result = r
	}
}

// WithKeyGenerator 设置主键回写策略和回写的属性
func WithKeyGenerator(kg KeyGenerator, properties ...string) Option {
	return func(s *Statement) {
		s.KeyGenerator = kg
		s.KeyProperties = properties
	}
}

func WithKeyColumns(columns ...string) Option {
	return func(s *Statement) {
		s.KeyColumns = columns
	}
}

// WithParamCodec 给名字为 name 的参数指定 Codec
func WithParamCodec(name string, c codec.Codec) Option {
	return func(s *Statement) {
		if s.paramCodecs == nil {
			s.paramCodecs = make(map[string]codec.Codec, 4)
		}
		s.paramCodecs[name] = c
	}
}

func WithSource(src func(param any) (*BoundSQL, error)) Option {
	return func(s *Statement) {
		s.Source = src
	}
}

func WithCache() Option {
	return func(s *Statement) {
		s.UseCache = true
	}
}

// Bind 返回这次执行使用的 SQL
func (s *Statement) Bind(param any) (*BoundSQL, error) {
	if s.Source != nil {
		return s.Source(param)
	}
	return &BoundSQL{SQL: s.SQL, Params: s.Params}, nil
}

// KeyColumn 返回第 i 个主键属性对应的列名
func (s *Statement) KeyColumn(i int) string {
	if i < len(s.KeyColumns) {
		return s.KeyColumns[i]
	}
	return s.KeyProperties[i]
}
