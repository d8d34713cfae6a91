package codec

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry 维护类型到 Codec 的映射.
// 按类型精确匹配, 不考虑接口实现或者底层类型, 需要兜底的调用方自己处理
type Registry struct {
	// 启动的时候注册, 运行期间基本只读. 运行期间注册也是安全的
	codecs sync.Map
}

// NewRegistry 创建一个注册了内置类型的注册表
func NewRegistry() *Registry {
	r := &Registry{}
	r.registerBuiltins()
	return r
}

// Register 注册 Codec, 同一个类型后注册的覆盖先注册的
func (r *Registry) Register(c Codec) {
	r.codecs.Store(c.Type(), c)
}

func (r *Registry) Has(typ reflect.Type) bool {
	if typ == nil {
		return false
	}
	_, ok := r.codecs.Load(typ)
	return ok
}

func (r *Registry) Get(typ reflect.Type) (Codec, bool) {
	if typ == nil {
		return nil, false
	}
	c, ok := r.codecs.Load(typ)
	if !ok {
		return nil, false
	}
	return c.(Codec), true
}

// Register 是 Registry.Register(Of(h)) 的简写
func Register[V any](r *Registry, h Handler[V]) {
	r.Register(Of[V](h))
}

func (r *Registry) registerBuiltins() {
	builtins := []any{
		false,
		0, int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0),
		"", []byte(nil),
		time.Time{},
	}
	for _, b := range builtins {
		r.Register(Default(reflect.TypeOf(b)))
	}
	Register[uuid.UUID](r, UUID{})
}
