package batis

import (
	"database/sql"
	"reflect"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/internal/syncx"
	"github.com/startdusk/go-batis/batis/internal/valuer"
	batisprom "github.com/startdusk/go-batis/batis/middleware/prometheus"
	"github.com/startdusk/go-batis/batis/model"
	"github.com/startdusk/go-batis/batis/statement"
)

type FactoryOption func(f *Factory)

// Factory 持有语句定义, 类型注册表, 映射计划缓存和连接工厂
type Factory struct {
	core
	session *session

	registerer prometheus.Registerer
	closeOnce  sync.Once
	closeErr   error
}

func Open(driver string, dataSourceName string, catalog *statement.Catalog, opts ...FactoryOption) (*Factory, error) {
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, err
	}
	return OpenDB(db, catalog, opts...)
}

func OpenDB(db *sql.DB, catalog *statement.Catalog, opts ...FactoryOption) (*Factory, error) {
	return New(NewDBConnFactory(db), catalog, opts...)
}

func MustOpen(driver string, dataSourceName string, catalog *statement.Catalog, opts ...FactoryOption) *Factory {
	f, err := Open(driver, dataSourceName, catalog, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func New(conns ConnFactory, catalog *statement.Catalog, opts ...FactoryOption) (*Factory, error) {
	if conns == nil {
		return nil, errs.NewErrMissingConfig("connection factory")
	}
	if catalog == nil {
		return nil, errs.NewErrMissingConfig("statement catalog")
	}
	f := &Factory{
		core: core{
			catalog: catalog,
			codecs:  codec.NewRegistry(),
			models:  model.NewRegistry(),
			creator: valuer.NewUnsafeValue,
			config:  DefaultConfiguration(),
			conns:   conns,
		},
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(f)
	}

	plans, err := newPlanCache(f.config.PlanCacheSize)
	if err != nil {
		return nil, err
	}
	f.plans = plans
	f.binder = &binder{
		codecs:        f.codecs,
		models:        f.models,
		creator:       f.creator,
		camel:         f.config.MapUnderscoreToCamelCase,
		bindAfterNull: f.config.BindAfterNull,
	}
	f.mapper = &rowMapper{
		codecs:             f.codecs,
		models:             f.models,
		creator:            f.creator,
		plans:              plans,
		camel:              f.config.MapUnderscoreToCamelCase,
		callSettersOnNulls: f.config.CallSettersOnNulls,
	}
	f.mappers = syncx.NewMap[reflect.Type, []*mapperMethod](8)

	if f.config.MetricsEnabled {
		metrics := batisprom.MiddlewareBuilder{
			Namespace:  "batis",
			Subsystem:  "statement",
			Name:       "duration_ms",
			Help:       "语句执行耗时",
			Registerer: f.registerer,
		}
		// 统计放在最外层
		f.mdls = append([]Middleware{metrics.Build()}, f.mdls...)
	}
	f.session = &session{core: &f.core}
	return f, nil
}

// OpenSession 返回共享的会话, 连接工厂本身可以并发使用
func (f *Factory) OpenSession() Session {
	return f.session
}

// Codecs 返回类型注册表, 应该在启动的时候注册完
func (f *Factory) Codecs() *codec.Registry {
	return f.codecs
}

func (f *Factory) Catalog() *statement.Catalog {
	return f.catalog
}

// Close 清空缓存并且关闭连接工厂, 可以重复调用
func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		f.plans.purge()
		f.mappers.Clear()
		f.closeErr = f.conns.Close()
	})
	return f.closeErr
}

func UseReflect() FactoryOption {
	return func(f *Factory) {
		f.creator = valuer.NewReflectValue
	}
}

func WithModelRegistry(r model.Registry) FactoryOption {
	return func(f *Factory) {
		f.models = r
	}
}

func WithCodecs(r *codec.Registry) FactoryOption {
	return func(f *Factory) {
		f.codecs = r
	}
}

func WithConfiguration(cfg Configuration) FactoryOption {
	return func(f *Factory) {
		f.config = cfg
	}
}

func WithMiddlewares(mdls ...Middleware) FactoryOption {
	return func(f *Factory) {
		f.mdls = mdls
	}
}

// WithMetricsRegisterer 指定 MetricsEnabled 时注册指标的地方
func WithMetricsRegisterer(r prometheus.Registerer) FactoryOption {
	return func(f *Factory) {
		f.registerer = r
	}
}
