package statement

import (
	"sync"

	"github.com/startdusk/go-batis/batis/internal/errs"
)

// Catalog 维护所有的语句定义, 启动的时候注册, 运行期间只读
type Catalog struct {
	dialect Dialect
	stmts   map[string]*Statement
	lock    sync.RWMutex
}

type CatalogOption func(c *Catalog)

// NewCatalog 默认使用 MySQL 方言
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		dialect: DialectMySQL,
		stmts:   make(map[string]*Statement, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func CatalogWithDialect(d Dialect) CatalogOption {
	return func(c *Catalog) {
		c.dialect = d
	}
}

func (c *Catalog) Dialect() Dialect {
	return c.dialect
}

// Add 编译并注册语句, 重复的 id 是配置错误.
// 任意一条失败的时候, 这一批都不会注册
func (c *Catalog) Add(stmts ...*Statement) error {
	for _, s := range stmts {
		if err := c.compile(s); err != nil {
			return err
		}
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	seen := make(map[string]struct{}, len(stmts))
	for _, s := range stmts {
		if _, ok := c.stmts[s.ID]; ok {
			return errs.NewErrDuplicateStatement(s.ID)
		}
		if _, ok := seen[s.ID]; ok {
			return errs.NewErrDuplicateStatement(s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	for _, s := range stmts {
		c.stmts[s.ID] = s
	}
	return nil
}

func (c *Catalog) compile(s *Statement) error {
	if s.ID == "" {
		return errs.NewErrMissingConfig("statement id")
	}
	if s.Kind == Select && s.Result == nil {
		return errs.NewErrMissingConfig(s.ID + " result")
	}
	if s.KeyGenerator != KeyGenNone && len(s.KeyProperties) == 0 {
		return errs.NewErrKeyGeneration(s.ID, "没有声明主键属性")
	}
	query, params, err := Compile(s.Raw, c.dialect)
	if err != nil {
		return err
	}
	for i := range params {
		if cd, ok := s.paramCodecs[params[i].Name]; ok {
			params[i].Codec = cd
		}
	}
	s.SQL, s.Params = query, params
	return nil
}

// Get 找不到是配置错误
func (c *Catalog) Get(id string) (*Statement, error) {
	c.lock.RLock()
	s, ok := c.stmts[id]
	c.lock.RUnlock()
	if !ok {
		return nil, errs.NewErrUnknownStatement(id)
	}
	return s, nil
}

func (c *Catalog) Has(id string) bool {
	c.lock.RLock()
	_, ok := c.stmts[id]
	c.lock.RUnlock()
	return ok
}
