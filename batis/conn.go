package batis

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/silenceper/pool"
)

//go:generate mockgen -source=conn.go -destination=mocks/conn.mock.go -package=mocks

// ConnFactory 负责获取连接, 每次执行语句都会获取一个连接
type ConnFactory interface {
	Acquire(ctx context.Context) (Conn, error)
	// Close 释放所有连接资源
	Close() error
}

// Conn 是一次执行独占的连接, Close 代表归还
type Conn interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Close() error
}

var (
	_ ConnFactory = &dbConnFactory{}
	_ ConnFactory = &poolConnFactory{}
)

// NewDBConnFactory 直接使用 sql.DB 自带的连接池
func NewDBConnFactory(db *sql.DB) ConnFactory {
	return &dbConnFactory{db: db}
}

type dbConnFactory struct {
	db *sql.DB
}

func (f *dbConnFactory) Acquire(ctx context.Context) (Conn, error) {
	return f.db.Conn(ctx)
}

func (f *dbConnFactory) Close() error {
	return f.db.Close()
}

type PoolConfig struct {
	InitialCap  int
	MaxCap      int
	MaxIdle     int
	IdleTimeout time.Duration
}

// NewPoolConnFactory 在 sql.DB 之上再维护一个有界的连接池,
// 用来限制引擎同时占用的连接数
func NewPoolConnFactory(db *sql.DB, cfg PoolConfig) (ConnFactory, error) {
	p, err := pool.NewChannelPool(&pool.Config{
		InitialCap:  cfg.InitialCap,
		MaxCap:      cfg.MaxCap,
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		Factory: func() (any, error) {
			return db.Conn(context.Background())
		},
		Close: func(v any) error {
			return v.(*sql.Conn).Close()
		},
		Ping: func(v any) error {
			return v.(*sql.Conn).PingContext(context.Background())
		},
	})
	if err != nil {
		return nil, err
	}
	return &poolConnFactory{
		db:   db,
		pool: p,
	}, nil
}

type poolConnFactory struct {
	db   *sql.DB
	pool pool.Pool
}

func (f *poolConnFactory) Acquire(ctx context.Context) (Conn, error) {
	// pool 不支持 context, 至少在获取之前检查一下
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := f.pool.Get()
	if err != nil {
		return nil, err
	}
	return &pooledConn{
		Conn: val.(*sql.Conn),
		pool: f.pool,
	}, nil
}

func (f *poolConnFactory) Close() error {
	f.pool.Release()
	return f.db.Close()
}

// pooledConn 的 Close 是把连接放回池子里
type pooledConn struct {
	*sql.Conn
	pool pool.Pool
	once sync.Once
}

func (c *pooledConn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.pool.Put(c.Conn)
	})
	return err
}
