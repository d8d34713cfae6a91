package batis

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"sync"

	"github.com/startdusk/go-batis/batis/internal/errs"
	"github.com/startdusk/go-batis/batis/middleware"
	"github.com/startdusk/go-batis/batis/statement"
)

var _ middleware.Stream = &Cursor{}

// Cursor 是延迟映射的结果流, 每次 Next 只读取并映射一行.
// 消费完, 出错, Close 或者 context 被取消, 都会释放连接, 并且只释放一次.
// Cursor 不是并发安全的, 但 Close 可以在任意 goroutine 调用
type Cursor struct {
	ctx    context.Context
	st     *statement.Statement
	mapper *rowMapper
	bounds RowBounds

	rows *sql.Rows
	stmt *sql.Stmt
	conn Conn

	view   *rowView
	plan   *plan
	cur    any
	mapped int
	done   bool

	stop     func() bool
	once     sync.Once
	lock     sync.Mutex
	err      error
	closed   bool
	closeErr error
	onClose  []func(err error)
}

func newCursor(ctx context.Context, st *statement.Statement, mapper *rowMapper, bounds RowBounds,
	conn Conn, stmt *sql.Stmt, rows *sql.Rows) *Cursor {
	c := &Cursor{
		ctx:    ctx,
		st:     st,
		mapper: mapper,
		bounds: bounds,
		rows:   rows,
		stmt:   stmt,
		conn:   conn,
	}
	// context 已经结束, 直接释放, 不需要再注册回调
	if err := ctx.Err(); err != nil {
		c.release(err)
		return c
	}
	// 调用方不再拉取数据的时候, 取消 context 也能释放连接.
	// 回调可能在赋值之前就开始执行, 所以 stop 的读写都要加锁
	c.lock.Lock()
	c.stop = context.AfterFunc(ctx, func() {
		c.release(ctx.Err())
	})
	c.lock.Unlock()
	return c
}

// Next 读取并映射下一行, 返回 false 代表结束, 需要检查 Err
func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	if c.isClosed() {
		c.done = true
		return false
	}
	if c.view == nil {
		if !c.init() {
			return false
		}
	}
	if !c.rows.Next() {
		c.finish(c.rows.Err())
		return false
	}
	if err := c.rows.Scan(c.view.dest...); err != nil {
		c.finish(err)
		return false
	}
	if c.plan == nil {
		p, err := c.mapper.plan(c.st.Result, c.view)
		if err != nil {
			c.finish(errs.NewErrMapping(c.st.ID, "", err))
			return false
		}
		c.plan = p
	}
	v, err := c.mapper.mapRow(c.st.ID, c.plan, c.view)
	if err != nil {
		c.finish(err)
		return false
	}
	c.cur = v
	c.mapped++
	// 到达上限立刻释放连接, 当前这一行依旧有效
	if c.bounds.Limit > 0 && c.mapped >= c.bounds.Limit {
		c.done = true
		c.release(nil)
	}
	return true
}

func (c *Cursor) init() bool {
	cols, err := c.rows.Columns()
	if err != nil {
		c.finish(err)
		return false
	}
	c.view = newRowView(cols)
	// 跳过的行不需要映射
	for i := 0; i < c.bounds.Offset; i++ {
		if !c.rows.Next() {
			c.finish(c.rows.Err())
			return false
		}
	}
	return true
}

// Value 返回当前行映射的结果
func (c *Cursor) Value() any {
	return c.cur
}

// Err 返回游标的最终错误, 被 Close 的时候为 nil
func (c *Cursor) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.err
}

// Close 提前结束, 可以重复调用
func (c *Cursor) Close() error {
	c.release(nil)
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closeErr
}

// OnClose 注册结束时的回调, 已经结束的游标会立刻回调
func (c *Cursor) OnClose(fn func(err error)) {
	c.lock.Lock()
	if !c.closed {
		c.onClose = append(c.onClose, fn)
		c.lock.Unlock()
		return
	}
	err := c.err
	c.lock.Unlock()
	fn(err)
}

// All 用于 for range 遍历, 提前 break 会关闭游标
func (c *Cursor) All() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		defer func() {
			_ = c.Close()
		}()
		for c.Next() {
			if !yield(c.Value(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (c *Cursor) isClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

func (c *Cursor) finish(err error) {
	c.done = true
	c.cur = nil
	// 被取消的时候 rows.Err 不一定能拿到 context 的错误
	if err == nil && c.ctx.Err() != nil {
		err = c.ctx.Err()
	}
	c.release(err)
}

// release 按 rows, stmt, conn 的顺序关闭, 只执行一次
func (c *Cursor) release(err error) {
	c.once.Do(func() {
		c.lock.Lock()
		stop := c.stop
		c.lock.Unlock()
		if stop != nil {
			stop()
		}
		closeErr := errors.Join(c.rows.Close(), c.stmt.Close(), c.conn.Close())

		c.lock.Lock()
		c.closed = true
		c.err = err
		c.closeErr = closeErr
		hooks := c.onClose
		c.onClose = nil
		c.lock.Unlock()

		for _, fn := range hooks {
			fn(err)
		}
	})
}
