package batis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startdusk/go-batis/batis/internal/test"
	"github.com/startdusk/go-batis/batis/middleware"
	"github.com/startdusk/go-batis/batis/statement"
)

// countingConns 统计获取和归还连接的次数
type countingConns struct {
	ConnFactory
	acquired atomic.Int32
	released atomic.Int32
}

func (c *countingConns) Acquire(ctx context.Context) (Conn, error) {
	conn, err := c.ConnFactory.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	c.acquired.Add(1)
	return &countingConn{Conn: conn, released: &c.released}, nil
}

type countingConn struct {
	Conn
	released *atomic.Int32
}

func (c *countingConn) Close() error {
	c.released.Add(1)
	return c.Conn.Close()
}

type Token struct {
	ID   string
	Name string
}

func testStatements() []*statement.Statement {
	return []*statement.Statement{
		statement.New("user.findById", statement.Select,
			"SELECT id, name FROM user WHERE id = #{id}",
			statement.WithResult(statement.ResultOf[*test.User]("user"))),
		statement.New("user.listNames", statement.Select,
			"SELECT name FROM user",
			statement.WithResult(statement.ResultOf[[]any]("row"))),
		statement.New("user.listNameStrings", statement.Select,
			"SELECT name FROM user",
			statement.WithResult(statement.ResultOf[string]("name"))),
		statement.New("user.count", statement.Select,
			"SELECT COUNT(*) FROM user",
			statement.WithResult(statement.ResultOf[int64]("count"))),
		statement.New("user.insert", statement.Insert,
			"INSERT INTO user(name) VALUES (#{name})",
			statement.WithKeyGenerator(statement.KeyGenLastInsertID, "id")),
		statement.New("user.update", statement.Update,
			"UPDATE user SET name = #{name} WHERE id = #{id}"),
		statement.New("user.delete", statement.Delete,
			"DELETE FROM user WHERE id = #{id}"),
		statement.New("token.insert", statement.Insert,
			"INSERT INTO token(id, name) VALUES (#{id}, #{name})",
			statement.WithKeyGenerator(statement.KeyGenUUID, "ID")),
	}
}

func newTestFactory(t *testing.T, opts ...FactoryOption) (*Factory, sqlmock.Sqlmock, *countingConns) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	catalog := statement.NewCatalog()
	require.NoError(t, catalog.Add(testStatements()...))
	conns := &countingConns{ConnFactory: NewDBConnFactory(db)}
	f, err := New(conns, catalog, opts...)
	require.NoError(t, err)
	return f, mock, conns
}

func TestSession_SelectOne(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	sess := f.OpenSession()

	mock.ExpectPrepare("SELECT id, name FROM user WHERE id = ?").WillBeClosed().
		ExpectQuery().WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME"}).AddRow(7, "ann")).
		RowsWillBeClosed()

	u, err := SelectOne[*test.User](context.Background(), sess, "user.findById", int64(7))
	require.NoError(t, err)
	assert.Equal(t, &test.User{ID: 7, Name: "ann"}, u)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int32(1), conns.acquired.Load())
	assert.Equal(t, int32(1), conns.released.Load())
}

func TestSession_SelectOne_LastAndEmpty(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	sess := f.OpenSession()

	mock.ExpectPrepare("SELECT COUNT(*) FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"CNT"}).AddRow(1).AddRow(2).AddRow(3))
	n, err := SelectOne[int64](context.Background(), sess, "user.count", nil)
	require.NoError(t, err)
	// 消费完整个结果流, 留下最后一行
	assert.Equal(t, int64(3), n)

	mock.ExpectPrepare("SELECT COUNT(*) FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"CNT"}))
	_, err = sess.SelectOne(context.Background(), "user.count", nil)
	assert.Equal(t, ErrNoRows, err)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int32(2), conns.acquired.Load())
	assert.Equal(t, int32(2), conns.released.Load())
}

func TestSession_ListNames(t *testing.T) {
	f, mock, _ := newTestFactory(t)
	sess := f.OpenSession()
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"NAME"}).AddRow("ann").AddRow("bo").AddRow("cy")
	}

	mock.ExpectPrepare("SELECT name FROM user").ExpectQuery().WillReturnRows(rows())
	list, err := SelectList[[]any](context.Background(), sess, "user.listNames", nil)
	require.NoError(t, err)
	names := make([]any, 0, len(list))
	for _, row := range list {
		names = append(names, row...)
	}
	assert.Equal(t, []any{"ann", "bo", "cy"}, names)

	mock.ExpectPrepare("SELECT name FROM user").ExpectQuery().WillReturnRows(rows())
	strs, err := SelectList[string](context.Background(), sess, "user.listNameStrings", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bo", "cy"}, strs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_Insert_KeyGeneration(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	sess := f.OpenSession()

	mock.ExpectPrepare("INSERT INTO user(name) VALUES (?)").WillBeClosed().
		ExpectExec().WithArgs("x").WillReturnResult(sqlmock.NewResult(42, 1))
	u := &test.User{Name: "x"}
	n, err := sess.Insert(context.Background(), "user.insert", u)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(42), u.ID)

	mock.ExpectPrepare("INSERT INTO user(name) VALUES (?)").
		ExpectExec().WithArgs("y").WillReturnResult(sqlmock.NewResult(43, 1))
	m := map[string]any{"name": "y"}
	_, err = sess.Insert(context.Background(), "user.insert", m)
	require.NoError(t, err)
	assert.Equal(t, int64(43), m["id"])

	mock.ExpectPrepare("INSERT INTO token(id, name) VALUES (?, ?)").
		ExpectExec().WithArgs(sqlmock.AnyArg(), "z").WillReturnResult(sqlmock.NewResult(0, 1))
	tok := &Token{Name: "z"}
	_, err = sess.Insert(context.Background(), "token.insert", tok)
	require.NoError(t, err)
	_, err = uuid.Parse(tok.ID)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int32(3), conns.acquired.Load())
	assert.Equal(t, int32(3), conns.released.Load())
}

func TestSession_KeyGenerationParam(t *testing.T) {
	cases := []struct {
		name  string
		id    string
		param any
	}{
		{
			name:  "struct value",
			id:    "user.insert",
			param: test.User{Name: "v"},
		},
		{
			name:  "nil param",
			id:    "user.insert",
			param: nil,
		},
		{
			name:  "nil pointer",
			id:    "user.insert",
			param: (*test.User)(nil),
		},
		{
			name:  "pointer to non struct",
			id:    "user.insert",
			param: test.ToPtr[int64](1),
		},
		{
			name:  "uuid into struct value",
			id:    "token.insert",
			param: Token{Name: "z"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, mock, conns := newTestFactory(t)
			_, err := f.OpenSession().Insert(context.Background(), tc.id, tc.param)
			assert.ErrorIs(t, err, ErrConfiguration)
			// 没法回写主键的时候语句不能执行
			assert.Equal(t, int32(0), conns.acquired.Load())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSession_UpdateDelete(t *testing.T) {
	f, mock, _ := newTestFactory(t)
	sess := f.OpenSession()

	mock.ExpectPrepare("UPDATE user SET name = ? WHERE id = ?").
		ExpectExec().WithArgs("ann", 7).WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := sess.Update(context.Background(), "user.update", &test.User{ID: 7, Name: "ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectPrepare("DELETE FROM user WHERE id = ?").
		ExpectExec().WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))
	n, err = sess.Delete(context.Background(), "user.delete", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_ReleaseOnce(t *testing.T) {
	errExec := errors.New("exec failed")
	errRow := errors.New("row failed")
	cases := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		run     func(t *testing.T, sess Session) error
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT id, name FROM user WHERE id = ?").WillBeClosed().
					ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME"}).AddRow(7, "ann"))
			},
			run: func(t *testing.T, sess Session) error {
				_, err := sess.SelectOne(context.Background(), "user.findById", 7)
				return err
			},
		},
		{
			name: "mapping error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT id, name FROM user WHERE id = ?").WillBeClosed().
					ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME"}).AddRow("abc", "ann"))
			},
			run: func(t *testing.T, sess Session) error {
				_, err := sess.SelectOne(context.Background(), "user.findById", 7)
				return err
			},
			wantErr: ErrMapping,
		},
		{
			name: "query error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT id, name FROM user WHERE id = ?").WillBeClosed().
					ExpectQuery().WillReturnError(errExec)
			},
			run: func(t *testing.T, sess Session) error {
				_, err := sess.SelectMany(context.Background(), "user.findById", 7)
				return err
			},
			wantErr: errExec,
		},
		{
			name: "prepare error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT id, name FROM user WHERE id = ?").WillReturnError(errExec)
			},
			run: func(t *testing.T, sess Session) error {
				_, err := sess.SelectOne(context.Background(), "user.findById", 7)
				return err
			},
			wantErr: errExec,
		},
		{
			name: "exec error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("DELETE FROM user WHERE id = ?").WillBeClosed().
					ExpectExec().WillReturnError(errExec)
			},
			run: func(t *testing.T, sess Session) error {
				_, err := sess.Delete(context.Background(), "user.delete", 7)
				return err
			},
			wantErr: errExec,
		},
		{
			name: "row error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT name FROM user").WillBeClosed().
					ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"NAME"}).
					AddRow("ann").AddRow("bo").RowError(1, errRow))
			},
			run: func(t *testing.T, sess Session) error {
				cur, err := sess.SelectMany(context.Background(), "user.listNameStrings", nil)
				require.NoError(t, err)
				for cur.Next() {
				}
				return cur.Err()
			},
			wantErr: errRow,
		},
		{
			name: "closed early",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT name FROM user").WillBeClosed().
					ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"NAME"}).
					AddRow("ann").AddRow("bo").AddRow("cy")).RowsWillBeClosed()
			},
			run: func(t *testing.T, sess Session) error {
				cur, err := sess.SelectMany(context.Background(), "user.listNameStrings", nil)
				require.NoError(t, err)
				require.True(t, cur.Next())
				assert.Equal(t, "ann", cur.Value())
				require.NoError(t, cur.Close())
				// 重复关闭没有影响
				require.NoError(t, cur.Close())
				assert.False(t, cur.Next())
				return cur.Err()
			},
		},
		{
			name: "break in range",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("SELECT name FROM user").WillBeClosed().
					ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"NAME"}).
					AddRow("ann").AddRow("bo").AddRow("cy"))
			},
			run: func(t *testing.T, sess Session) error {
				cur, err := sess.SelectMany(context.Background(), "user.listNameStrings", nil)
				require.NoError(t, err)
				for v, err := range cur.All() {
					require.NoError(t, err)
					assert.Equal(t, "ann", v)
					break
				}
				return cur.Err()
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, mock, conns := newTestFactory(t)
			c.mock(mock)
			err := c.run(t, f.OpenSession())
			if c.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, c.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
			assert.Equal(t, int32(1), conns.acquired.Load())
			assert.Equal(t, int32(1), conns.released.Load())
		})
	}
}

func TestSession_Cancel(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	mock.ExpectPrepare("SELECT name FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"NAME"}).AddRow("ann").AddRow("bo").AddRow("cy"))

	ctx, cancel := context.WithCancel(context.Background())
	cur, err := f.OpenSession().SelectMany(ctx, "user.listNameStrings", nil)
	require.NoError(t, err)
	require.True(t, cur.Next())

	closed := make(chan error, 1)
	cur.OnClose(func(err error) {
		closed <- err
	})
	// 调用方不再拉取, 只取消 context
	cancel()
	assert.Eventually(t, func() bool {
		return conns.released.Load() == 1
	}, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, <-closed, context.Canceled)
	assert.False(t, cur.Next())
	assert.ErrorIs(t, cur.Err(), context.Canceled)
	assert.Equal(t, int32(1), conns.acquired.Load())
	assert.Equal(t, int32(1), conns.released.Load())
}

func TestCursor_CancelledContext(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	mock.ExpectPrepare("SELECT name FROM user").WillBeClosed().ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"NAME"}).AddRow("ann")).RowsWillBeClosed()

	conn, err := conns.Acquire(context.Background())
	require.NoError(t, err)
	stmt, err := conn.PrepareContext(context.Background(), "SELECT name FROM user")
	require.NoError(t, err)
	rows, err := stmt.QueryContext(context.Background())
	require.NoError(t, err)
	st, err := f.catalog.Get("user.listNameStrings")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cur := newCursor(ctx, st, f.mapper, RowBounds{}, conn, stmt, rows)
	// 创建的时候就已经释放, 不依赖回调
	assert.Equal(t, int32(1), conns.released.Load())

	closed := make(chan error, 1)
	cur.OnClose(func(err error) {
		closed <- err
	})
	assert.ErrorIs(t, <-closed, context.Canceled)
	assert.False(t, cur.Next())
	assert.ErrorIs(t, cur.Err(), context.Canceled)
	assert.NoError(t, cur.Close())
	assert.Equal(t, int32(1), conns.released.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_SelectBounds(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	mock.ExpectPrepare("SELECT COUNT(*) FROM user").WillBeClosed().ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"N"}).AddRow(1).AddRow(2).AddRow(3).AddRow(4).AddRow(5))

	cur, err := f.OpenSession().SelectBounds(context.Background(), "user.count", nil, RowBounds{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.True(t, cur.Next())
	assert.Equal(t, int64(2), cur.Value())
	require.True(t, cur.Next())
	assert.Equal(t, int64(3), cur.Value())
	// 到达上限就已经释放了
	assert.Equal(t, int32(1), conns.released.Load())
	assert.False(t, cur.Next())
	assert.NoError(t, cur.Err())
	assert.NoError(t, mock.ExpectationsWereMet())

	// offset 超过总行数
	mock.ExpectPrepare("SELECT COUNT(*) FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"N"}).AddRow(1))
	res, err := Collect[int64](mustCursor(f.OpenSession().SelectBounds(context.Background(), "user.count", nil, RowBounds{Offset: 3})))
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, int32(2), conns.released.Load())
}

func mustCursor(cur *Cursor, err error) *Cursor {
	if err != nil {
		panic(err)
	}
	return cur
}

func TestSession_Errors(t *testing.T) {
	f, mock, conns := newTestFactory(t)
	sess := f.OpenSession()

	_, err := sess.SelectOne(context.Background(), "user.nope", nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	// 绑定失败的时候还没有获取连接
	_, err = sess.SelectOne(context.Background(), "user.findById", make(chan int))
	assert.ErrorIs(t, err, ErrBinding)

	assert.Equal(t, int32(0), conns.acquired.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_Middlewares(t *testing.T) {
	var order []string
	var got *QueryContext
	record := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, qc *QueryContext) *QueryResult {
				order = append(order, name)
				got = qc
				return next(ctx, qc)
			}
		}
	}
	f, mock, _ := newTestFactory(t, WithMiddlewares(record("first"), record("second")))
	mock.ExpectPrepare("SELECT id, name FROM user WHERE id = ?").ExpectQuery().WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME"}).AddRow(7, "ann"))

	_, err := f.OpenSession().SelectOne(context.Background(), "user.findById", &test.User{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "SELECT", got.Type)
	assert.Equal(t, middleware.OpSelectOne, got.Op)
	assert.Equal(t, "user.findById", got.StatementID)
	assert.Equal(t, "SELECT id, name FROM user WHERE id = ?", got.Bound.SQL)
	assert.Equal(t, []any{int64(7)}, got.Args)
}

func TestSession_MiddlewareErrorReleasesCursor(t *testing.T) {
	errDenied := errors.New("denied")
	deny := func(next Handler) Handler {
		return func(ctx context.Context, qc *QueryContext) *QueryResult {
			res := next(ctx, qc)
			res.Err = errDenied
			return res
		}
	}
	f, mock, conns := newTestFactory(t, WithMiddlewares(deny))
	mock.ExpectPrepare("SELECT name FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"NAME"}).AddRow("ann"))
	_, err := f.OpenSession().SelectMany(context.Background(), "user.listNameStrings", nil)
	assert.Equal(t, errDenied, err)
	assert.Equal(t, int32(1), conns.released.Load())
}

func TestFactory_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultConfiguration()
	cfg.MetricsEnabled = true
	f, mock, _ := newTestFactory(t, WithConfiguration(cfg), WithMetricsRegisterer(reg))
	mock.ExpectPrepare("SELECT COUNT(*) FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"N"}).AddRow(1))
	_, err := f.OpenSession().SelectOne(context.Background(), "user.count", nil)
	require.NoError(t, err)

	// 第二个 Factory 共用同一个指标
	_, _, _ = newTestFactory(t, WithConfiguration(cfg), WithMetricsRegisterer(reg))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	assert.Equal(t, "batis_statement_duration_ms", mfs[0].GetName())
	require.Len(t, mfs[0].GetMetric(), 1)
	metric := mfs[0].GetMetric()[0]
	assert.Equal(t, uint64(1), metric.GetSummary().GetSampleCount())
	labels := map[string]string{}
	for _, l := range metric.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, map[string]string{"type": "SELECT", "statement": "user.count", "status": "ok"}, labels)
}

func TestFactory_Close(t *testing.T) {
	f, mock, _ := newTestFactory(t)
	mock.ExpectPrepare("SELECT COUNT(*) FROM user").ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"N"}).AddRow(1))
	_, err := f.OpenSession().SelectOne(context.Background(), "user.count", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.plans.len())
	assert.Same(t, f.OpenSession(), f.OpenSession())

	mock.ExpectClose()
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 0, f.plans.len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, statement.NewCatalog())
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = New(NewDBConnFactory(nil), nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}
