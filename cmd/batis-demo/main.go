package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/startdusk/go-batis/batis"
	"github.com/startdusk/go-batis/batis/middleware/querylog"
	"github.com/startdusk/go-batis/batis/middleware/slowquery"
	"github.com/startdusk/go-batis/batis/statement"
	"github.com/startdusk/go-batis/internal/config"
)

type User struct {
	ID        int64
	UserName  string `batis:"column=user_name"`
	Age       *int
	CreatedAt time.Time `batis:"column=created_at"`
}

type UserMapper struct {
	Insert   func(ctx context.Context, u *User) (int64, error)
	FindByID func(ctx context.Context, id int64) (*User, error)
	ListAll  func(ctx context.Context) ([]*User, error)
	Stream   func(ctx context.Context) (*batis.Cursor, error) `batis:"id=user.ListAll"`
	Count    func(ctx context.Context) (int64, error)
}

func (UserMapper) Namespace() string {
	return "user"
}

func statements() []*statement.Statement {
	return []*statement.Statement{
		statement.New("user.Insert", statement.Insert,
			"INSERT INTO user(user_name, created_at, age) VALUES (#{userName}, #{createdAt}, #{age,type=int})",
			statement.WithKeyGenerator(statement.KeyGenLastInsertID, "ID")),
		statement.New("user.FindByID", statement.Select,
			"SELECT id, user_name, age, created_at FROM user WHERE id = #{id}",
			statement.WithResult(statement.ResultOf[*User]("userResult")),
			statement.WithCache()),
		statement.New("user.ListAll", statement.Select,
			"SELECT id, user_name, age, created_at FROM user ORDER BY id",
			statement.WithResult(statement.ResultOf[*User]("userResult"))),
		statement.New("user.Count", statement.Select,
			"SELECT COUNT(*) FROM user",
			statement.WithResult(statement.ResultOf[int64]("count"))),
	}
}

const createTable = `CREATE TABLE IF NOT EXISTS user (
	id INTEGER PRIMARY KEY AUTO_INCREMENT,
	user_name VARCHAR(64) NOT NULL,
	age INTEGER,
	created_at DATETIME NOT NULL
)`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalln(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := open(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Println(err)
		}
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Println(err)
			}
		}()
	}

	if err = run(ctx, f); err != nil {
		log.Fatalln(err)
	}
	if cfg.MetricsAddr != "" {
		log.Printf("metrics 暴露在 %s/metrics, Ctrl+C 退出", cfg.MetricsAddr)
		<-ctx.Done()
	}
}

func open(cfg *config.Config) (*batis.Factory, error) {
	d, err := cfg.StatementDialect()
	if err != nil {
		return nil, err
	}
	catalog := statement.NewCatalog(statement.CatalogWithDialect(d))
	if err = catalog.Add(statements()...); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	ddl := createTable
	if cfg.Driver == "sqlite3" {
		// sqlite 没有 AUTO_INCREMENT, INTEGER PRIMARY KEY 就是自增的
		ddl = "CREATE TABLE IF NOT EXISTS user (id INTEGER PRIMARY KEY, user_name TEXT NOT NULL, age INTEGER, created_at DATETIME NOT NULL)"
	}
	if _, err = db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, err
	}

	conns := batis.NewDBConnFactory(db)
	if pc, ok := cfg.Pool(); ok {
		conns, err = batis.NewPoolConnFactory(db, pc)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return batis.New(conns, catalog,
		batis.WithConfiguration(cfg.Engine()),
		batis.WithMiddlewares(
			querylog.NewMiddlewareBuilder(nil).Build(),
			slowquery.NewMiddlewareBuilder(100*time.Millisecond, nil).Build(),
		))
}

func run(ctx context.Context, f *batis.Factory) error {
	var um UserMapper
	if err := f.OpenSession().GetMapper(&um); err != nil {
		return err
	}

	age := 18
	for _, name := range []string{"Tom", "Jerry"} {
		u := &User{UserName: name, Age: &age, CreatedAt: time.Now()}
		if _, err := um.Insert(ctx, u); err != nil {
			return err
		}
		log.Printf("插入 %s, id = %d", u.UserName, u.ID)
	}
	// NULL 之后的参数不会再绑定, 所以可空的列放在最后
	if _, err := um.Insert(ctx, &User{UserName: "Spike", CreatedAt: time.Now()}); err != nil {
		return err
	}

	u, err := um.FindByID(ctx, 1)
	if err != nil {
		return err
	}
	log.Printf("id = 1: %+v", u)

	users, err := um.ListAll(ctx)
	if err != nil {
		return err
	}
	log.Printf("一共 %d 个用户", len(users))

	cur, err := um.Stream(ctx)
	if err != nil {
		return err
	}
	for v, err := range cur.All() {
		if err != nil {
			return err
		}
		log.Printf("游标: %+v", v)
	}

	cnt, err := um.Count(ctx)
	if err != nil {
		return err
	}
	log.Printf("count = %d", cnt)
	return nil
}
