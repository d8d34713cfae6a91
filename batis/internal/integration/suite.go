//go:build integration

package integration

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/startdusk/go-batis/batis"
	"github.com/startdusk/go-batis/batis/codec"
	"github.com/startdusk/go-batis/batis/internal/test"
	"github.com/startdusk/go-batis/batis/statement"
)

type Suite struct {
	suite.Suite

	driver string
	dsn    string
	// ddl 按顺序执行, 用来建表
	ddl []string

	db      *sql.DB
	factory *batis.Factory
	sess    batis.Session
}

func (s *Suite) SetupSuite() {
	t := s.T()
	db, err := sql.Open(s.driver, s.dsn)
	require.NoError(t, err)
	for _, ddl := range s.ddl {
		_, err = db.ExecContext(context.Background(), ddl)
		require.NoError(t, err)
	}
	s.db = db

	d, ok := statement.DialectOf(s.driver)
	require.True(t, ok)
	catalog := statement.NewCatalog(statement.CatalogWithDialect(d))
	require.NoError(t, catalog.Add(statements()...))

	codecs := codec.NewRegistry()
	codec.Register[test.Address](codecs, codec.JSON[test.Address]{})
	cfg := batis.DefaultConfiguration()
	cfg.MapUnderscoreToCamelCase = true
	s.factory, err = batis.OpenDB(db, catalog, batis.WithConfiguration(cfg), batis.WithCodecs(codecs))
	require.NoError(t, err)
	s.sess = s.factory.OpenSession()
}

func (s *Suite) TearDownSuite() {
	if s.factory != nil {
		_ = s.factory.Close()
	}
}

// Shop 的地址用 JSON 编解码器存在一列里面
type Shop struct {
	ID      int64
	Name    string
	Address test.Address
}

// 有些列名在 MySQL 里面是保留字
const simpleColumns = "`id`, `bool`, `bool_ptr`, `int`, `int_ptr`, `int8`, `int16`, `int32`, `int64`, " +
	"`uint`, `uint8`, `uint16`, `uint32`, `uint64`, `float32`, `float64`, `float64_ptr`, " +
	"`byte_array`, `string`, `null_string_ptr`, `null_int64_ptr`, `json_column`"

func statements() []*statement.Statement {
	return []*statement.Statement{
		statement.New("simple.insert", statement.Insert,
			"INSERT INTO simple_struct("+simpleColumns+") VALUES ("+
				"#{id}, #{bool}, #{boolPtr}, #{int}, #{intPtr}, #{int8}, #{int16}, #{int32}, #{int64}, "+
				"#{uint}, #{uint8}, #{uint16}, #{uint32}, #{uint64}, #{float32}, #{float64}, #{float64Ptr}, "+
				"#{byteArray}, #{string}, #{nullStringPtr}, #{nullInt64Ptr}, #{jsonColumn})"),
		statement.New("simple.findById", statement.Select,
			"SELECT "+simpleColumns+" FROM simple_struct WHERE id = #{id}",
			statement.WithResult(statement.ResultOf[*test.SimpleStruct]("simple"))),
		statement.New("simple.ids", statement.Select,
			"SELECT id FROM simple_struct ORDER BY id",
			statement.WithResult(statement.ResultOf[uint64]("id"))),
		statement.New("simple.deleteAll", statement.Delete, "DELETE FROM simple_struct"),

		statement.New("shop.insert", statement.Insert,
			"INSERT INTO shop(name, address) VALUES (#{name}, #{address})",
			statement.WithKeyGenerator(statement.KeyGenLastInsertID, "ID")),
		statement.New("shop.findById", statement.Select,
			"SELECT id, name, address FROM shop WHERE id = #{id}",
			statement.WithResult(statement.ResultOf[*Shop]("shop"))),
	}
}
