package statement

import (
	"strconv"
	"strings"
)

var (
	DialectMySQL    Dialect = mysqlDialect{}
	DialectPostgres Dialect = postgresDialect{}
	DialectSQLite   Dialect = sqliteDialect{}
)

// Dialect 决定 #{name} 编译成什么样的占位符
type Dialect interface {
	Name() string
	// placeholder 写入第 index 个(从 0 开始)占位符
	placeholder(sb *strings.Builder, index int)
}

// DialectOf 按名字查找方言, 不区分大小写
func DialectOf(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "mysql":
		return DialectMySQL, true
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, true
	case "sqlite", "sqlite3":
		return DialectSQLite, true
	default:
		return nil, false
	}
}

type standardSQL struct{}

func (standardSQL) placeholder(sb *strings.Builder, _ int) {
	sb.WriteByte('?')
}

type mysqlDialect struct {
	standardSQL
}

func (mysqlDialect) Name() string {
	return "mysql"
}

type sqliteDialect struct {
	standardSQL
}

func (sqliteDialect) Name() string {
	return "sqlite3"
}

type postgresDialect struct{}

func (postgresDialect) Name() string {
	return "postgres"
}

func (postgresDialect) placeholder(sb *strings.Builder, index int) {
	sb.WriteByte('$')
	sb.WriteString(strconv.Itoa(index + 1))
}
