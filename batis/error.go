package batis

import (
	"github.com/startdusk/go-batis/batis/internal/errs"
)

var (
	// ErrNoRows 代表没有找到数据, 和 sql.ErrNoRows 语义一致
	ErrNoRows = errs.ErrNoRows

	// 错误分类, 用 errors.Is 判断
	// 执行错误不在其中, 驱动的错误会原样返回
	ErrConfiguration = errs.ErrConfiguration
	ErrBinding       = errs.ErrBinding
	ErrMapping       = errs.ErrMapping
)
