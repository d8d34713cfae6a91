package batis

import (
	"strings"

	"github.com/startdusk/go-batis/batis/codec"
)

var _ codec.Row = &rowView{}

// rowView 是游标当前行的视图, 每次 Next 都会复用
type rowView struct {
	cols  []string
	index map[string]int
	vals  []any
	// dest 指向 vals 里面的每一个元素, 给 Scan 用
	dest []any
}

func newRowView(cols []string) *rowView {
	r := &rowView{
		cols:  cols,
		index: make(map[string]int, len(cols)),
		vals:  make([]any, len(cols)),
		dest:  make([]any, len(cols)),
	}
	for i, col := range cols {
		// 同名的列以第一个为准
		key := strings.ToLower(col)
		if _, ok := r.index[key]; !ok {
			r.index[key] = i
		}
		r.dest[i] = &r.vals[i]
	}
	return r
}

func (r *rowView) Columns() []string {
	return r.cols
}

func (r *rowView) Index(column string) int {
	i, ok := r.index[strings.ToLower(column)]
	if !ok {
		return -1
	}
	return i
}

func (r *rowView) Value(index int) any {
	return r.vals[index]
}
