package batis

// Configuration 是引擎的行为开关
type Configuration struct {
	// MapUnderscoreToCamelCase 自动映射的时候 user_name 可以映射到 UserName
	MapUnderscoreToCamelCase bool
	// CallSettersOnNulls 列为 NULL 的时候, 依旧对指针, map, slice 和 interface 类型的属性调用 SetField 写入 nil.
	// 结果对象总是新创建的, 这些属性本来就是 nil, 映射出来的结果和关闭时一样,
	// 区别只在 valuer.Value 的 SetField 有没有被调用
	CallSettersOnNulls bool
	// MetricsEnabled 给每一个操作都加上 prometheus 统计
	MetricsEnabled bool
	// BindAfterNull 默认情况下, 绑定到一个 NULL 参数之后就不再绑定后面的参数.
	// 设置为 true 之后会继续绑定
	BindAfterNull bool
	// PlanCacheSize 映射计划缓存的容量
	PlanCacheSize int
}

func DefaultConfiguration() Configuration {
	return Configuration{
		PlanCacheSize: 256,
	}
}
