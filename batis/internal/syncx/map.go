package syncx

import (
	"sync"
)

// Map 是带读写锁的泛型 map, 只提供引擎需要的几个操作
type Map[K comparable, V any] struct {
	data  map[K]V
	mutex sync.RWMutex
}

func NewMap[K comparable, V any](capacity int) *Map[K, V] {
	return &Map[K, V]{
		data: make(map[K]V, capacity),
	}
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

// LoadOrStore 使用RWMutex实现double check
// 加读锁先检查一遍
// 释放读锁
// 加写锁
// 再检查一遍
// 返回值 loaded 为 true 表示用的是已经存在的值, newVal 被丢弃
func (m *Map[K, V]) LoadOrStore(key K, newVal V) (actual V, loaded bool) {
	m.mutex.RLock()
	val, ok := m.data[key]
	m.mutex.RUnlock()
	if ok {
		return val, true
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	// double check 避免线程覆盖问题
	val, ok = m.data[key]
	if ok {
		return val, true
	}
	m.data[key] = newVal
	return newVal, false
}

func (m *Map[K, V]) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}

func (m *Map[K, V]) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = make(map[K]V, len(m.data))
}
