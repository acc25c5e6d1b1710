package bundlelib

import (
	"sort"
	"sync"
)

// VMap is a thread-safe generic map with read-write mutex protection.
type VMap[kT comparable, vT any] struct {
	kv map[kT]vT
	mu sync.RWMutex
}

// NewVMap creates and returns a new empty VMap.
func NewVMap[kT comparable, vT any]() *VMap[kT, vT] {
	return &VMap[kT, vT]{
		kv: make(map[kT]vT),
	}
}

// SetIfAbsent stores val under key unless the key is already present.
// It returns false, leaving the existing value untouched, on a collision.
func (vm *VMap[kT, vT]) SetIfAbsent(key kT, val vT) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if _, exists := vm.kv[key]; exists {
		return false
	}
	vm.kv[key] = val
	return true
}

// Get retrieves the value for key with read lock protection.
func (vm *VMap[kT, vT]) Get(key kT) (val vT, ok bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	val, ok = vm.kv[key]
	return
}

// Len returns the number of stored keys.
func (vm *VMap[kT, vT]) Len() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return len(vm.kv)
}

// Range iterates over all key-value pairs with read lock protection.
// If f returns false, iteration stops early. f must not modify the map.
func (vm *VMap[kT, vT]) Range(f func(key kT, val vT) bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for k, v := range vm.kv {
		if !f(k, v) {
			return
		}
	}
}

// SortedKeys returns the keys of a string-keyed VMap in ascending order.
func SortedKeys[vT any](vm *VMap[string, vT]) []string {
	keys := make([]string, 0, vm.Len())
	vm.Range(func(k string, _ vT) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)
	return keys
}
