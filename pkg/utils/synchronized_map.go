// Copyright 2025 NVIDIA CORPORATION & AFFILIATES
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"sync"
)

// SynchronizedMap a thread safe string keyed map which remembers insertion order
type SynchronizedMap[V any] struct {
	items        map[string]V
	order        []string
	sync.RWMutex // Read Write mutex, guards access to internal map.
}

// NewSynchronizedMap creates a new synchronized map
func NewSynchronizedMap[V any]() *SynchronizedMap[V] {
	return &SynchronizedMap[V]{items: make(map[string]V)}
}

// Get retrieves an element from map under given key
func (m *SynchronizedMap[V]) Get(key string) (V, bool) {
	m.RLock()
	value, ok := m.items[key]
	m.RUnlock()
	return value, ok
}

// Set sets the given value under the specified key
func (m *SynchronizedMap[V]) Set(key string, value V) {
	m.Lock()
	m.UnSafeSet(key, value)
	m.Unlock()
}

// SetIfAbsent sets the value only when the key is not present yet.
// It returns false if the key already existed.
func (m *SynchronizedMap[V]) SetIfAbsent(key string, value V) bool {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.items[key]; ok {
		return false
	}
	m.UnSafeSet(key, value)
	return true
}

// Remove removes an element from the map
func (m *SynchronizedMap[V]) Remove(key string) {
	m.Lock()
	m.UnSafeRemove(key)
	m.Unlock()
}

// Len returns the number of elements in the map
func (m *SynchronizedMap[V]) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.items)
}

// Keys returns the keys in insertion order
func (m *SynchronizedMap[V]) Keys() []string {
	m.RLock()
	defer m.RUnlock()
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

// Values returns the values in insertion order
func (m *SynchronizedMap[V]) Values() []V {
	m.RLock()
	defer m.RUnlock()
	values := make([]V, 0, len(m.order))
	for _, key := range m.order {
		values = append(values, m.items[key])
	}
	return values
}

// UnSafeRemove removes an element from the map without lock
func (m *SynchronizedMap[V]) UnSafeRemove(key string) {
	if _, ok := m.items[key]; !ok {
		return
	}
	delete(m.items, key)
	for idx, k := range m.order {
		if k == key {
			m.order = append(m.order[:idx], m.order[idx+1:]...)
			break
		}
	}
}

// UnSafeSet sets the given value under the specified key without lock
func (m *SynchronizedMap[V]) UnSafeSet(key string, value V) {
	if _, ok := m.items[key]; !ok {
		m.order = append(m.order, key)
	}
	m.items[key] = value
}
