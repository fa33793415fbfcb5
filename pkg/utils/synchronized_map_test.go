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
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SynchronizedMap", func() {
	var m *SynchronizedMap[int]
	BeforeEach(func() {
		m = NewSynchronizedMap[int]()
	})

	It("Set and Get", func() {
		m.Set("a", 1)
		value, ok := m.Get("a")
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal(1))

		_, ok = m.Get("b")
		Expect(ok).To(BeFalse())
	})
	It("Keeps insertion order on overwrite", func() {
		m.Set("b", 1)
		m.Set("a", 2)
		m.Set("b", 3)
		Expect(m.Keys()).To(Equal([]string{"b", "a"}))
		Expect(m.Values()).To(Equal([]int{3, 2}))
		Expect(m.Len()).To(Equal(2))
	})
	It("Remove drops key from order", func() {
		m.Set("a", 1)
		m.Set("b", 2)
		m.Set("c", 3)
		m.Remove("b")
		m.Remove("not-there")
		Expect(m.Keys()).To(Equal([]string{"a", "c"}))
		Expect(m.Len()).To(Equal(2))
	})
	It("SetIfAbsent does not overwrite", func() {
		Expect(m.SetIfAbsent("a", 1)).To(BeTrue())
		Expect(m.SetIfAbsent("a", 2)).To(BeFalse())
		value, _ := m.Get("a")
		Expect(value).To(Equal(1))
	})
	It("SetIfAbsent admits a single winner under contention", func() {
		var wg sync.WaitGroup
		winners := make(chan int, 50)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if m.SetIfAbsent("key", i) {
					winners <- i
				}
			}(i)
		}
		wg.Wait()
		close(winners)
		Expect(winners).To(HaveLen(1))
		Expect(m.Len()).To(Equal(1))
	})
	It("Keys returns a copy", func() {
		for i := 0; i < 3; i++ {
			m.Set(fmt.Sprintf("k%d", i), i)
		}
		keys := m.Keys()
		keys[0] = "changed"
		Expect(m.Keys()[0]).To(Equal("k0"))
	})
})
