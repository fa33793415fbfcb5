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

package discovery

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Environment Discoverer", func() {
	Context("NewDiscoverer", func() {
		It("Use default prefix", func() {
			addrVar, portVar := NewDiscoverer("", nil).VariableNames()
			Expect(addrVar).To(Equal("KUBERNETES_PORT_443_TCP_ADDR"))
			Expect(portVar).To(Equal("KUBERNETES_PORT_443_TCP_PORT"))
		})
		It("Use custom prefix", func() {
			addrVar, portVar := NewDiscoverer(" my_api ", nil).VariableNames()
			Expect(addrVar).To(Equal("MY_API_PORT_443_TCP_ADDR"))
			Expect(portVar).To(Equal("MY_API_PORT_443_TCP_PORT"))
		})
	})
	Context("Discover", func() {
		It("Discover endpoint from environment", func() {
			d := NewDiscoverer("", map[string]string{
				"KUBERNETES_PORT_443_TCP_ADDR": "FAKE_IP",
				"KUBERNETES_PORT_443_TCP_PORT": "FAKE_PORT",
			})
			endpoint, found := d.Discover()
			Expect(found).To(BeTrue())
			Expect(endpoint.Host).To(Equal("FAKE_IP"))
			Expect(endpoint.Port).To(Equal("FAKE_PORT"))
			Expect(endpoint.Address()).To(Equal("FAKE_IP:FAKE_PORT"))
		})
		It("Discover endpoint from process environment", func() {
			Expect(os.Setenv("TESTSVC_PORT_443_TCP_ADDR", "10.96.0.1")).ToNot(HaveOccurred())
			Expect(os.Setenv("TESTSVC_PORT_443_TCP_PORT", "443")).ToNot(HaveOccurred())
			DeferCleanup(func() {
				Expect(os.Unsetenv("TESTSVC_PORT_443_TCP_ADDR")).ToNot(HaveOccurred())
				Expect(os.Unsetenv("TESTSVC_PORT_443_TCP_PORT")).ToNot(HaveOccurred())
			})

			endpoint, found := NewDiscoverer("TESTSVC", nil).Discover()
			Expect(found).To(BeTrue())
			Expect(endpoint.URL()).To(Equal("https://10.96.0.1:443"))
		})
		It("Bracket IPv6 hosts", func() {
			endpoint := &ClusterEndpoint{Host: "fd00::1", Port: "443"}
			Expect(endpoint.URL()).To(Equal("https://[fd00::1]:443"))
		})
		DescribeTable("Not running in a cluster",
			func(environ map[string]string) {
				endpoint, found := NewDiscoverer("", environ).Discover()
				Expect(found).To(BeFalse())
				Expect(endpoint).To(BeNil())
			},
			Entry("no variables", map[string]string{}),
			Entry("address missing", map[string]string{"KUBERNETES_PORT_443_TCP_PORT": "443"}),
			Entry("port missing", map[string]string{"KUBERNETES_PORT_443_TCP_ADDR": "10.96.0.1"}),
			Entry("address empty", map[string]string{
				"KUBERNETES_PORT_443_TCP_ADDR": "", "KUBERNETES_PORT_443_TCP_PORT": "443"}),
			Entry("port blank", map[string]string{
				"KUBERNETES_PORT_443_TCP_ADDR": "10.96.0.1", "KUBERNETES_PORT_443_TCP_PORT": "  "}),
			Entry("other service only", map[string]string{
				"OTHER_PORT_443_TCP_ADDR": "10.96.0.1", "OTHER_PORT_443_TCP_PORT": "443"}),
		)
	})
})
