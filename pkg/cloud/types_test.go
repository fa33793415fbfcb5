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

package cloud

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Mellanox/kube-local-cloud/pkg/errcode"
)

var _ = Describe("Cloud types", func() {
	Context("Validate", func() {
		It("Validate valid cloud", func() {
			Expect(newTestCloud(LocalCloudName).Validate()).To(Succeed())
		})
		It("Validate nil cloud", func() {
			var c *CloudConfig
			Expect(errcode.GetCode(c.Validate())).To(Equal(errcode.ErrInvalidCloud))
		})
		It("Validate cloud without name", func() {
			Expect(errcode.GetCode(newTestCloud("").Validate())).To(Equal(errcode.ErrInvalidCloud))
		})
		It("Validate cloud without credentials", func() {
			c := newTestCloud(LocalCloudName)
			c.CredentialsID = ""
			Expect(errcode.GetCode(c.Validate())).To(Equal(errcode.ErrInvalidCloud))
		})
		It("Validate cloud with empty pod yaml", func() {
			c := newTestCloud(LocalCloudName)
			c.PodAgentTemplates[0].PodYAML = ""
			err := c.Validate()
			Expect(errcode.GetCode(err)).To(Equal(errcode.ErrInvalidCloud))
			Expect(err.Error()).To(ContainSubstring("empty yaml"))
		})
	})
	Context("DeepCopy", func() {
		It("Copy does not share slices", func() {
			c := newTestCloud(LocalCloudName)
			out := c.DeepCopy()
			Expect(out).To(Equal(c))

			out.PodAgentTemplates[0].PodYAML = "changed"
			out.ChartRepositoryConfigs[0].URL = "changed"
			Expect(c.PodAgentTemplates[0].PodYAML).ToNot(Equal("changed"))
			Expect(c.ChartRepositoryConfigs[0].URL).ToNot(Equal("changed"))
		})
		It("Copy nil cloud", func() {
			var c *CloudConfig
			Expect(c.DeepCopy()).To(BeNil())
		})
	})
	Context("Credential", func() {
		It("String hides token", func() {
			cred := &Credential{ID: "id", Description: "desc", Token: "secret-token"}
			Expect(fmt.Sprint(cred)).ToNot(ContainSubstring("secret-token"))
			Expect(cred.String()).To(ContainSubstring("id"))
		})
		It("Generate unique ids", func() {
			Expect(NewCredentialID()).ToNot(Equal(NewCredentialID()))
			Expect(NewCredentialID()).To(MatchRegexp(`^[0-9a-f-]{36}$`))
		})
	})
})
