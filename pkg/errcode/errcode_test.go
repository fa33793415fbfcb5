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

package errcode

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ErrCode", func() {
	Context("Error()", func() {
		It("Getting text", func() {
			text := "Some text describing error"
			err := &errCode{code: ErrUnknown, text: text}
			Expect(err.Error()).To(Equal(text))
		})
		It("Getting text with cause", func() {
			err := Wrapf(ErrPersistence, errors.New("disk full"), "failed to write %s", "clouds.yaml")
			Expect(err.Error()).To(Equal("failed to write clouds.yaml: disk full"))
		})
	})
	Context("GetCode()", func() {
		It("Passing 'error' type", func() {
			var err error
			Expect(GetCode(err)).To(Equal(NotErrCodeType))
		})
		It("Passing 'errCode' type", func() {
			err := &errCode{}
			Expect(GetCode(err)).To(Equal(ErrUnknown))
		})
		It("Passing wrapped 'errCode' type", func() {
			err := fmt.Errorf("add failed: %w", NewErr(ErrCloudAlreadyExists, "exists"))
			Expect(GetCode(err)).To(Equal(ErrCloudAlreadyExists))
			Expect(Is(err, ErrCloudAlreadyExists)).To(BeTrue())
			Expect(Is(err, ErrInvalidCloud)).To(BeFalse())
		})
	})
	Context("Errorf()", func() {
		It("Passing valid code & arguments list", func() {
			err := Errorf(ErrInvalidCloud, "Some text '%s', int '%d'", "abcd", 123)
			Expect(GetCode(err)).To(Equal(ErrInvalidCloud))
			Expect(err.Error()).To(Equal("Some text 'abcd', int '123'"))
		})
		It("Passing invalid 'code' value range: ErrMax", func() {
			err := Errorf(ErrMax, "")
			Expect(GetCode(err)).To(Equal(ErrUnknown))
		})
		It("Passing invalid 'code' value out of range range", func() {
			err := Errorf(-100, "")
			Expect(GetCode(err)).To(Equal(ErrUnknown))
		})
	})
	Context("Wrapf()", func() {
		It("Keeps the cause reachable", func() {
			cause := errors.New("permission denied")
			err := Wrapf(ErrPersistence, cause, "failed")
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(GetCode(err)).To(Equal(ErrPersistence))
		})
	})
})
