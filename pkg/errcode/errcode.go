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

// Package errcode defines the errCode type, which extend common error handling,
// by providing error code value in addition to error message.
//
// To create new errCode with some text use `NewErr' method, with formatted
// text - `Errorf' method, and to keep an underlying cause - `Wrapf' method.
// Examples:
//   err := errcode.NewErr(errcode.ErrInvalidCloud, "cloud name is empty")
//   err := errcode.Errorf(errcode.ErrCloudAlreadyExists, "cloud %q already exists", name)
//   err := errcode.Wrapf(errcode.ErrPersistence, err, "failed to write %s", path)
//
// To get error code value use `GetCode' method, text - `Error' method. Example:
//   if errcode.GetCode(err) == errcode.ErrCloudAlreadyExists {
//        <do something>
//   }
//
// GetCode looks through wrapped errors, so codes survive fmt.Errorf("...: %w").
package errcode

import (
	"errors"
	"fmt"
)

type errCode struct {
	code  int
	text  string
	cause error
}

const (
	// Value for destinguishing non-errCode type.
	// Not used by errCode itself.
	NotErrCodeType = iota - 1
)

// Error returns error message.
func (e *errCode) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.text, e.cause)
	}
	return e.text
}

// Unwrap returns the underlying cause, if any.
func (e *errCode) Unwrap() error {
	return e.cause
}

// GetCode returns error code value or NotErrCodeType if variable isn't of type errCode.
func GetCode(e error) int {
	var err *errCode
	if !errors.As(e, &err) {
		return NotErrCodeType
	}
	return err.code
}

// Is reports whether e carries the given code.
func Is(e error, code int) bool {
	return e != nil && GetCode(e) == code
}

// NewErr creates new errCode with provided text.
func NewErr(code int, text string) error {
	return &errCode{code: normalize(code), text: text}
}

// Errorf creates new errCode with formated text.
func Errorf(code int, format string, a ...interface{}) error {
	return &errCode{code: normalize(code), text: fmt.Sprintf(format, a...)}
}

// Wrapf creates new errCode with formated text around cause.
func Wrapf(code int, cause error, format string, a ...interface{}) error {
	return &errCode{code: normalize(code), text: fmt.Sprintf(format, a...), cause: cause}
}

// If code !(NotErrCodeType < code < ErrMax) use ErrUnknown.
func normalize(code int) int {
	if code <= NotErrCodeType || code >= ErrMax {
		return ErrUnknown
	}
	return code
}
