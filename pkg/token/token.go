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

package token

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultTokenPath is where kubelet mounts the service account token
const DefaultTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

type Loader interface {
	// Path returns the token file path used by the loader.
	Path() string
	// LoadToken reads the bearer token, it returns error if the file is missing, unreadable or blank.
	LoadToken() (string, error)
}

type loader struct {
	path string
}

// NewLoader returns a loader for path, DefaultTokenPath if path is empty
func NewLoader(path string) Loader {
	if path == "" {
		path = DefaultTokenPath
	}
	return &loader{path: path}
}

func (l *loader) Path() string {
	return l.path
}

func (l *loader) LoadToken() (string, error) {
	return LoadToken(l.path)
}

// LoadToken reads the bearer token stored in the file at path
func LoadToken(path string) (string, error) {
	log.Debug().Msgf("loading bearer token from %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}

	return token, nil
}
