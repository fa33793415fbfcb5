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

// Package cloud holds the cloud configuration model together with the registry
// of configured clouds and the credentials store the clouds reference.
package cloud

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Mellanox/kube-local-cloud/pkg/errcode"
)

// LocalCloudName is the reserved name of the auto-discovered in-cluster cloud
const LocalCloudName = "Local Kubernetes Cloud"

// Credential is a bearer token credential referenced by id from a cloud
type Credential struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description,omitempty"`
	Token       string `yaml:"token"`
}

// String never prints the token
func (c *Credential) String() string {
	return fmt.Sprintf("Credential{ID: %s, Description: %q}", c.ID, c.Description)
}

// NewCredentialID returns a fresh random credential id
func NewCredentialID() string {
	return uuid.NewString()
}

// PodAgentTemplate is the pod specification used to launch build agents
type PodAgentTemplate struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	PodYAML     string `yaml:"podYaml"`
}

// ChartRepositoryConfig references a chart repository used for deployments
type ChartRepositoryConfig struct {
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	CredentialsID string `yaml:"credentialsId,omitempty"`
}

// CloudConfig is a configured Kubernetes cloud
type CloudConfig struct {
	Name                   string                  `yaml:"name"`
	Endpoint               string                  `yaml:"endpoint"`
	Namespace              string                  `yaml:"namespace,omitempty"`
	CredentialsID          string                  `yaml:"credentialsId"`
	PodAgentTemplates      []PodAgentTemplate      `yaml:"podAgentTemplates"`
	ChartRepositoryConfigs []ChartRepositoryConfig `yaml:"chartRepositoryConfigs"`
}

// Validate checks the cloud can be registered
func (c *CloudConfig) Validate() error {
	if c == nil {
		return errcode.NewErr(errcode.ErrInvalidCloud, "cloud is nil")
	}
	if c.Name == "" {
		return errcode.NewErr(errcode.ErrInvalidCloud, "cloud name is empty")
	}
	if c.CredentialsID == "" {
		return errcode.Errorf(errcode.ErrInvalidCloud, "cloud %q has no credentials id", c.Name)
	}
	for idx, template := range c.PodAgentTemplates {
		if template.PodYAML == "" {
			return errcode.Errorf(errcode.ErrInvalidCloud, "cloud %q pod agent template %d has empty yaml", c.Name, idx)
		}
	}
	return nil
}

// DeepCopy returns a copy sharing no slices with c
func (c *CloudConfig) DeepCopy() *CloudConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.PodAgentTemplates != nil {
		out.PodAgentTemplates = make([]PodAgentTemplate, len(c.PodAgentTemplates))
		copy(out.PodAgentTemplates, c.PodAgentTemplates)
	}
	if c.ChartRepositoryConfigs != nil {
		out.ChartRepositoryConfigs = make([]ChartRepositoryConfig, len(c.ChartRepositoryConfigs))
		copy(out.ChartRepositoryConfigs, c.ChartRepositoryConfigs)
	}
	return &out
}
