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

package templates

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	kapi "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"github.com/Mellanox/kube-local-cloud/pkg/cloud"
)

const (
	DefaultPodTemplateName        = "default"
	DefaultPodTemplateDescription = "Default build agent pod"
)

//go:embed default-agent-pod.yaml
var defaultAgentPod string

// DefaultPodYAML returns the bundled agent pod
func DefaultPodYAML() string {
	return defaultAgentPod
}

// LoadPodTemplate returns the pod YAML at path, or the bundled agent pod when path is empty.
// It returns error if the YAML is not a pod with at least one container.
func LoadPodTemplate(path string) (string, error) {
	podYAML := defaultAgentPod
	if path != "" {
		log.Debug().Msgf("loading agent pod template from %s", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read pod template %s: %w", path, err)
		}
		podYAML = string(data)
	}

	if err := ValidatePodYAML(podYAML); err != nil {
		return "", err
	}
	return podYAML, nil
}

// ValidatePodYAML checks podYAML decodes into a pod with containers
func ValidatePodYAML(podYAML string) error {
	if strings.TrimSpace(podYAML) == "" {
		return fmt.Errorf("pod template is empty")
	}

	pod := &kapi.Pod{}
	if err := yaml.UnmarshalStrict([]byte(podYAML), pod); err != nil {
		return fmt.Errorf("failed to parse pod template: %v", err)
	}
	if pod.Kind != "" && pod.Kind != "Pod" {
		return fmt.Errorf("pod template has kind %q, expected Pod", pod.Kind)
	}
	if len(pod.Spec.Containers) == 0 {
		return fmt.Errorf("pod template has no containers")
	}
	return nil
}

// DefaultPodAgentTemplate wraps podYAML in the default template entry
func DefaultPodAgentTemplate(podYAML string) cloud.PodAgentTemplate {
	return cloud.PodAgentTemplate{
		Name:        DefaultPodTemplateName,
		Description: DefaultPodTemplateDescription,
		PodYAML:     podYAML,
	}
}

// DefaultChartRepository returns the default chart repository entry
func DefaultChartRepository(name, url string) cloud.ChartRepositoryConfig {
	return cloud.ChartRepositoryConfig{Name: name, URL: url}
}
