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

package config

import (
	"fmt"
	"net/url"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	CredentialsBackendFile   = "file"
	CredentialsBackendSecret = "secret"
	CredentialsBackendMemory = "memory"
)

type DaemonConfig struct {
	// Interval in seconds between local cloud re-checks, 0 runs the check once at startup
	PeriodicCheck int `env:"LOCAL_CLOUD_PERIODIC_CHECK" envDefault:"0"`
	Discovery     DiscoveryConfig
	Cloud         CloudDefaultsConfig
	Storage       StorageConfig
}

type DiscoveryConfig struct {
	// Prefix of the service-discovery variables, <PREFIX>_PORT_443_TCP_ADDR
	ServicePrefix string        `env:"LOCAL_CLOUD_SERVICE_PREFIX" envDefault:"KUBERNETES"`
	TokenPath     string        `env:"LOCAL_CLOUD_TOKEN_PATH"     envDefault:"/var/run/secrets/kubernetes.io/serviceaccount/token"`
	CAFile        string        `env:"LOCAL_CLOUD_CA_FILE"        envDefault:"/var/run/secrets/kubernetes.io/serviceaccount/ca.crt"`
	InsecureTLS   bool          `env:"LOCAL_CLOUD_INSECURE_TLS"   envDefault:"false"`
	VerifyTimeout time.Duration `env:"LOCAL_CLOUD_VERIFY_TIMEOUT" envDefault:"10s"`
}

type CloudDefaultsConfig struct {
	Namespace       string `env:"LOCAL_CLOUD_NAMESPACE"         envDefault:"default"`
	PodTemplatePath string `env:"LOCAL_CLOUD_POD_TEMPLATE_PATH"` // Empty uses the bundled agent pod
	ChartRepoName   string `env:"LOCAL_CLOUD_CHART_REPO_NAME"   envDefault:"Helm Charts"`
	ChartRepoURL    string `env:"LOCAL_CLOUD_CHART_REPO_URL"    envDefault:"https://charts.helm.sh/stable"`
}

type StorageConfig struct {
	RegistryFile         string `env:"LOCAL_CLOUD_REGISTRY_FILE"         envDefault:"/var/lib/kube-local-cloud/clouds.yaml"`
	CredentialsBackend   string `env:"LOCAL_CLOUD_CREDENTIALS_BACKEND"   envDefault:"file"`
	CredentialsFile      string `env:"LOCAL_CLOUD_CREDENTIALS_FILE"      envDefault:"/var/lib/kube-local-cloud/credentials.yaml"`
	CredentialsNamespace string `env:"LOCAL_CLOUD_CREDENTIALS_NAMESPACE" envDefault:"default"`
}

func (dc *DaemonConfig) ReadConfig() error {
	log.Debug().Msg("Reading configuration environment variables")
	return env.Parse(dc)
}

func (dc *DaemonConfig) ValidateConfig() error {
	if dc.PeriodicCheck < 0 {
		return fmt.Errorf("invalid \"PeriodicCheck\" value %d", dc.PeriodicCheck)
	}

	if dc.Discovery.VerifyTimeout <= 0 {
		return fmt.Errorf("invalid \"VerifyTimeout\" value %v", dc.Discovery.VerifyTimeout)
	}

	if dc.Discovery.TokenPath == "" {
		return fmt.Errorf("no token path configured")
	}

	if dc.Cloud.ChartRepoURL != "" {
		if _, err := url.ParseRequestURI(dc.Cloud.ChartRepoURL); err != nil {
			return fmt.Errorf("invalid chart repository url %q: %v", dc.Cloud.ChartRepoURL, err)
		}
	}

	switch dc.Storage.CredentialsBackend {
	case CredentialsBackendFile:
		if dc.Storage.CredentialsFile == "" {
			return fmt.Errorf("credentials backend %q requires a credentials file", CredentialsBackendFile)
		}
	case CredentialsBackendSecret:
		if dc.Storage.CredentialsNamespace == "" {
			return fmt.Errorf("credentials backend %q requires a namespace", CredentialsBackendSecret)
		}
	case CredentialsBackendMemory:
	default:
		return fmt.Errorf("unsupported credentials backend %q", dc.Storage.CredentialsBackend)
	}

	return nil
}

// PeriodicCheckInterval returns the re-check period, zero when disabled
func (dc *DaemonConfig) PeriodicCheckInterval() time.Duration {
	return time.Duration(dc.PeriodicCheck) * time.Second
}
