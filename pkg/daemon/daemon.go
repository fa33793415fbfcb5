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

package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/Mellanox/kube-local-cloud/pkg/cloud"
	"github.com/Mellanox/kube-local-cloud/pkg/config"
	"github.com/Mellanox/kube-local-cloud/pkg/discovery"
	k8sClient "github.com/Mellanox/kube-local-cloud/pkg/k8s-client"
	"github.com/Mellanox/kube-local-cloud/pkg/reconciler"
	"github.com/Mellanox/kube-local-cloud/pkg/templates"
	"github.com/Mellanox/kube-local-cloud/pkg/token"
	"github.com/Mellanox/kube-local-cloud/pkg/verifier"
)

type Daemon interface {
	// Run executes the startup tasks in order and, when a period is configured,
	// re-checks the local cloud until ctx is done.
	Run(ctx context.Context)
	// CheckLocalCloud triggers a single reconciliation.
	CheckLocalCloud(ctx context.Context) *reconciler.Result
	// Registry returns the cloud registry the daemon writes to.
	Registry() cloud.Registry
}

// StartupTask is a named step of the daemon startup sequence
type StartupTask struct {
	Name string
	Run  func(ctx context.Context) error
}

type daemon struct {
	config     config.DaemonConfig
	registry   cloud.Registry
	reconciler *reconciler.Reconciler
	tasks      []StartupTask
}

// NewDaemon initializes the needed components including the cloud registry, credentials store,
// API server verifier and local cloud reconciler. It returns error in case of failure.
func NewDaemon(conf config.DaemonConfig) (Daemon, error) {
	registry, err := newRegistry(&conf)
	if err != nil {
		return nil, err
	}

	credentials, err := newCredentialsStore(&conf)
	if err != nil {
		return nil, err
	}

	repo := k8sClient.NewK8sClient(k8sClient.RepositoryConfig{
		CAFile:   conf.Discovery.CAFile,
		Insecure: conf.Discovery.InsecureTLS,
		Timeout:  conf.Discovery.VerifyTimeout,
	})

	podTemplatePath := conf.Cloud.PodTemplatePath
	rec, err := reconciler.New(reconciler.Options{
		Discoverer:  discovery.NewDiscoverer(conf.Discovery.ServicePrefix, nil),
		TokenLoader: token.NewLoader(conf.Discovery.TokenPath),
		Verifier:    verifier.NewVerifier(repo, conf.Discovery.VerifyTimeout),
		Registry:    registry,
		Credentials: credentials,
		PodTemplateLoader: func() (string, error) {
			return templates.LoadPodTemplate(podTemplatePath)
		},
		ChartRepository: templates.DefaultChartRepository(conf.Cloud.ChartRepoName, conf.Cloud.ChartRepoURL),
		Namespace:       conf.Cloud.Namespace,
	})
	if err != nil {
		return nil, err
	}

	return newDaemon(conf, registry, rec), nil
}

func newDaemon(conf config.DaemonConfig, registry cloud.Registry, rec *reconciler.Reconciler) *daemon {
	d := &daemon{config: conf, registry: registry, reconciler: rec}
	d.tasks = []StartupTask{
		{Name: "registry", Run: d.prepareRegistry},
		{Name: "local-cloud", Run: d.reconcileLocalCloud},
	}
	return d
}

func newRegistry(conf *config.DaemonConfig) (cloud.Registry, error) {
	if conf.Storage.RegistryFile == "" {
		log.Warn().Msg("no registry file configured, clouds are kept in memory only")
		return cloud.NewMemoryRegistry(), nil
	}
	log.Debug().Msgf("using cloud registry file %s", conf.Storage.RegistryFile)
	return cloud.NewFileRegistry(conf.Storage.RegistryFile)
}

func newCredentialsStore(conf *config.DaemonConfig) (cloud.CredentialsStore, error) {
	switch conf.Storage.CredentialsBackend {
	case config.CredentialsBackendMemory:
		return cloud.NewMemoryCredentialsStore(), nil
	case config.CredentialsBackendFile:
		return cloud.NewFileCredentialsStore(conf.Storage.CredentialsFile)
	case config.CredentialsBackendSecret:
		clientset, err := k8sClient.NewInClusterClientset()
		if err != nil {
			return nil, fmt.Errorf("failed to create kubernetes clientset for secret credentials: %w", err)
		}
		return cloud.NewSecretCredentialsStore(clientset, conf.Storage.CredentialsNamespace), nil
	}
	return nil, fmt.Errorf("unsupported credentials backend %q", conf.Storage.CredentialsBackend)
}

func (d *daemon) Registry() cloud.Registry {
	return d.registry
}

func (d *daemon) Run(ctx context.Context) {
	for _, task := range d.tasks {
		log.Debug().Msgf("running startup task %q", task.Name)
		if err := task.Run(ctx); err != nil {
			log.Error().Msgf("startup task %q failed: %v", task.Name, err)
		}
	}

	period := d.config.PeriodicCheckInterval()
	if period <= 0 {
		return
	}

	log.Info().Msgf("re-checking local cloud every %v", period)
	// the startup sequence already ran the first check
	first := true
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if first {
			first = false
			return
		}
		d.CheckLocalCloud(ctx)
	}, period)
}

func (d *daemon) CheckLocalCloud(ctx context.Context) *reconciler.Result {
	res := d.reconciler.CheckLocalCloud(ctx)
	log.Debug().Msgf("local cloud check finished in state %s", res.State)
	return res
}

// prepareRegistry makes sure the registry directory exists so the first write can succeed
func (d *daemon) prepareRegistry(_ context.Context) error {
	if path := d.config.Storage.RegistryFile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	log.Info().Msgf("cloud registry holds %d clouds", len(d.registry.List()))
	return nil
}

func (d *daemon) reconcileLocalCloud(ctx context.Context) error {
	res := d.CheckLocalCloud(ctx)
	if res.Err != nil {
		return fmt.Errorf("local cloud not configured: %w", res.Err)
	}
	return nil
}
