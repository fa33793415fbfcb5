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
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/Mellanox/kube-local-cloud/pkg/cloud"
	"github.com/Mellanox/kube-local-cloud/pkg/config"
	"github.com/Mellanox/kube-local-cloud/pkg/discovery"
	"github.com/Mellanox/kube-local-cloud/pkg/reconciler"
	"github.com/Mellanox/kube-local-cloud/pkg/token"
	"github.com/Mellanox/kube-local-cloud/pkg/verifier/mocks"
)

func testConfig(stateDir string) config.DaemonConfig {
	conf := config.DaemonConfig{}
	conf.Discovery.ServicePrefix = "KUBE_LOCAL_CLOUD_DAEMON_TEST"
	conf.Discovery.TokenPath = "testdata/fakeToken"
	conf.Discovery.VerifyTimeout = time.Second
	conf.Cloud.Namespace = "default"
	conf.Cloud.ChartRepoName = "Helm Charts"
	conf.Cloud.ChartRepoURL = "https://charts.helm.sh/stable"
	conf.Storage.RegistryFile = filepath.Join(stateDir, "state", "clouds.yaml")
	conf.Storage.CredentialsBackend = config.CredentialsBackendMemory
	return conf
}

var _ = Describe("Daemon", func() {
	var stateDir string

	BeforeEach(func() {
		stateDir = GinkgoT().TempDir()
	})

	Context("NewDaemon", func() {
		It("Create daemon from configuration", func() {
			d, err := NewDaemon(testConfig(stateDir))
			Expect(err).ToNot(HaveOccurred())
			Expect(d.Registry()).ToNot(BeNil())
		})
		It("Create daemon with file credentials", func() {
			conf := testConfig(stateDir)
			conf.Storage.CredentialsBackend = config.CredentialsBackendFile
			conf.Storage.CredentialsFile = filepath.Join(stateDir, "credentials.yaml")
			_, err := NewDaemon(conf)
			Expect(err).ToNot(HaveOccurred())
		})
		It("Create daemon with in-memory registry", func() {
			conf := testConfig(stateDir)
			conf.Storage.RegistryFile = ""
			d, err := NewDaemon(conf)
			Expect(err).ToNot(HaveOccurred())
			Expect(d.Registry().List()).To(BeEmpty())
		})
		It("Reject unsupported credentials backend", func() {
			conf := testConfig(stateDir)
			conf.Storage.CredentialsBackend = "vault"
			_, err := NewDaemon(conf)
			Expect(err).To(HaveOccurred())
		})
		It("Reject corrupted registry file", func() {
			conf := testConfig(stateDir)
			conf.Storage.RegistryFile = filepath.Join(stateDir, "clouds.yaml")
			Expect(os.WriteFile(conf.Storage.RegistryFile, []byte("clouds: [\n"), 0o600)).To(Succeed())
			_, err := NewDaemon(conf)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Run", func() {
		It("Stay idle outside a cluster", func() {
			conf := testConfig(stateDir)
			d, err := NewDaemon(conf)
			Expect(err).ToNot(HaveOccurred())

			d.Run(context.Background())
			Expect(d.Registry().List()).To(BeEmpty())
			Expect(filepath.Dir(conf.Storage.RegistryFile)).To(BeADirectory())

			res := d.CheckLocalCloud(context.Background())
			Expect(res.State).To(Equal(reconciler.StateIdle))
			Expect(res.Events).To(Equal([]reconciler.EventKind{reconciler.EventNotInCluster}))
		})

		Context("In a cluster", func() {
			var (
				verifierMock  *mocks.Verifier
				registry      cloud.Registry
				conf          config.DaemonConfig
				newTestDaemon func() *daemon
			)

			BeforeEach(func() {
				verifierMock = &mocks.Verifier{}
				conf = testConfig(stateDir)
				var err error
				registry, err = cloud.NewFileRegistry(conf.Storage.RegistryFile)
				Expect(err).ToNot(HaveOccurred())

				newTestDaemon = func() *daemon {
					rec, err := reconciler.New(reconciler.Options{
						Discoverer: discovery.NewDiscoverer("", map[string]string{
							"KUBERNETES_PORT_443_TCP_ADDR": "FAKE_IP",
							"KUBERNETES_PORT_443_TCP_PORT": "FAKE_PORT",
						}),
						TokenLoader: token.NewLoader("testdata/fakeToken"),
						Verifier:    verifierMock,
						Registry:    registry,
						Credentials: cloud.NewMemoryCredentialsStore(),
						Namespace:   "default",
						Sink:        reconciler.NewRecorder(),
					})
					Expect(err).ToNot(HaveOccurred())
					return newDaemon(conf, registry, rec)
				}
			})

			It("Register the local cloud on startup", func() {
				verifierMock.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
				d := newTestDaemon()
				d.Run(context.Background())

				Expect(registry.List()).To(HaveLen(1))
				reloaded, err := cloud.NewFileRegistry(conf.Storage.RegistryFile)
				Expect(err).ToNot(HaveOccurred())
				_, found := reloaded.FindByName(cloud.LocalCloudName)
				Expect(found).To(BeTrue())

				Expect(d.CheckLocalCloud(context.Background()).State).To(Equal(reconciler.StateAlreadyConfigured))
			})
			It("Run every task even if one fails", func() {
				verifierMock.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
				d := newTestDaemon()
				var order []string
				failing := StartupTask{Name: "failing", Run: func(context.Context) error {
					order = append(order, "failing")
					return errors.New("boom")
				}}
				tasks := []StartupTask{failing}
				for _, task := range d.tasks {
					task := task
					tasks = append(tasks, StartupTask{Name: task.Name, Run: func(ctx context.Context) error {
						order = append(order, task.Name)
						return task.Run(ctx)
					}})
				}
				d.tasks = tasks

				d.Run(context.Background())
				Expect(order).To(Equal([]string{"failing", "registry", "local-cloud"}))
				Expect(registry.List()).To(HaveLen(1))
			})
			It("Report a failed local cloud task", func() {
				verifierMock.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
				d := newTestDaemon()
				Expect(d.reconcileLocalCloud(context.Background())).To(MatchError(reconciler.ErrNotReachable))
			})
			It("Re-check periodically until cancelled", func() {
				var calls int32
				verifierMock.On("Verify", mock.Anything, mock.Anything, mock.Anything).
					Run(func(mock.Arguments) { atomic.AddInt32(&calls, 1) }).Return(false, nil)
				conf.PeriodicCheck = 1
				d := newTestDaemon()

				ctx, cancel := context.WithCancel(context.Background())
				done := make(chan struct{})
				go func() {
					defer GinkgoRecover()
					d.Run(ctx)
					close(done)
				}()

				Eventually(func() int32 { return atomic.LoadInt32(&calls) }, 5*time.Second).
					Should(BeNumerically(">=", 2))
				cancel()
				Eventually(done, 5*time.Second).Should(BeClosed())
				Expect(registry.List()).To(BeEmpty())
			})
		})
	})
})
