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

package k8s_client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

// Client is the cluster repository used to check an API server is reachable with a bearer token
type Client interface {
	// TestConnection returns true if the API server at endpoint answers with the given token.
	// An unreachable server is not an error, error is returned only on internal faults.
	TestConnection(ctx context.Context, endpoint, token string) (bool, error)
	// ServerVersion returns the git version reported by the API server at endpoint.
	ServerVersion(ctx context.Context, endpoint, token string) (string, error)
}

type RepositoryConfig struct {
	CAFile   string        // CA bundle used to verify the API server certificate
	Insecure bool          // Skip API server certificate verification
	Timeout  time.Duration // Per request timeout, 0 means no timeout
}

type client struct {
	conf         RepositoryConfig
	newClientset func(*rest.Config) (kubernetes.Interface, error)
}

// errConfig marks errors raised while building the client, as opposed to talking to the server
type errConfig struct {
	err error
}

func (e *errConfig) Error() string {
	return e.err.Error()
}

func (e *errConfig) Unwrap() error {
	return e.err
}

// NewK8sClient returns a kubernetes cluster repository
func NewK8sClient(conf RepositoryConfig) Client {
	return &client{conf: conf, newClientset: func(c *rest.Config) (kubernetes.Interface, error) {
		return kubernetes.NewForConfig(c)
	}}
}

// NewInClusterClientset returns a clientset for the cluster the process runs in,
// falling back to the kubeconfig when running outside of a pod
func NewInClusterClientset() (kubernetes.Interface, error) {
	log.Info().Msg("Setting up kubernetes client")
	conf, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("unable to set up client config error %v", err)
	}

	clientset, err := kubernetes.NewForConfig(conf)
	if err != nil {
		return nil, fmt.Errorf("unable to create a kubernetes client error %v", err)
	}
	return clientset, nil
}

func (c *client) TestConnection(ctx context.Context, endpoint, token string) (bool, error) {
	gitVersion, err := c.ServerVersion(ctx, endpoint, token)
	if err != nil {
		var confErr *errConfig
		if errors.As(err, &confErr) {
			return false, err
		}
		log.Warn().Msgf("kubernetes api server %s is not reachable: %v", endpoint, err)
		return false, nil
	}

	log.Debug().Msgf("kubernetes api server %s answered, version %s", endpoint, gitVersion)
	return true, nil
}

func (c *client) ServerVersion(ctx context.Context, endpoint, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	restConf, err := c.restConfig(ctx, endpoint, token)
	if err != nil {
		return "", &errConfig{err: err}
	}

	clientset, err := c.newClientset(restConf)
	if err != nil {
		return "", &errConfig{err: fmt.Errorf("unable to create a kubernetes client error %v", err)}
	}

	info, err := clientset.Discovery().ServerVersion()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %v", ctxErr, err)
		}
		return "", err
	}
	return info.GitVersion, nil
}

func (c *client) restConfig(ctx context.Context, endpoint, token string) (*rest.Config, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty kubernetes api endpoint")
	}

	restConf := &rest.Config{
		Host:        endpoint,
		BearerToken: token,
		Timeout:     c.conf.Timeout,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: c.conf.Insecure,
		},
	}

	// the request timeout never outlives the caller's deadline
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if restConf.Timeout == 0 || remaining < restConf.Timeout {
			restConf.Timeout = remaining
		}
	}

	if c.conf.Insecure || c.conf.CAFile == "" {
		return restConf, nil
	}

	if _, err := os.Stat(c.conf.CAFile); err != nil {
		if os.IsNotExist(err) {
			log.Warn().Msgf("CA file %s not found, using system roots", c.conf.CAFile)
			return restConf, nil
		}
		return nil, fmt.Errorf("failed to access CA file %s: %v", c.conf.CAFile, err)
	}
	restConf.TLSClientConfig.CAFile = c.conf.CAFile

	return restConf, nil
}
