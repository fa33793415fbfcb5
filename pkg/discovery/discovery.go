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

// Package discovery detects whether the process runs inside a Kubernetes pod
// by looking at the service-discovery variables kubelet injects for the
// API server service, e.g. KUBERNETES_PORT_443_TCP_ADDR and
// KUBERNETES_PORT_443_TCP_PORT.
package discovery

import (
	"net"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	DefaultServicePrefix = "KUBERNETES"

	addrSuffix = "_PORT_443_TCP_ADDR"
	portSuffix = "_PORT_443_TCP_PORT"
)

// ClusterEndpoint is the in-cluster address of the Kubernetes API server
type ClusterEndpoint struct {
	Host string
	Port string
}

// Address returns host:port, bracketing IPv6 hosts
func (e *ClusterEndpoint) Address() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// URL returns the https URL of the API server
func (e *ClusterEndpoint) URL() string {
	return "https://" + e.Address()
}

func (e *ClusterEndpoint) String() string {
	return e.Address()
}

type Discoverer interface {
	// Discover returns the API server endpoint, or false when not running in a cluster.
	Discover() (*ClusterEndpoint, bool)
	// VariableNames returns the address and port variable names that are read.
	VariableNames() (string, string)
}

type serviceVars struct {
	Host string `env:"PORT_443_TCP_ADDR"`
	Port string `env:"PORT_443_TCP_PORT"`
}

type discoverer struct {
	prefix  string
	environ map[string]string
}

// NewDiscoverer creates a discoverer for the given service prefix. An empty prefix
// falls back to KUBERNETES and a nil environ reads the process environment.
func NewDiscoverer(servicePrefix string, environ map[string]string) Discoverer {
	prefix := strings.ToUpper(strings.TrimSpace(servicePrefix))
	if prefix == "" {
		prefix = DefaultServicePrefix
	}
	return &discoverer{prefix: prefix, environ: environ}
}

func (d *discoverer) VariableNames() (string, string) {
	return d.prefix + addrSuffix, d.prefix + portSuffix
}

func (d *discoverer) Discover() (*ClusterEndpoint, bool) {
	vars := serviceVars{}
	opts := env.Options{Prefix: d.prefix + "_", Environment: d.environ}
	if err := env.ParseWithOptions(&vars, opts); err != nil {
		// only string fields without required tags, parsing cannot really fail
		log.Debug().Msgf("failed to parse service discovery variables: %v", err)
		return nil, false
	}

	host := strings.TrimSpace(vars.Host)
	port := strings.TrimSpace(vars.Port)
	if host == "" || port == "" {
		addrVar, portVar := d.VariableNames()
		log.Debug().Msgf("%s or %s not set, not running in a kubernetes cluster", addrVar, portVar)
		return nil, false
	}

	return &ClusterEndpoint{Host: host, Port: port}, true
}
