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

// Package reconciler makes sure the in-cluster Kubernetes API server the process
// runs next to is registered as exactly one local cloud.
//
// CheckLocalCloud walks NotChecked -> Discovering -> Verifying and then either
// AlreadyConfigured, or Configuring -> Configured. Every failure ends in Idle
// without persisting anything. It is safe to call on every startup and on demand.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Mellanox/kube-local-cloud/pkg/cloud"
	"github.com/Mellanox/kube-local-cloud/pkg/discovery"
	"github.com/Mellanox/kube-local-cloud/pkg/templates"
	"github.com/Mellanox/kube-local-cloud/pkg/token"
	"github.com/Mellanox/kube-local-cloud/pkg/utils"
	"github.com/Mellanox/kube-local-cloud/pkg/verifier"
)

// State of the reconciler
type State string

const (
	StateNotChecked        State = "NotChecked"
	StateDiscovering       State = "Discovering"
	StateVerifying         State = "Verifying"
	StateAlreadyConfigured State = "AlreadyConfigured"
	StateConfiguring       State = "Configuring"
	StateConfigured        State = "Configured"
	StateIdle              State = "Idle"
)

const credentialDescription = "Local Kubernetes service account token"

// ErrNotReachable is the result error when the API server did not accept the token
var ErrNotReachable = errors.New("kubernetes api server not reachable")

// PodTemplateLoader returns the YAML of the default agent pod
type PodTemplateLoader func() (string, error)

// Options are the collaborators of the reconciler
type Options struct {
	Discoverer  discovery.Discoverer
	TokenLoader token.Loader
	Verifier    verifier.Verifier
	Registry    cloud.Registry
	Credentials cloud.CredentialsStore

	// Optional, defaults to the bundled agent pod
	PodTemplateLoader PodTemplateLoader
	// Optional, defaults to an empty entry
	ChartRepository cloud.ChartRepositoryConfig
	Namespace       string
	// Optional, defaults to cloud.LocalCloudName
	CloudName string
	// Optional, defaults to a log sink on the global logger
	Sink EventSink
	// Optional, defaults to time.Now
	Now func() time.Time
}

// Result describes one reconciliation
type Result struct {
	// State is the terminal state: Idle, AlreadyConfigured or Configured
	State State
	// Path lists every state entered, in order
	Path   []State
	Events []EventKind
	// Cloud is the registered local cloud, nil when ending in Idle
	Cloud *cloud.CloudConfig
	// Err is the reason for ending in Idle, nil when not running in a cluster
	Err error
}

type Reconciler struct {
	opts Options

	stateMutex sync.RWMutex
	state      State
}

// cloudLocks serializes lookup-then-add per cloud name across reconcilers of the process
var cloudLocks = utils.NewSynchronizedMap[*sync.Mutex]()

func lockFor(name string) *sync.Mutex {
	cloudLocks.SetIfAbsent(name, &sync.Mutex{})
	lock, _ := cloudLocks.Get(name)
	return lock
}

// New returns a reconciler, it returns error if a required collaborator is missing
func New(opts Options) (*Reconciler, error) {
	switch {
	case opts.Discoverer == nil:
		return nil, fmt.Errorf("reconciler requires a discoverer")
	case opts.TokenLoader == nil:
		return nil, fmt.Errorf("reconciler requires a token loader")
	case opts.Verifier == nil:
		return nil, fmt.Errorf("reconciler requires a connection verifier")
	case opts.Registry == nil:
		return nil, fmt.Errorf("reconciler requires a cloud registry")
	case opts.Credentials == nil:
		return nil, fmt.Errorf("reconciler requires a credentials store")
	}

	if opts.PodTemplateLoader == nil {
		opts.PodTemplateLoader = func() (string, error) { return templates.LoadPodTemplate("") }
	}
	if opts.CloudName == "" {
		opts.CloudName = cloud.LocalCloudName
	}
	if opts.Sink == nil {
		opts.Sink = NewLogSink(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Reconciler{opts: opts, state: StateNotChecked}, nil
}

// State returns the state the reconciler is in, the terminal state once a check finished
func (r *Reconciler) State() State {
	r.stateMutex.RLock()
	defer r.stateMutex.RUnlock()
	return r.state
}

// CloudName returns the name the local cloud is registered under
func (r *Reconciler) CloudName() string {
	return r.opts.CloudName
}

// CheckLocalCloud detects the in-cluster API server and registers the local cloud if it is missing.
// Failures are reported through events and the result, never returned to the caller as fatal.
func (r *Reconciler) CheckLocalCloud(ctx context.Context) *Result {
	res := &Result{}
	name := r.opts.CloudName

	r.enter(res, StateDiscovering)
	endpoint, found := r.opts.Discoverer.Discover()
	if !found {
		r.emit(res, Event{Kind: EventNotInCluster})
		return r.finish(res, StateIdle)
	}
	r.emit(res, Event{Kind: EventCloudFound, Endpoint: endpoint.URL()})

	r.enter(res, StateVerifying)
	bearer, err := r.opts.TokenLoader.LoadToken()
	if err != nil {
		res.Err = err
		r.emit(res, Event{Kind: EventTokenLoadFailed, Endpoint: endpoint.URL(), Err: err})
		return r.finish(res, StateIdle)
	}

	reachable, err := r.opts.Verifier.Verify(ctx, endpoint, bearer)
	if err != nil || !reachable {
		if err == nil {
			err = ErrNotReachable
		}
		res.Err = err
		r.emit(res, Event{Kind: EventConnectionFailed, Endpoint: endpoint.URL(), Err: err})
		return r.finish(res, StateIdle)
	}

	lock := lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	if existing, found := r.opts.Registry.FindByName(name); found {
		res.Cloud = existing
		r.emit(res, Event{Kind: EventAlreadyConfigured, CloudName: name, Endpoint: endpoint.URL()})
		return r.finish(res, StateAlreadyConfigured)
	}

	r.emit(res, Event{Kind: EventAddingCloud, CloudName: name, Endpoint: endpoint.URL()})
	r.enter(res, StateConfiguring)

	newCloud, err := r.configure(res, endpoint, bearer)
	if err != nil {
		res.Err = err
		return r.finish(res, StateIdle)
	}

	res.Cloud = newCloud
	r.emit(res, Event{Kind: EventCloudAdded, CloudName: name, Endpoint: endpoint.URL()})
	return r.finish(res, StateConfigured)
}

// configure stores the credential and registers the cloud, removing the credential again
// when the cloud cannot be registered
func (r *Reconciler) configure(res *Result, endpoint *discovery.ClusterEndpoint, bearer string) (*cloud.CloudConfig, error) {
	name := r.opts.CloudName

	podYAML, err := r.opts.PodTemplateLoader()
	if err != nil {
		r.emit(res, Event{Kind: EventTemplateLoadFailed, CloudName: name, Endpoint: endpoint.URL(), Err: err})
		return nil, err
	}

	cred := &cloud.Credential{ID: cloud.NewCredentialID(), Description: credentialDescription, Token: bearer}
	if err := r.opts.Credentials.Add(cred); err != nil {
		err = fmt.Errorf("failed to store credential: %w", err)
		r.emit(res, Event{Kind: EventRegistryFault, CloudName: name, Endpoint: endpoint.URL(), Err: err})
		return nil, err
	}

	newCloud := &cloud.CloudConfig{
		Name:                   name,
		Endpoint:               endpoint.URL(),
		Namespace:              r.opts.Namespace,
		CredentialsID:          cred.ID,
		PodAgentTemplates:      []cloud.PodAgentTemplate{templates.DefaultPodAgentTemplate(podYAML)},
		ChartRepositoryConfigs: []cloud.ChartRepositoryConfig{r.opts.ChartRepository},
	}
	if err := r.opts.Registry.Add(newCloud); err != nil {
		if rmErr := r.opts.Credentials.Remove(cred.ID); rmErr != nil {
			log.Error().Msgf("failed to remove credential %s after registry failure: %v", cred.ID, rmErr)
		}
		err = fmt.Errorf("failed to add cloud %q: %w", name, err)
		r.emit(res, Event{Kind: EventRegistryFault, CloudName: name, Endpoint: endpoint.URL(), Err: err})
		return nil, err
	}

	return newCloud, nil
}

func (r *Reconciler) enter(res *Result, state State) {
	res.Path = append(res.Path, state)
	r.stateMutex.Lock()
	r.state = state
	r.stateMutex.Unlock()
}

func (r *Reconciler) finish(res *Result, state State) *Result {
	r.enter(res, state)
	res.State = state
	return res
}

func (r *Reconciler) emit(res *Result, event Event) {
	res.Events = append(res.Events, event.Kind)
	r.emitEvent(event)
}

func (r *Reconciler) emitEvent(event Event) {
	event.Time = r.opts.Now()
	r.opts.Sink.Emit(event)
}
