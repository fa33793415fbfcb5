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

package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Mellanox/kube-local-cloud/pkg/discovery"
	k8sClient "github.com/Mellanox/kube-local-cloud/pkg/k8s-client"
)

type Verifier interface {
	// Verify returns true if the endpoint accepts the token. Unreachable endpoints and
	// timeouts return false, error is returned only on collaborator faults.
	Verify(ctx context.Context, endpoint *discovery.ClusterEndpoint, token string) (bool, error)
}

type verifier struct {
	repo    k8sClient.Client
	timeout time.Duration
}

// NewVerifier returns a verifier bounding every check by timeout, 0 means no bound
func NewVerifier(repo k8sClient.Client, timeout time.Duration) Verifier {
	return &verifier{repo: repo, timeout: timeout}
}

func (v *verifier) Verify(ctx context.Context, endpoint *discovery.ClusterEndpoint, token string) (bool, error) {
	if endpoint == nil || token == "" {
		return false, nil
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	ok, err := v.repo.TestConnection(ctx, endpoint.URL(), token)
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && !ok && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		log.Warn().Msgf("connection check to %s timed out after %v", endpoint, v.timeout)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return ok, nil
}
