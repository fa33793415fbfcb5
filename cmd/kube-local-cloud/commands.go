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

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mellanox/kube-local-cloud/pkg/reconciler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the startup sequence and keep re-checking the local cloud if configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Msg("Starting Local Cloud Daemon")
		localCloudDaemon, err := newDaemon()
		if err != nil {
			log.Error().Msgf("failed to create daemon: %v", err)
			return err
		}

		log.Info().Msg("Running Local Cloud Daemon")
		localCloudDaemon.Run(ctx)
		log.Info().Msg("Local Cloud Daemon stopped")
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the local cloud once and print the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		localCloudDaemon, err := newDaemon()
		if err != nil {
			log.Error().Msgf("failed to create daemon: %v", err)
			return err
		}

		res := localCloudDaemon.CheckLocalCloud(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "state: %s\n", res.State)
		for _, kind := range res.Events {
			fmt.Fprintf(out, "  %s\n", reconciler.Event{Kind: kind}.Message())
		}
		if res.Err != nil {
			fmt.Fprintf(out, "reason: %v\n", res.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}
