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
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mellanox/kube-local-cloud/pkg/config"
	"github.com/Mellanox/kube-local-cloud/pkg/daemon"
)

const (
	exitError = 1
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "kube-local-cloud",
	Short: "Register the local Kubernetes cluster as a cloud",
	Long: `kube-local-cloud detects the Kubernetes API server it runs next to and registers it,
once, as the "Local Kubernetes Cloud" with a default agent pod template and chart repository.

Configuration is read from LOCAL_CLOUD_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
	},
}

func setupLogging(debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: zerolog.TimeFieldFormat,
		NoColor:    true})
}

// newDaemon reads and validates the configuration and builds the daemon
func newDaemon() (daemon.Daemon, error) {
	daemonConfig := config.DaemonConfig{}
	if err := daemonConfig.ReadConfig(); err != nil {
		return nil, err
	}
	if err := daemonConfig.ValidateConfig(); err != nil {
		return nil, err
	}
	return daemon.NewDaemon(daemonConfig)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug level logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitError)
	}
}
