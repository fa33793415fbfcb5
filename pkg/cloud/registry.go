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

package cloud

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Mellanox/kube-local-cloud/pkg/errcode"
	"github.com/Mellanox/kube-local-cloud/pkg/utils"
)

// Registry is the host's list of configured clouds
type Registry interface {
	// FindByName returns a copy of the cloud registered under name.
	FindByName(name string) (*CloudConfig, bool)
	// Add registers cloud, it returns error if the name is taken or the cloud is invalid.
	Add(cloud *CloudConfig) error
	// List returns copies of all clouds in insertion order.
	List() []CloudConfig
}

type memoryRegistry struct {
	clouds *utils.SynchronizedMap[*CloudConfig]
}

// NewMemoryRegistry returns a registry kept in memory only
func NewMemoryRegistry() Registry {
	return &memoryRegistry{clouds: utils.NewSynchronizedMap[*CloudConfig]()}
}

func (r *memoryRegistry) FindByName(name string) (*CloudConfig, bool) {
	cloud, ok := r.clouds.Get(name)
	if !ok {
		return nil, false
	}
	return cloud.DeepCopy(), true
}

func (r *memoryRegistry) Add(cloud *CloudConfig) error {
	if err := cloud.Validate(); err != nil {
		return err
	}
	if !r.clouds.SetIfAbsent(cloud.Name, cloud.DeepCopy()) {
		return errcode.Errorf(errcode.ErrCloudAlreadyExists, "cloud %q already exists", cloud.Name)
	}
	return nil
}

func (r *memoryRegistry) List() []CloudConfig {
	clouds := r.clouds.Values()
	out := make([]CloudConfig, 0, len(clouds))
	for _, cloud := range clouds {
		out = append(out, *cloud.DeepCopy())
	}
	return out
}

type registryFile struct {
	Clouds []CloudConfig `yaml:"clouds"`
}

type fileRegistry struct {
	path  string
	mutex sync.Mutex
	mem   *memoryRegistry
}

// NewFileRegistry returns a registry persisted as YAML at path, existing clouds are loaded
func NewFileRegistry(path string) (Registry, error) {
	r := &fileRegistry{path: path, mem: &memoryRegistry{clouds: utils.NewSynchronizedMap[*CloudConfig]()}}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *fileRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		log.Debug().Msgf("cloud registry file %s does not exist yet", r.path)
		return nil
	}
	if err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to read cloud registry %s", r.path)
	}

	content := registryFile{}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to parse cloud registry %s", r.path)
	}
	for idx := range content.Clouds {
		cloud := content.Clouds[idx]
		if !r.mem.clouds.SetIfAbsent(cloud.Name, &cloud) {
			log.Warn().Msgf("duplicate cloud %q in %s ignored", cloud.Name, r.path)
		}
	}
	log.Debug().Msgf("loaded %d clouds from %s", r.mem.clouds.Len(), r.path)
	return nil
}

func (r *fileRegistry) FindByName(name string) (*CloudConfig, bool) {
	return r.mem.FindByName(name)
}

func (r *fileRegistry) List() []CloudConfig {
	return r.mem.List()
}

func (r *fileRegistry) Add(cloud *CloudConfig) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.mem.Add(cloud); err != nil {
		return err
	}

	if err := writeYAMLFile(r.path, registryFile{Clouds: r.mem.List()}, 0o644); err != nil {
		r.mem.clouds.Remove(cloud.Name)
		return err
	}
	return nil
}

// writeYAMLFile writes data to a temporary file and renames it over path
func writeYAMLFile(path string, content interface{}, perm os.FileMode) error {
	data, err := yaml.Marshal(content)
	if err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to marshal %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to create temporary file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to write %s", tmpName)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to chmod %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to close %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to replace %s", path)
	}

	return nil
}
