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
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	kapi "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/kubernetes"

	"github.com/Mellanox/kube-local-cloud/pkg/errcode"
	"github.com/Mellanox/kube-local-cloud/pkg/utils"
)

// CredentialsStore is the host's store of credentials referenced by clouds
type CredentialsStore interface {
	// Add stores cred, it returns error if the id is taken.
	Add(cred *Credential) error
	// Get returns the credential stored under id.
	Get(id string) (*Credential, bool)
	// Remove deletes the credential stored under id.
	Remove(id string) error
	// Len returns the number of stored credentials.
	Len() int
}

func validateCredential(cred *Credential) error {
	if cred == nil {
		return errcode.NewErr(errcode.ErrInvalidCredential, "credential is nil")
	}
	if cred.ID == "" {
		return errcode.NewErr(errcode.ErrInvalidCredential, "credential id is empty")
	}
	if cred.Token == "" {
		return errcode.Errorf(errcode.ErrInvalidCredential, "credential %s has empty token", cred.ID)
	}
	return nil
}

type memoryCredentialsStore struct {
	credentials *utils.SynchronizedMap[Credential]
}

// NewMemoryCredentialsStore returns a credentials store kept in memory only
func NewMemoryCredentialsStore() CredentialsStore {
	return &memoryCredentialsStore{credentials: utils.NewSynchronizedMap[Credential]()}
}

func (s *memoryCredentialsStore) Add(cred *Credential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	if !s.credentials.SetIfAbsent(cred.ID, *cred) {
		return errcode.Errorf(errcode.ErrCredentialAlreadyExists, "credential %s already exists", cred.ID)
	}
	return nil
}

func (s *memoryCredentialsStore) Get(id string) (*Credential, bool) {
	cred, ok := s.credentials.Get(id)
	if !ok {
		return nil, false
	}
	return &cred, true
}

func (s *memoryCredentialsStore) Remove(id string) error {
	if _, ok := s.credentials.Get(id); !ok {
		return errcode.Errorf(errcode.ErrCredentialNotFound, "credential %s not found", id)
	}
	s.credentials.Remove(id)
	return nil
}

func (s *memoryCredentialsStore) Len() int {
	return s.credentials.Len()
}

type credentialsFile struct {
	Credentials []Credential `yaml:"credentials"`
}

type fileCredentialsStore struct {
	path  string
	mutex sync.Mutex
	mem   *memoryCredentialsStore
}

// NewFileCredentialsStore returns a credentials store persisted as YAML at path, readable by owner only
func NewFileCredentialsStore(path string) (CredentialsStore, error) {
	s := &fileCredentialsStore{
		path: path,
		mem:  &memoryCredentialsStore{credentials: utils.NewSynchronizedMap[Credential]()},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errcode.Wrapf(errcode.ErrPersistence, err, "failed to read credentials %s", path)
	}

	content := credentialsFile{}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, errcode.Wrapf(errcode.ErrPersistence, err, "failed to parse credentials %s", path)
	}
	for idx := range content.Credentials {
		if err := s.mem.Add(&content.Credentials[idx]); err != nil {
			log.Warn().Msgf("skipping credential from %s: %v", path, err)
		}
	}
	return s, nil
}

func (s *fileCredentialsStore) Add(cred *Credential) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.mem.Add(cred); err != nil {
		return err
	}
	if err := s.persist(); err != nil {
		s.mem.credentials.Remove(cred.ID)
		return err
	}
	return nil
}

func (s *fileCredentialsStore) Get(id string) (*Credential, bool) {
	return s.mem.Get(id)
}

func (s *fileCredentialsStore) Remove(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cred, ok := s.mem.Get(id)
	if !ok {
		return errcode.Errorf(errcode.ErrCredentialNotFound, "credential %s not found", id)
	}
	s.mem.credentials.Remove(id)
	if err := s.persist(); err != nil {
		s.mem.credentials.Set(id, *cred)
		return err
	}
	return nil
}

func (s *fileCredentialsStore) Len() int {
	return s.mem.Len()
}

func (s *fileCredentialsStore) persist() error {
	return writeYAMLFile(s.path, credentialsFile{Credentials: s.mem.credentials.Values()}, 0o600)
}

const (
	CredentialSecretPrefix = "local-cloud-credential-"
	ManagedByLabel         = "app.kubernetes.io/managed-by"
	ManagedByValue         = "kube-local-cloud"
	CredentialIDAnnotation = "kube-local-cloud/credential-id"
	DescriptionAnnotation  = "kube-local-cloud/description"
	TokenKey               = "token"
)

type secretCredentialsStore struct {
	client    kubernetes.Interface
	namespace string
}

// NewSecretCredentialsStore returns a credentials store keeping each credential in an Opaque secret
func NewSecretCredentialsStore(client kubernetes.Interface, namespace string) CredentialsStore {
	return &secretCredentialsStore{client: client, namespace: namespace}
}

func secretName(id string) (string, error) {
	name := CredentialSecretPrefix + strings.ToLower(id)
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return "", errcode.Errorf(errcode.ErrInvalidCredential, "credential id %q is not usable as secret name: %s",
			id, strings.Join(errs, ", "))
	}
	return name, nil
}

func (s *secretCredentialsStore) Add(cred *Credential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	name, err := secretName(cred.ID)
	if err != nil {
		return err
	}

	secret := &kapi.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   s.namespace,
			Labels:      map[string]string{ManagedByLabel: ManagedByValue},
			Annotations: map[string]string{CredentialIDAnnotation: cred.ID, DescriptionAnnotation: cred.Description},
		},
		Type: kapi.SecretTypeOpaque,
		Data: map[string][]byte{TokenKey: []byte(cred.Token)},
	}
	log.Debug().Msgf("creating credential secret %s/%s", s.namespace, name)
	_, err = s.client.CoreV1().Secrets(s.namespace).Create(context.TODO(), secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return errcode.Errorf(errcode.ErrCredentialAlreadyExists, "credential %s already exists", cred.ID)
	}
	if err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to create secret %s/%s", s.namespace, name)
	}
	return nil
}

func (s *secretCredentialsStore) Get(id string) (*Credential, bool) {
	name, err := secretName(id)
	if err != nil {
		return nil, false
	}
	secret, err := s.client.CoreV1().Secrets(s.namespace).Get(context.TODO(), name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			log.Error().Msgf("failed to get secret %s/%s: %v", s.namespace, name, err)
		}
		return nil, false
	}
	return &Credential{
		ID:          id,
		Description: secret.Annotations[DescriptionAnnotation],
		Token:       string(secret.Data[TokenKey]),
	}, true
}

func (s *secretCredentialsStore) Remove(id string) error {
	name, err := secretName(id)
	if err != nil {
		return err
	}
	err = s.client.CoreV1().Secrets(s.namespace).Delete(context.TODO(), name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return errcode.Errorf(errcode.ErrCredentialNotFound, "credential %s not found", id)
	}
	if err != nil {
		return errcode.Wrapf(errcode.ErrPersistence, err, "failed to delete secret %s/%s", s.namespace, name)
	}
	return nil
}

func (s *secretCredentialsStore) Len() int {
	selector := labels.SelectorFromSet(labels.Set{ManagedByLabel: ManagedByValue}).String()
	secrets, err := s.client.CoreV1().Secrets(s.namespace).List(context.TODO(), metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		log.Error().Msgf("failed to list credential secrets in %s: %v", s.namespace, err)
		return 0
	}
	return len(secrets.Items)
}
