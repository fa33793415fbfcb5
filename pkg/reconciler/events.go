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

package reconciler

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EventKind is the outcome of a reconciliation step
type EventKind string

const (
	EventNotInCluster       EventKind = "NotInCluster"
	EventCloudFound         EventKind = "CloudFound"
	EventTokenLoadFailed    EventKind = "TokenLoadFailed"
	EventConnectionFailed   EventKind = "ConnectionFailed"
	EventAlreadyConfigured  EventKind = "AlreadyConfigured"
	EventAddingCloud        EventKind = "AddingCloud"
	EventTemplateLoadFailed EventKind = "TemplateLoadFailed"
	EventCloudAdded         EventKind = "CloudAdded"
	EventRegistryFault      EventKind = "RegistryFault"
)

// Operator visible messages
const (
	MessageNotInCluster       = "Not running inside a Kubernetes cluster"
	MessageCloudFound         = "Kubernetes Cloud found!"
	MessageTokenLoadFailed    = "Unable to read Kubernetes service account token"
	MessageConnectionFailed   = "Unable to connect to local Kubernetes Cloud"
	MessageAlreadyConfigured  = "Local Kubernetes Cloud already configured"
	MessageAddingCloud        = "Adding local Kubernetes Cloud configuration"
	MessageTemplateLoadFailed = "Unable to load default pod agent template"
	MessageCloudAdded         = "Local Kubernetes Cloud configuration added"
	MessageRegistryFault      = "Failed to register local Kubernetes Cloud configuration"
)

// Event is emitted by the reconciler for every step outcome
type Event struct {
	Kind      EventKind
	Time      time.Time
	CloudName string
	Endpoint  string
	Err       error
}

// Message returns the operator text for the event kind
func (e Event) Message() string {
	switch e.Kind {
	case EventNotInCluster:
		return MessageNotInCluster
	case EventCloudFound:
		return MessageCloudFound
	case EventTokenLoadFailed:
		return MessageTokenLoadFailed
	case EventConnectionFailed:
		return MessageConnectionFailed
	case EventAlreadyConfigured:
		return MessageAlreadyConfigured
	case EventAddingCloud:
		return MessageAddingCloud
	case EventTemplateLoadFailed:
		return MessageTemplateLoadFailed
	case EventCloudAdded:
		return MessageCloudAdded
	case EventRegistryFault:
		return MessageRegistryFault
	}
	return string(e.Kind)
}

// Level returns the log level the event is reported at
func (e Event) Level() zerolog.Level {
	switch e.Kind {
	case EventNotInCluster:
		return zerolog.DebugLevel
	case EventTokenLoadFailed, EventConnectionFailed, EventTemplateLoadFailed:
		return zerolog.WarnLevel
	case EventRegistryFault:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

func (e Event) String() string {
	if e.Err != nil {
		return e.Message() + ": " + e.Err.Error()
	}
	return e.Message()
}

// EventSink receives reconciler events
type EventSink interface {
	Emit(event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(event Event)

func (f EventSinkFunc) Emit(event Event) {
	f(event)
}

type logSink struct {
	logger *zerolog.Logger
}

// NewLogSink writes events to logger, the global logger if nil
func NewLogSink(logger *zerolog.Logger) EventSink {
	return &logSink{logger: logger}
}

func (s *logSink) Emit(event Event) {
	logger := s.logger
	if logger == nil {
		logger = &log.Logger
	}

	entry := logger.WithLevel(event.Level()).Str("event", string(event.Kind))
	if event.CloudName != "" {
		entry = entry.Str("cloud", event.CloudName)
	}
	if event.Endpoint != "" {
		entry = entry.Str("endpoint", event.Endpoint)
	}
	if event.Err != nil {
		entry = entry.Err(event.Err)
	}
	entry.Msg(event.Message())
}

type multiSink []EventSink

// MultiSink fans events out to every sink in order
func MultiSink(sinks ...EventSink) EventSink {
	return multiSink(sinks)
}

func (m multiSink) Emit(event Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(event)
		}
	}
}

// Recorder keeps emitted events in memory
type Recorder struct {
	mutex  sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(event Event) {
	r.mutex.Lock()
	r.events = append(r.events, event)
	r.mutex.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events
}

func (r *Recorder) Kinds() []EventKind {
	events := r.Events()
	kinds := make([]EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

func (r *Recorder) Messages() []string {
	events := r.Events()
	messages := make([]string, 0, len(events))
	for _, event := range events {
		messages = append(messages, event.Message())
	}
	return messages
}

// HasMessage reports whether a recorded event message contains text
func (r *Recorder) HasMessage(text string) bool {
	for _, message := range r.Messages() {
		if strings.Contains(message, text) {
			return true
		}
	}
	return false
}

func (r *Recorder) Reset() {
	r.mutex.Lock()
	r.events = nil
	r.mutex.Unlock()
}
