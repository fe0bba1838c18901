// Copyright 2025 Blink Labs Software
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

package event

import (
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventQueueSize is the per-subscriber buffer. Events published while a
// subscriber's buffer is full are dropped for that subscriber
const EventQueueSize = 64

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// EventBus fans out committed state changes to in-process subscribers.
// Publish never blocks on a slow subscriber
type EventBus struct {
	mu        sync.RWMutex
	topics    map[EventType]map[EventSubscriberId]chan Event
	lastSubId EventSubscriberId
	metrics   *eventMetrics
	logger    *slog.Logger
}

// NewEventBus creates a new EventBus. A nil registry disables metrics
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		topics: make(map[EventType]map[EventSubscriberId]chan Event),
		logger: logger,
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

// Subscribe returns a channel receiving events of eventType. The channel is
// closed by Unsubscribe or Stop
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	ch := make(chan Event, EventQueueSize)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	if e.topics[eventType] == nil {
		e.topics[eventType] = make(map[EventSubscriberId]chan Event)
	}
	e.topics[eventType][e.lastSubId] = ch
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return e.lastSubId, ch
}

// SubscribeFunc runs handlerFunc on its own goroutine for each event of
// eventType until the subscription ends
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, ch := e.Subscribe(eventType)
	go func() {
		for evt := range ch {
			handlerFunc(evt)
		}
	}()
	return subId
}

func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.topics[eventType][subId]
	if !ok {
		return
	}
	delete(e.topics[eventType], subId)
	if len(e.topics[eventType]) == 0 {
		delete(e.topics, eventType)
	}
	close(ch)
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
	}
}

// Publish offers evt to every subscriber of eventType
func (e *EventBus) Publish(eventType EventType, evt Event) {
	// Holding the read lock keeps channels from being closed mid-send
	e.mu.RLock()
	defer e.mu.RUnlock()
	subIds := slices.Sorted(maps.Keys(e.topics[eventType]))
	for _, subId := range subIds {
		select {
		case e.topics[eventType][subId] <- evt:
		default:
			if e.metrics != nil {
				e.metrics.dropped.WithLabelValues(string(eventType)).Inc()
			}
			e.logger.Warn(
				"dropped event for slow subscriber",
				"component", "event",
				"type", eventType,
				"subscriber", subId,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.published.WithLabelValues(string(eventType)).Inc()
	}
}

// Stop ends every subscription. The EventBus accepts new subscribers
// afterwards
func (e *EventBus) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, subs := range e.topics {
		for _, ch := range subs {
			close(ch)
		}
	}
	clear(e.topics)
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
