// Package runtime handles realtime delivery: room membership, event publication and the
// supervised workers behind them. It contains no business rules.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"social-chat/contract"
	"social-chat/domain/event"
	"social-chat/moderation"
	"social-chat/runtime/workers"
)

type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    *Registry
	events      chan event.DomainEvent
	publisher   *ChannelPublisher
	sinkTimeout time.Duration
	workers     []contract.Worker
	started     bool
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, bufferSize int, sinkTimeout time.Duration) *Orchestrator {
	events := make(chan event.DomainEvent, bufferSize)
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		events:      events,
		publisher:   NewChannelPublisher(events),
		sinkTimeout: sinkTimeout,
	}
}

func (o *Orchestrator) Publisher() contract.Publisher {
	return o.publisher
}

func (o *Orchestrator) Registry() contract.IRegistry {
	return o.registry
}

// EventsGauge samples the buffer between publishers and the fanout.
func (o *Orchestrator) EventsGauge() workers.Gauge {
	return workers.ChannelGauge("events", o.events)
}

// Add registers extra workers supervised alongside the fanout, before Start.
func (o *Orchestrator) Add(extra ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, extra...)
}

// PrepareModeration loads censored words and builds the Aho-Corasick automaton.
func (o *Orchestrator) PrepareModeration(censored fs.FS, dir string, charReplacement rune) (*moderation.ContentFilter, error) {
	data, err := moderation.NewCensoredLoader(censored).LoadAll(dir)
	if err != nil {
		return nil, err
	}

	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement, o.log)
	if err != nil {
		return nil, err
	}
	return moderation.NewContentFilter(moderator, o.log), nil
}

// Start registers the fanout and every added worker, then blocks while the supervisor runs.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanoutWorker := workers.NewEventFanout(o.log, o.events, o.registry, o.sinkTimeout)

	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true
	o.supervisor.Add(fanoutWorker)
	o.supervisor.Add(o.workers...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop signals every supervised worker to stop. Start returns once they are done.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
