package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/events/bus"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/property"
)

// PersisterConfig tunes the capture cadence and the worker backlog.
type PersisterConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
	QueueSize     int           `yaml:"queue_size" env:"QUEUE_SIZE"`
}

func DefaultPersisterConfig() PersisterConfig {
	return PersisterConfig{FlushInterval: 5 * time.Second, QueueSize: 1024}
}

func (c PersisterConfig) Validate() error {
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %s", c.FlushInterval)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	return nil
}

type job struct {
	del bool
	rec Record
}

// Persister moves entity snapshots from the simulation thread to a Store.
//
// Capture and the bus handler run on the simulation thread and only hand
// immutable records to the worker goroutine.
type Persister struct {
	store Store
	cfg   PersisterConfig
	log   log.Log
	jobs  chan job

	last    time.Duration
	started bool
	backlog []job
	bus     bus.EventBus
	sub     bus.Subscription
}

func NewPersister(store Store, cfg PersisterConfig, logger log.Log) *Persister {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Persister{
		store: store,
		cfg:   cfg,
		log:   logger.With(log.String("component", "persister")),
		jobs:  make(chan job, cfg.QueueSize),
	}
}

// Attach queues a delete for every entity removed from the world.
func (p *Persister) Attach(b bus.EventBus) error {
	sub, err := b.Subscribe(bus.EntityDeleted, func(ev bus.Event) error {
		e, ok := ev.Data().(*entity.Entity)
		if !ok {
			return nil
		}
		p.enqueue(job{del: true, rec: Record{ID: e.ID()}})
		return nil
	})
	if err != nil {
		return err
	}
	p.bus, p.sub = b, sub
	return nil
}

// Detach stops listening for deletions.
func (p *Persister) Detach() error {
	if p.bus == nil {
		return nil
	}
	err := p.bus.Unsubscribe(p.sub)
	p.bus, p.sub = nil, nil
	return err
}

// Due reports whether a flush interval has passed since the last capture.
func (p *Persister) Due(now time.Duration) bool {
	return !p.started || now-p.last >= p.cfg.FlushInterval
}

// OnTick captures entities when a flush is due.
func (p *Persister) OnTick(now time.Duration, entities func() []*entity.Entity) {
	if !p.Due(now) {
		return
	}
	p.last, p.started = now, true
	p.Capture(entities())
}

// Capture queues a record for every dirty live entity and marks it clean.
// Entities that do not fit in the queue stay dirty for the next capture.
func (p *Persister) Capture(entities []*entity.Entity) int {
	if !p.drainBacklog() {
		return 0
	}
	queued := 0
	for _, e := range entities {
		if !e.Dirty() || e.Destroyed() {
			continue
		}
		if !p.offer(job{rec: RecordOf(e)}) {
			p.log.Debug("persist queue full, deferring capture", log.Int("queued", queued))
			break
		}
		e.MarkClean()
		queued++
	}
	return queued
}

// RecordOf snapshots the persistent state of e.
func RecordOf(e *entity.Entity) Record {
	rec := Record{
		ID:       e.ID(),
		IntID:    e.IntID(),
		Type:     e.TypeName(),
		Snapshot: e.Snapshot(property.Persistent),
	}
	if parent := e.Parent(); parent != nil {
		rec.Parent = parent.ID()
	}
	return rec
}

func (p *Persister) enqueue(j job) {
	if !p.drainBacklog() || !p.offer(j) {
		p.backlog = append(p.backlog, j)
	}
}

func (p *Persister) drainBacklog() bool {
	for len(p.backlog) > 0 {
		if !p.offer(p.backlog[0]) {
			return false
		}
		p.backlog[0] = job{}
		p.backlog = p.backlog[1:]
	}
	return true
}

func (p *Persister) offer(j job) bool {
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

// Run applies queued jobs until ctx is done, then drains what is left.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case j := <-p.jobs:
			p.apply(ctx, j)
		case <-ctx.Done():
			p.Drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

// Drain applies every job already queued.
func (p *Persister) Drain(ctx context.Context) {
	for {
		select {
		case j := <-p.jobs:
			p.apply(ctx, j)
		default:
			return
		}
	}
}

func (p *Persister) apply(ctx context.Context, j job) {
	var err error
	if j.del {
		err = p.store.Delete(ctx, j.rec.ID)
	} else {
		err = p.store.Save(ctx, j.rec)
	}
	if err != nil {
		p.log.Error("persist failed", log.String("entity", j.rec.ID), log.Bool("delete", j.del), log.Error(err))
	}
}

// Flush captures and applies everything synchronously. It is meant for
// shutdown, after the simulation thread has stopped.
func (p *Persister) Flush(ctx context.Context, entities []*entity.Entity) {
	for {
		p.Capture(entities)
		p.Drain(ctx)
		if len(p.backlog) == 0 && !anyDirty(entities) {
			return
		}
	}
}

func anyDirty(entities []*entity.Entity) bool {
	for _, e := range entities {
		if e.Dirty() && !e.Destroyed() {
			return true
		}
	}
	return false
}
