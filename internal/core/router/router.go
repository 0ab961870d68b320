// Package router owns the entity table of one world and routes operations
// between entities on a single logical thread.
//
// Immediate outputs of a delivery are processed in FIFO order until the chain
// is quiescent or MaxImmediateIterations is exceeded. Outputs carrying a
// dispatch time wait in a deferred queue ordered by time and then submission
// order, and are delivered by Tick.
package router

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zeusync/simkernel/internal/core/dispatch"
	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/events/bus"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/property"
	"github.com/zeusync/simkernel/internal/core/types"
	"github.com/zeusync/simkernel/pkg/sequence"
)

const tracerName = "github.com/zeusync/simkernel/internal/core/router"

// ErrorOp is the operation type used to report handler failures.
const ErrorOp = "error"

// ScriptBinder supplies the script hook of an entity, or nil for none.
type ScriptBinder interface {
	HookFor(e *entity.Entity) entity.Script
}

// Stats are cumulative router counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Errors    uint64
	Faults    uint64
	Deferred  int
	Entities  int
	Events    bus.Metrics
}

var (
	_ dispatch.World    = (*Router)(nil)
	_ property.Resolver = (*Router)(nil)
)

type Router struct {
	cfg        Config
	reg        *types.Registry
	props      *property.Manager
	disp       *dispatch.Dispatcher
	bus        bus.EventBus
	log        log.Log
	tracer     trace.Tracer
	perception Perception
	scripts    ScriptBinder
	rng        *rand.Rand
	ctx        context.Context

	entities map[string]*entity.Entity
	byInt    map[int64]*entity.Entity
	nextInt  int64
	serial   int64
	now      time.Duration
	deferred *sequence.TimedQueue[*operation.Operation]
	stats    Stats

	intakeMu sync.Mutex
	intake   []*operation.Operation

	tickHooks []TickHook
}

// TickHook runs on the simulation thread after every Tick.
type TickHook func(now time.Duration)

// Option customises a Router.
type Option func(*Router)

func WithBus(b bus.EventBus) Option                { return func(r *Router) { r.bus = b } }
func WithLogger(l log.Log) Option                  { return func(r *Router) { r.log = l } }
func WithTracer(t trace.Tracer) Option             { return func(r *Router) { r.tracer = t } }
func WithPerception(p Perception) Option           { return func(r *Router) { r.perception = p } }
func WithScriptBinder(s ScriptBinder) Option       { return func(r *Router) { r.scripts = s } }
func WithStartTime(now time.Duration) Option       { return func(r *Router) { r.now = now } }
func WithContext(ctx context.Context) Option       { return func(r *Router) { r.ctx = ctx } }
func WithDispatcher(d *dispatch.Dispatcher) Option { return func(r *Router) { r.disp = d } }
func WithTickHook(h TickHook) Option {
	return func(r *Router) { r.tickHooks = append(r.tickHooks, h) }
}

// New builds a router over props, whose registry defines the world's types.
// The property manager's references are bound to the new entity table.
func New(cfg Config, props *property.Manager, opts ...Option) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Router{
		cfg:        cfg,
		reg:        props.Registry(),
		props:      props,
		bus:        bus.New(),
		log:        log.NewNop(),
		tracer:     otel.Tracer(tracerName),
		perception: ContainerPerception,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		ctx:        context.Background(),
		entities:   make(map[string]*entity.Entity),
		byInt:      make(map[int64]*entity.Entity),
		deferred:   sequence.NewTimedQueue[*operation.Operation](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.disp == nil {
		r.disp = dispatch.New(r.reg, r.log)
	}
	r.log = r.log.With(log.String("component", "router"))
	props.Bind(r)
	return r, nil
}

func (r *Router) Config() Config                   { return r.cfg }
func (r *Router) Dispatcher() *dispatch.Dispatcher { return r.disp }
func (r *Router) Bus() bus.EventBus                { return r.bus }
func (r *Router) Properties() *property.Manager    { return r.props }
func (r *Router) Types() *types.Registry           { return r.reg }
func (r *Router) Now() time.Duration               { return r.now }
func (r *Router) BasicTick() time.Duration         { return r.cfg.BasicTick }
func (r *Router) Rand() *rand.Rand                 { return r.rng }

// Stats returns the current counters.
func (r *Router) Stats() Stats {
	s := r.stats
	s.Deferred = r.deferred.Len()
	s.Entities = len(r.entities)
	s.Events = r.bus.Metrics()
	return s
}

// Entity looks an entity up by id.
func (r *Router) Entity(id string) (*entity.Entity, bool) {
	e, ok := r.entities[id]
	return e, ok
}

// EntityByInt looks an entity up by its integer alias.
func (r *Router) EntityByInt(id int64) (*entity.Entity, bool) {
	e, ok := r.byInt[id]
	return e, ok
}

// Lookup resolves entity references.
func (r *Router) Lookup(id string) (property.Identified, bool) {
	e, ok := r.entities[id]
	if !ok {
		return nil, false
	}
	return e, true
}

// Entities returns every entity ordered by integer alias.
func (r *Router) Entities() []*entity.Entity {
	out := make([]*entity.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IntID() < out[j].IntID() })
	return out
}

// AddEntity inserts e into the table and announces it.
func (r *Router) AddEntity(e *entity.Entity) error {
	if _, exists := r.entities[e.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID())
	}
	if _, exists := r.byInt[e.IntID()]; exists {
		return fmt.Errorf("%w: integer alias %d", ErrDuplicateID, e.IntID())
	}
	r.entities[e.ID()] = e
	r.byInt[e.IntID()] = e
	if e.IntID() >= r.nextInt {
		r.nextInt = e.IntID() + 1
	}
	if r.scripts != nil && e.Script() == nil {
		if hook := r.scripts.HookFor(e); hook != nil {
			e.SetScript(hook)
		}
	}
	r.publish(bus.EntityCreated, e)
	return nil
}

// CreateEntity instantiates a new entity of typ inside container. Attributes
// are applied before the entity is announced.
func (r *Router) CreateEntity(typ string, attrs element.Map, container *entity.Entity) (*entity.Entity, error) {
	node := r.reg.Get(typ)
	if node == nil || !node.IsA(types.EntityRootName) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	e := entity.New(uuid.NewString(), r.nextInt, r.props)
	if err := e.SetType(typ); err != nil {
		return nil, err
	}
	if container == nil {
		if loc, ok := attrs["loc"].(string); ok {
			container = r.entities[loc]
		}
	}
	for _, k := range element.Keys(attrs) {
		switch k {
		case "id", "parents", "loc", "objtype":
			continue
		}
		if err := e.Set(k, attrs[k]); err != nil {
			return nil, fmt.Errorf("create %s: %w", typ, err)
		}
	}
	if container != nil {
		if err := e.Reparent(container, e.Location().Pos); err != nil {
			return nil, err
		}
	}
	if err := r.AddEntity(e); err != nil {
		e.Destroy()
		return nil, err
	}
	r.log.Debug("entity created", log.String("entity", e.Describe()))
	return e, nil
}

// RestoreEntity rebuilds an entity from a persisted snapshot. Its container,
// when named, must already be in the table.
func (r *Router) RestoreEntity(snap element.Map, intID int64) (*entity.Entity, error) {
	id, _ := snap["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("restore: snapshot without id")
	}
	if _, exists := r.entities[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	e := entity.New(id, intID, r.props)
	if typ := entity.SnapshotType(snap); typ != "" {
		if err := e.SetType(typ); err != nil {
			return nil, fmt.Errorf("restore %s: %w", id, err)
		}
	}
	if err := e.ApplySnapshot(snap); err != nil {
		return nil, err
	}
	if loc, _ := snap["loc"].(string); loc != "" {
		parent, ok := r.entities[loc]
		if !ok {
			return nil, fmt.Errorf("restore %s: container %s not loaded", id, loc)
		}
		if err := e.Reparent(parent, e.Location().Pos); err != nil {
			return nil, err
		}
	}
	if err := r.AddEntity(e); err != nil {
		e.Destroy()
		return nil, err
	}
	e.MarkClean()
	return e, nil
}

// DelEntity removes e from the world, applying the orphan policy to its
// children. Entities not in the table are ignored. One entity.deleted event
// per removed entity is published once the removal is done.
func (r *Router) DelEntity(e *entity.Entity) error {
	var events []bus.Event
	err := r.remove(e, &events)
	if len(events) > 0 {
		if perr := r.bus.PublishBatch(events...); perr != nil {
			r.log.Warn("lifecycle subscriber failed", log.String("topic", bus.EntityDeleted), log.Error(perr))
		}
	}
	return err
}

func (r *Router) remove(e *entity.Entity, events *[]bus.Event) error {
	if cur, ok := r.entities[e.ID()]; !ok || cur != e {
		return nil
	}
	parent := e.Parent()
	for _, child := range e.Children() {
		switch r.cfg.OrphanPolicy {
		case OrphanReparent:
			loc := e.Location()
			pos := loc.Orientation.Rotate(child.Location().Pos).Add(loc.Pos)
			if err := child.Reparent(parent, pos); err != nil {
				return err
			}
			child.SetOrientation(loc.Orientation.Mul(child.Location().Orientation))
		default:
			if err := r.remove(child, events); err != nil {
				return err
			}
		}
	}
	e.Destroy()
	delete(r.entities, e.ID())
	delete(r.byInt, e.IntID())
	*events = append(*events, bus.NewEvent(bus.EntityDeleted, "router", e))
	r.log.Debug("entity deleted", log.String("entity", e.Describe()))
	return nil
}

func (r *Router) publish(topic string, data any) {
	if err := r.bus.Publish(bus.NewEvent(topic, "router", data)); err != nil {
		r.log.Warn("lifecycle subscriber failed", log.String("topic", topic), log.Error(err))
	}
}

func (r *Router) nextSerial() int64 {
	r.serial++
	return r.serial
}

// Operation delivers op to its destinations once and returns what the
// handlers produced. Missing destinations are dropped silently. An operation
// without destinations is broadcast from its sender.
func (r *Router) Operation(op *operation.Operation) operation.Vector {
	if op.Serial() == 0 {
		op = op.WithSerial(r.nextSerial())
	}
	if !op.HasDestination() {
		from, ok := r.entities[op.From()]
		if !ok {
			r.drop(op, op.From())
			return nil
		}
		return r.Broadcast(op, from)
	}

	var out operation.Vector
	for _, id := range op.To() {
		e, ok := r.entities[id]
		if !ok {
			r.drop(op, id)
			continue
		}
		out = append(out, r.deliver(e, op)...)
	}
	return out
}

func (r *Router) drop(op *operation.Operation, id string) {
	r.stats.Dropped++
	r.log.Debug("destination missing", log.String("op", op.Type()), log.String("id", id))
}

func (r *Router) deliver(e *entity.Entity, op *operation.Operation) operation.Vector {
	r.stats.Delivered++
	r.publish(bus.OperationEmitted, op)

	res, err := r.disp.Dispatch(r, e, op)
	if err != nil {
		r.stats.Errors++
		r.log.Warn("operation failed",
			log.String("op", op.Type()),
			log.String("entity", e.Describe()),
			log.Error(err),
		)
		if eop := r.errorFor(e, op, err); eop != nil {
			return operation.Vector{eop}
		}
		return nil
	}
	for i, out := range res {
		var opts []operation.Option
		if out.From() == "" {
			opts = append(opts, operation.From(e.ID()))
		}
		if out.RefNo() == 0 {
			opts = append(opts, operation.RefNo(op.Serial()))
		}
		if len(opts) > 0 {
			res[i] = out.With(opts...)
		}
	}
	return res
}

// errorFor builds the error operation sent back to the sender of op. Error
// operations never produce further error operations.
func (r *Router) errorFor(e *entity.Entity, op *operation.Operation, err error) *operation.Operation {
	if r.reg.IsA(op.Type(), ErrorOp) || op.From() == "" {
		return nil
	}
	return operation.New(ErrorOp,
		operation.From(e.ID()),
		operation.To(op.From()),
		operation.Arg("message", err.Error(), "op", op.Type()),
		operation.RefNo(op.Serial()),
	)
}

// Broadcast delivers a copy of op to every observer of from.
func (r *Router) Broadcast(op *operation.Operation, from *entity.Entity) operation.Vector {
	if op.Serial() == 0 {
		op = op.WithSerial(r.nextSerial())
	}
	var out operation.Vector
	for _, obs := range r.perception.Observers(from) {
		if obs.Destroyed() {
			continue
		}
		out = append(out, r.deliver(obs, op.WithTo(obs.ID()))...)
	}
	return out
}

// Submit queues op for the next Pump. It is safe for concurrent use.
func (r *Router) Submit(op *operation.Operation) {
	r.intakeMu.Lock()
	r.intake = append(r.intake, op)
	r.intakeMu.Unlock()
}

// Process runs op and everything it causes until the chain is quiescent.
func (r *Router) Process(op *operation.Operation) {
	r.process(r.ctx, op)
}

func (r *Router) process(ctx context.Context, root *operation.Operation) {
	_, span := r.tracer.Start(ctx, "router.chain",
		trace.WithAttributes(attribute.String("op.type", root.Type())))
	defer span.End()

	queue := []*operation.Operation{root}
	iterations := 0
	for len(queue) > 0 {
		op := queue[0]
		queue[0] = nil
		queue = queue[1:]

		if op.IsDeferred() {
			r.schedule(op)
			continue
		}
		iterations++
		if iterations > r.cfg.MaxImmediateIterations {
			r.fault(span, root, len(queue)+1)
			return
		}
		queue = append(queue, r.Operation(op)...)
	}
	span.SetAttributes(attribute.Int("chain.length", iterations))
}

func (r *Router) schedule(op *operation.Operation) {
	due := op.DueAt(r.now)
	r.deferred.Push(op.ScheduledAt(due), due)
}

func (r *Router) fault(span trace.Span, root *operation.Operation, dropped int) {
	r.stats.Faults++
	r.log.Error("immediate loop limit exceeded, dropping chain",
		log.String("root", root.String()),
		log.Int("limit", r.cfg.MaxImmediateIterations),
		log.Int("dropped", dropped),
	)
	span.SetStatus(codes.Error, "immediate loop limit exceeded")
	r.publish(bus.RouterFault, root)
}

// Tick advances world time to now and delivers every deferred operation due
// by then. Operations scheduled while ticking wait for the next Tick. World
// time never moves backwards, but an earlier now only delivers what was due
// by that time.
func (r *Router) Tick(now time.Duration) {
	r.advance(now)
	limit := r.deferred.NextSeq()
	for {
		item, ok := r.deferred.PopDue(now, limit)
		if !ok {
			break
		}
		r.process(r.ctx, item.Value.Immediate())
	}
	for _, h := range r.tickHooks {
		h(r.now)
	}
}

func (r *Router) advance(now time.Duration) {
	if now > r.now {
		r.now = now
	}
}

// AddTickHook registers h to run after every Tick.
func (r *Router) AddTickHook(h TickHook) {
	r.tickHooks = append(r.tickHooks, h)
}

// Pump processes every submitted operation, then ticks to now.
func (r *Router) Pump(now time.Duration) {
	r.advance(now)
	r.intakeMu.Lock()
	batch := r.intake
	r.intake = nil
	r.intakeMu.Unlock()

	for _, op := range batch {
		r.process(r.ctx, op)
	}
	r.Tick(now)
}
