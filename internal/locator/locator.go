// Package locator hands out plots for new islands.
//
// A request is served, in order, from the actor's own plot, the plot in front
// of the actor, the orphan pool, and finally the spiral walk from the last
// frontier cell. Every result is reserved before it is returned so concurrent
// requests never receive the same plot.
package locator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/islands/internal/grid"
	"github.com/l1jgo/islands/internal/reservation"
	"github.com/l1jgo/islands/internal/sched"
	"github.com/l1jgo/islands/internal/world"
)

// ErrSearchExhausted is returned when the spiral walk hits its step bound.
var ErrSearchExhausted = errors.New("no free island location within search bound")

// Notifications sent to the requesting actor.
const (
	MsgAtLocation = "Creating an island at your location"
	MsgFacing     = "Creating an island %s of you"
	MsgNoLocation = "Unable to find a free island location"
)

type Occupancy interface {
	IsOccupied(cell grid.Cell) bool
}

type SpawnRegion interface {
	InSpawn(cell grid.Cell) bool
}

type WorldPolicy interface {
	IsSkyWorld(name string) bool
}

// OrphanSource yields abandoned plots. It may drop entries it inspects.
type OrphanSource interface {
	NextOrphan(avail world.Availability) (grid.Cell, bool)
}

type FrontierStore interface {
	Load(ctx context.Context) (grid.Cell, bool, error)
	Save(ctx context.Context, c grid.Cell) error
}

type Notifier interface {
	Notify(msg string)
}

// Request describes the actor asking for an island.
type Request struct {
	Actor    string
	World    string
	Position grid.Position
	Yaw      float64
	Notifier Notifier // optional
}

func (r Request) notify(msg string) {
	if r.Notifier != nil {
		r.Notifier.Notify(msg)
	}
}

// Reason records which rule produced an allocation.
type Reason int

const (
	ReasonPosition Reason = iota + 1
	ReasonFacing
	ReasonOrphan
	ReasonSpiral
)

func (r Reason) String() string {
	switch r {
	case ReasonPosition:
		return "position"
	case ReasonFacing:
		return "facing"
	case ReasonOrphan:
		return "orphan"
	case ReasonSpiral:
		return "spiral"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

type Result struct {
	Cell   grid.Cell
	Reason Reason
	Steps  int // spiral steps taken, 0 for other reasons
}

// Defaults applied by New to zero or negative Options.
const (
	DefaultDistance       = 110
	DefaultMaxSpiralSteps = 1_000_000
	DefaultSaveTimeout    = 5 * time.Second
)

type Options struct {
	Distance       int
	MaxSpiralSteps int
	SaveTimeout    time.Duration
}

type Deps struct {
	Islands      Occupancy
	Spawn        SpawnRegion
	Worlds       WorldPolicy
	Orphans      OrphanSource // nil disables reuse
	Store        FrontierStore
	Reservations *reservation.Table
	Scheduler    sched.Scheduler
	Log          *zap.Logger
}

// Locator serializes allocation decisions and owns the frontier.
type Locator struct {
	mu       sync.Mutex // one decision at a time; guards frontier
	frontier grid.Cell

	distance    int
	maxSteps    int
	saveTimeout time.Duration

	islands      Occupancy
	spawn        SpawnRegion
	worlds       WorldPolicy
	orphans      OrphanSource
	store        FrontierStore
	reservations *reservation.Table
	sched        sched.Scheduler
	log          *zap.Logger
}

// New builds a Locator and loads the frontier once from the store.
// A failed load is logged and the walk starts from the origin.
func New(ctx context.Context, opts Options, deps Deps) *Locator {
	if opts.Distance <= 0 {
		opts.Distance = DefaultDistance
	}
	if opts.MaxSpiralSteps <= 0 {
		opts.MaxSpiralSteps = DefaultMaxSpiralSteps
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	l := &Locator{
		distance:     opts.Distance,
		maxSteps:     opts.MaxSpiralSteps,
		saveTimeout:  opts.SaveTimeout,
		islands:      deps.Islands,
		spawn:        deps.Spawn,
		worlds:       deps.Worlds,
		orphans:      deps.Orphans,
		store:        deps.Store,
		reservations: deps.Reservations,
		sched:        deps.Scheduler,
		log:          deps.Log,
	}

	c, ok, err := l.store.Load(ctx)
	switch {
	case err != nil:
		l.log.Error("unable to load island frontier, starting at origin", zap.Error(err))
	case ok:
		l.frontier = c
	}
	l.log.Info("island frontier loaded", zap.Stringer("frontier", l.frontier), zap.Bool("stored", ok))
	return l
}

// NextIslandLocation returns a reserved, free plot for the request.
func (l *Locator) NextIslandLocation(req Request) (grid.Cell, error) {
	res, err := l.Allocate(req)
	return res.Cell, err
}

// Allocate is NextIslandLocation with the rule that produced the plot.
func (l *Locator) Allocate(req Request) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.decide(req)
	if err != nil {
		l.log.Error("island allocation failed",
			zap.String("actor", req.Actor), zap.Int("max_steps", l.maxSteps), zap.Error(err))
		req.notify(MsgNoLocation)
		return Result{}, err
	}
	l.reservations.Reserve(res.Cell)
	l.log.Info("island location allocated",
		zap.String("actor", req.Actor),
		zap.Stringer("cell", res.Cell),
		zap.Stringer("reason", res.Reason),
		zap.Int("steps", res.Steps))
	return res, nil
}

func (l *Locator) decide(req Request) (Result, error) {
	d := l.distance
	last := grid.AlignCell(l.frontier, d)

	if l.worlds.IsSkyWorld(req.World) && !l.spawn.InSpawn(req.Position.Block()) {
		here := grid.Align(req.Position, d)
		if l.IsAvailable(here) {
			req.notify(MsgAtLocation)
			return Result{Cell: here, Reason: ReasonPosition}, nil
		}
		ahead := grid.FacingStep(here, req.Yaw, d)
		if l.IsAvailable(ahead) {
			req.notify(fmt.Sprintf(MsgFacing, grid.CardinalDirection(req.Yaw)))
			return Result{Cell: ahead, Reason: ReasonFacing}, nil
		}
	}

	if l.orphans != nil {
		if c, ok := l.orphans.NextOrphan(alignedAvailability{l}); ok {
			return Result{Cell: grid.AlignCell(c, d), Reason: ReasonOrphan}, nil
		}
	}

	next, steps, err := l.walk(last)
	if err != nil {
		return Result{}, err
	}
	l.frontier = next
	l.save(next)
	return Result{Cell: next, Reason: ReasonSpiral, Steps: steps}, nil
}

// walk follows the spiral from start to the first available cell.
func (l *Locator) walk(start grid.Cell) (grid.Cell, int, error) {
	next := start
	for steps := 0; ; steps++ {
		if l.IsAvailable(next) {
			return next, steps, nil
		}
		if steps >= l.maxSteps {
			return grid.Cell{}, steps, fmt.Errorf("%w: %d steps from %s", ErrSearchExhausted, steps, start)
		}
		next = grid.SpiralNext(next, l.distance)
	}
}

// save persists the frontier off the request path. Failures are logged only;
// the in-memory frontier stays authoritative.
func (l *Locator) save(c grid.Cell) {
	l.sched.RunAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.saveTimeout)
		defer cancel()
		if err := l.store.Save(ctx, c); err != nil {
			l.log.Warn("unable to save island frontier", zap.Stringer("frontier", c), zap.Error(err))
		}
	})
}

// IsAvailable reports whether the cell is outside spawn, has no island and
// is not reserved. Safe to call from an OrphanSource during a decision.
func (l *Locator) IsAvailable(c grid.Cell) bool {
	return !(l.spawn.InSpawn(c) || l.islands.IsOccupied(c) || l.reservations.IsReserved(c))
}

// alignedAvailability judges pool entries by the plot they snap to, so an
// unaligned orphan is handed out as its aligned cell or not at all.
type alignedAvailability struct {
	l *Locator
}

func (a alignedAvailability) IsAvailable(c grid.Cell) bool {
	return a.l.IsAvailable(grid.AlignCell(c, a.l.distance))
}

// Frontier returns the last cell reached by the spiral walk.
func (l *Locator) Frontier() grid.Cell {
	l.mu.Lock()
	defer l.mu.Unlock()
	return grid.AlignCell(l.frontier, l.distance)
}

// Preview lists the next n available spiral cells without reserving them
// or moving the frontier.
func (l *Locator) Preview(n int) ([]grid.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return []grid.Cell{}, nil
	}
	out := make([]grid.Cell, 0, n)
	c := grid.AlignCell(l.frontier, l.distance)
	for steps := 0; len(out) < n; steps++ {
		if steps > l.maxSteps {
			return out, fmt.Errorf("%w: preview stopped after %d steps", ErrSearchExhausted, steps)
		}
		if l.IsAvailable(c) {
			out = append(out, c)
		}
		c = grid.SpiralNext(c, l.distance)
	}
	return out, nil
}
