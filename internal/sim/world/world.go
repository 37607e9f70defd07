// Package world is an in-memory reference simulation implementing the
// collaborator surface the scheduler consumes: candidate enumeration, grid
// reachability, claims, per-agent work policy and the tick counter. It backs
// the demo driver and the integration tests; real simulations supply their
// own implementation.
package world

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"worksched/internal/sched/model"
)

// World state must be accessed only from the simulation loop; there is no
// internal synchronization, matching the scheduler's execution model.
type World struct {
	tick    uint64
	domains map[string]*Domain

	// Per-agent policy overrides. Categories default to enabled+capable.
	disabled  map[string]map[model.Category]bool
	incapable map[string]map[model.Category]bool
}

type Domain struct {
	ID       string
	Active   bool
	entities map[string]*Entity
	blocked  map[model.Vec3i]bool
}

// Entity is a world-owned thing that can satisfy one work category.
type Entity struct {
	ID        string
	Pos       model.Vec3i
	Category  model.Category
	Alive     bool
	ClaimedBy string
}

func New() *World {
	return &World{
		domains:   map[string]*Domain{},
		disabled:  map[string]map[model.Category]bool{},
		incapable: map[string]map[model.Category]bool{},
	}
}

func (w *World) AddDomain(id string) *Domain {
	d := &Domain{
		ID:       id,
		Active:   true,
		entities: map[string]*Entity{},
		blocked:  map[model.Vec3i]bool{},
	}
	w.domains[id] = d
	return d
}

// RemoveDomain drops the domain; the caller is expected to also call
// Scheduler.InvalidateDomain.
func (w *World) RemoveDomain(id string) { delete(w.domains, id) }

func (w *World) Domain(id string) *Domain { return w.domains[id] }

func (w *World) Advance()            { w.tick++ }
func (w *World) AdvanceTo(t uint64)  { w.tick = t }
func (w *World) CurrentTick() uint64 { return w.tick }

func (w *World) DomainActive(domainID string) bool {
	d := w.domains[domainID]
	return d != nil && d.Active
}

func (w *World) SetDomainActive(domainID string, active bool) {
	if d := w.domains[domainID]; d != nil {
		d.Active = active
	}
}

// EnumerateCandidates lists live entities of one category in stable order.
func (w *World) EnumerateCandidates(domainID string, cat model.Category) ([]model.Target, error) {
	d := w.domains[domainID]
	if d == nil {
		return nil, fmt.Errorf("unknown domain %s", domainID)
	}
	out := make([]model.Target, 0, len(d.entities))
	for _, e := range d.entities {
		if e.Alive && e.Category == cat {
			out = append(out, model.Target{ID: e.ID, Pos: e.Pos})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IsReachable stands in for pathfinding: same domain and an unblocked cell.
func (w *World) IsReachable(a *model.Agent, t model.Target) bool {
	d := w.domains[a.DomainID]
	return d != nil && !d.blocked[t.Pos]
}

// CanClaim reports whether the target is live and unreserved (or already
// reserved by this agent).
func (w *World) CanClaim(a *model.Agent, t model.Target) bool {
	e := w.entity(a.DomainID, t.ID)
	if e == nil || !e.Alive {
		return false
	}
	return e.ClaimedBy == "" || e.ClaimedBy == a.ID
}

// Claim reserves the entity for the agent. Fails if dead or held by someone
// else.
func (w *World) Claim(agentID, domainID, targetID string) bool {
	e := w.entity(domainID, targetID)
	if e == nil || !e.Alive {
		return false
	}
	if e.ClaimedBy != "" && e.ClaimedBy != agentID {
		return false
	}
	e.ClaimedBy = agentID
	return true
}

func (w *World) Release(domainID, targetID string) {
	if e := w.entity(domainID, targetID); e != nil {
		e.ClaimedBy = ""
	}
}

func (w *World) WorkCategoryEnabled(a *model.Agent, cat model.Category) bool {
	return !w.disabled[a.ID][cat]
}

func (w *World) Capability(a *model.Agent, cat model.Category) bool {
	return !w.incapable[a.ID][cat]
}

func (w *World) SetCategoryEnabled(agentID string, cat model.Category, enabled bool) {
	setOverride(w.disabled, agentID, cat, !enabled)
}

func (w *World) SetCapability(agentID string, cat model.Category, capable bool) {
	setOverride(w.incapable, agentID, cat, !capable)
}

func setOverride(m map[string]map[model.Category]bool, agentID string, cat model.Category, v bool) {
	inner := m[agentID]
	if inner == nil {
		inner = map[model.Category]bool{}
		m[agentID] = inner
	}
	if v {
		inner[cat] = true
	} else {
		delete(inner, cat)
	}
}

func (w *World) NewTaskID() string { return "task_" + uuid.NewString() }

func (w *World) entity(domainID, entityID string) *Entity {
	d := w.domains[domainID]
	if d == nil {
		return nil
	}
	return d.entities[entityID]
}

func (d *Domain) Spawn(id string, pos model.Vec3i, cat model.Category) *Entity {
	e := &Entity{ID: id, Pos: pos, Category: cat, Alive: true}
	d.entities[id] = e
	return e
}

func (d *Domain) Kill(entityID string) {
	if e := d.entities[entityID]; e != nil {
		e.Alive = false
	}
}

func (d *Domain) Block(pos model.Vec3i)   { d.blocked[pos] = true }
func (d *Domain) Unblock(pos model.Vec3i) { delete(d.blocked, pos) }

func (d *Domain) Entity(id string) *Entity { return d.entities[id] }

func (d *Domain) LiveCount() int {
	n := 0
	for _, e := range d.entities {
		if e.Alive {
			n++
		}
	}
	return n
}
