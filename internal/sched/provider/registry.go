package provider

import (
	"fmt"
	"sort"

	"worksched/internal/sched/model"
)

// Registry holds all providers, sorted by descending priority. Registration
// happens once at startup; Seal marks the end of the mutation window and any
// later Register is rejected.
type Registry struct {
	providers []*Provider
	byID      map[string]*Provider
	sealed    bool
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Provider{}}
}

func (r *Registry) Register(p *Provider) error {
	if r.sealed {
		return fmt.Errorf("registry is sealed")
	}
	if p == nil || p.ID == "" {
		return fmt.Errorf("provider needs an ID")
	}
	if p.Category == "" {
		return fmt.Errorf("provider %s: empty work category", p.ID)
	}
	if p.Discover == nil {
		return fmt.Errorf("provider %s: nil Discover", p.ID)
	}
	if p.Build == nil {
		return fmt.Errorf("provider %s: nil Build", p.ID)
	}
	if _, dup := r.byID[p.ID]; dup {
		return fmt.Errorf("provider %s: already registered", p.ID)
	}
	r.byID[p.ID] = p
	r.providers = append(r.providers, p)
	sort.SliceStable(r.providers, func(i, j int) bool {
		if r.providers[i].Priority != r.providers[j].Priority {
			return r.providers[i].Priority > r.providers[j].Priority
		}
		return r.providers[i].ID < r.providers[j].ID
	})
	return nil
}

func (r *Registry) Seal()        { r.sealed = true }
func (r *Registry) Sealed() bool { return r.sealed }

func (r *Registry) Get(id string) *Provider { return r.byID[id] }

// Providers returns the full set in descending priority order. Callers must
// not mutate the returned slice.
func (r *Registry) Providers() []*Provider { return r.providers }

// Eligible returns the providers an agent may attempt this tick: work
// category enabled, capability gates passed, and a non-empty cached target
// pool. Order is descending priority; equal priorities are broken by rolling
// success rate (when a rate func is supplied), then by ascending provider ID,
// so the tie-break is explicit rather than an accident of registration order.
func (r *Registry) Eligible(env PolicyEnv, a *model.Agent, hasTargets func(providerID string) bool, rate func(providerID string) float64) []*Provider {
	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if !env.WorkCategoryEnabled(a, p.Category) {
			continue
		}
		if !env.Capability(a, p.Category) {
			continue
		}
		if p.Capable != nil && !p.Capable(a) {
			continue
		}
		if hasTargets != nil && !hasTargets(p.ID) {
			continue
		}
		out = append(out, p)
	}
	if rate != nil {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Priority != out[j].Priority {
				return out[i].Priority > out[j].Priority
			}
			ri, rj := rate(out[i].ID), rate(out[j].ID)
			if ri != rj {
				return ri > rj
			}
			return out[i].ID < out[j].ID
		})
	}
	return out
}
