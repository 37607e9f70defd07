package world

import (
	"worksched/internal/sched/model"
	"worksched/internal/sched/provider"
)

// CategoryProvider builds a provider that discovers live entities of one
// category and reserves the chosen target when the task is built. Validation
// is left nil, so the engine's default reachable+claimable chain applies.
func (w *World) CategoryProvider(id string, cat model.Category, priority float64, refreshTicks uint64) *provider.Provider {
	return &provider.Provider{
		ID:           id,
		Category:     cat,
		Priority:     priority,
		RefreshTicks: refreshTicks,
		Discover: func(env provider.DiscoverEnv, domainID string) ([]model.Target, error) {
			return env.EnumerateCandidates(domainID, cat)
		},
		Build: func(a *model.Agent, t model.Target, nowTick uint64) (*model.Task, error) {
			// The target may have died or been claimed since validation ran;
			// Claim re-checks both.
			if !w.Claim(a.ID, a.DomainID, t.ID) {
				return nil, nil
			}
			return &model.Task{
				TaskID:      w.NewTaskID(),
				ProviderID:  id,
				Category:    cat,
				AgentID:     a.ID,
				TargetID:    t.ID,
				TargetPos:   t.Pos,
				StartedTick: nowTick,
			}, nil
		},
	}
}

// Stock work categories used by the demo driver and the integration tests.
const (
	CategoryFirefight model.Category = "firefight"
	CategoryHeal      model.Category = "heal"
	CategoryHaul      model.Category = "haul"
	CategoryClean     model.Category = "clean"
)

// StockProviders returns the demo provider set in no particular order; the
// registry sorts on registration.
func (w *World) StockProviders() []*provider.Provider {
	return []*provider.Provider{
		w.CategoryProvider("extinguish_fires", CategoryFirefight, 9, 50),
		w.CategoryProvider("tend_wounded", CategoryHeal, 7, 100),
		w.CategoryProvider("haul_loose_items", CategoryHaul, 5, 250),
		w.CategoryProvider("sweep_floors", CategoryClean, 3, 500),
	}
}
