package provider

import (
	"worksched/internal/sched/model"
)

// DiscoverEnv is the world surface a discovery callback may query.
type DiscoverEnv interface {
	CurrentTick() uint64
	EnumerateCandidates(domainID string, cat model.Category) ([]model.Target, error)
}

// ValidateEnv is the world surface a validation predicate may query. The
// default validator chain (reachable + claimable) runs against it when a
// provider supplies no predicate of its own.
type ValidateEnv interface {
	CurrentTick() uint64
	IsReachable(a *model.Agent, t model.Target) bool
	CanClaim(a *model.Agent, t model.Target) bool
}

// PolicyEnv answers per-agent work settings, external to scheduling.
type PolicyEnv interface {
	WorkCategoryEnabled(a *model.Agent, cat model.Category) bool
	Capability(a *model.Agent, cat model.Category) bool
}

// Provider describes one kind of assignable work. It is a tagged record:
// behavior is composed from the callbacks below, not inherited. Providers are
// immutable once registered.
type Provider struct {
	ID       string
	Category model.Category
	Priority float64

	// Refresh interval for this provider's target cache, in ticks.
	// 0 inherits the tuning default.
	RefreshTicks uint64

	// Capable is an optional extra gate on top of PolicyEnv.Capability.
	Capable func(a *model.Agent) bool

	// Discover rebuilds the provider's target pool for a domain. Required.
	Discover func(env DiscoverEnv, domainID string) ([]model.Target, error)

	// Validate checks one candidate at selection time. It subsumes
	// reachability, reservation and any task-specific precondition. A nil
	// Validate means IsReachable && CanClaim.
	Validate func(env ValidateEnv, a *model.Agent, t model.Target) bool

	// Build produces the task handle. Returning (nil, nil) means this target
	// cannot yield a task right now. Required.
	Build func(a *model.Agent, t model.Target, nowTick uint64) (*model.Task, error)
}
