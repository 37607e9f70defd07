package engine

import (
	"math/rand"

	"github.com/rs/zerolog"

	"worksched/internal/sched/bucket"
	"worksched/internal/sched/model"
	"worksched/internal/sched/provider"
	"worksched/internal/sched/reachcache"
	"worksched/internal/sched/targetcache"
	"worksched/internal/sched/tracker"
	"worksched/internal/sched/tuning"
)

// Env is the collaborator surface the surrounding simulation implements. It
// satisfies provider.DiscoverEnv, provider.ValidateEnv and provider.PolicyEnv.
type Env interface {
	CurrentTick() uint64
	DomainActive(domainID string) bool
	EnumerateCandidates(domainID string, cat model.Category) ([]model.Target, error)
	IsReachable(a *model.Agent, t model.Target) bool
	CanClaim(a *model.Agent, t model.Target) bool
	WorkCategoryEnabled(a *model.Agent, cat model.Category) bool
	Capability(a *model.Agent, cat model.Category) bool
}

// Scheduler owns every cache explicitly; there is no package-level state, so
// independent instances (tests, sub-simulations) cannot interfere.
//
// Single-threaded, cooperative, tick-driven: OnTick is called once per agent
// per tick from the simulation's own loop and never blocks or suspends.
type Scheduler struct {
	cfg tuning.Tuning
	env Env
	reg *provider.Registry
	log zerolog.Logger

	targets *targetcache.Cache
	reach   *reachcache.Cache
	track   *tracker.Tracker
	rng     *rand.Rand

	// Optional sinks (may be nil).
	decisions DecisionLogger
	stats     StatsRecorder

	lastSweep uint64
	swept     bool
}

// New builds a scheduler around a sealed provider set. The registry is sealed
// here if the caller has not done so already: registration during active
// scheduling is unsupported.
func New(cfg tuning.Tuning, env Env, reg *provider.Registry, log zerolog.Logger) *Scheduler {
	cfg.Normalize()
	reg.Seal()
	return &Scheduler{
		cfg:     cfg,
		env:     env,
		reg:     reg,
		log:     log,
		targets: targetcache.New(reg, cfg.DefaultRefreshTicks, log),
		reach:   reachcache.New(cfg.ReachCacheCapacity, cfg.ReachMaxAgeTicks),
		track:   tracker.New(cfg.TrackerWindow),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (s *Scheduler) SetDecisionLogger(l DecisionLogger) { s.decisions = l }
func (s *Scheduler) SetStatsRecorder(r StatsRecorder)   { s.stats = r }

// Tracker exposes the success tracker (read-mostly; used by callers that
// report provider health).
func (s *Scheduler) Tracker() *tracker.Tracker { return s.track }

// OnTick selects at most one task for the agent. A nil result means "no task
// this tick" and is an ordinary outcome, not an error. No fault raised by a
// provider callback escapes this call.
func (s *Scheduler) OnTick(a *model.Agent) *model.Task {
	now := s.env.CurrentTick()
	s.maybeSweep(now)

	if a == nil || a.DomainID == "" {
		s.record(Decision{Tick: now, Outcome: OutcomeNoDomain, AgentID: agentID(a)})
		return nil
	}

	s.targets.Refresh(s.env, a.DomainID, now)
	if !s.targets.HasTargets(a.DomainID) {
		s.record(Decision{Tick: now, AgentID: a.ID, DomainID: a.DomainID, Outcome: OutcomeNoTargets})
		return nil
	}

	eligible := s.reg.Eligible(s.env, a, func(pid string) bool {
		return len(s.targets.TargetsFor(a.DomainID, pid)) > 0
	}, s.track.Rate)

	attempts := 0
	for _, p := range eligible {
		pool := s.targets.TargetsFor(a.DomainID, p.ID)
		if len(pool) == 0 {
			continue
		}
		b := bucket.Partition(a.Pos, pool, targetPos, s.cfg.BucketThresholdsSq, s.rng)
		task := s.tryProvider(a, p, b, now, &attempts)
		if task != nil {
			s.track.Record(p.ID, true)
			s.record(Decision{
				Tick: now, AgentID: a.ID, DomainID: a.DomainID,
				Outcome: OutcomeAssigned, ProviderID: p.ID, TargetID: task.TargetID,
				Attempts: attempts,
			})
			return task
		}
		s.track.Record(p.ID, false)
	}

	s.record(Decision{Tick: now, AgentID: a.ID, DomainID: a.DomainID, Outcome: OutcomeNoTask, Attempts: attempts})
	return nil
}

func targetPos(t model.Target) model.Vec3i { return t.Pos }

// tryProvider scans buckets nearest-first until the provider yields a task or
// runs out of candidates. A cached negative reachability verdict skips the
// candidate outright; everything else runs the full validator and feeds its
// outcome back into the cache.
func (s *Scheduler) tryProvider(a *model.Agent, p *provider.Provider, b *bucket.Buckets, now uint64, attempts *int) *model.Task {
	for {
		t, ok := b.Next()
		if !ok {
			return nil
		}
		*attempts++

		if verdict, hit := s.reach.Get(a.DomainID, t.ID, now); hit && !verdict {
			continue
		}
		valid := s.validate(p, a, t)
		s.reach.Put(a.DomainID, t.ID, valid, now)
		if !valid {
			continue
		}

		task := s.build(p, a, t, now)
		if task != nil {
			return task
		}
	}
}

func (s *Scheduler) validate(p *provider.Provider, a *model.Agent, t model.Target) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			s.log.Warn().Str("provider", p.ID).Str("target", t.ID).
				Interface("panic", r).Msg("validator panicked; candidate rejected")
		}
	}()
	if p.Validate != nil {
		return p.Validate(s.env, a, t)
	}
	return s.env.IsReachable(a, t) && s.env.CanClaim(a, t)
}

func (s *Scheduler) build(p *provider.Provider, a *model.Agent, t model.Target, now uint64) (task *model.Task) {
	defer func() {
		if r := recover(); r != nil {
			task = nil
			s.log.Warn().Str("provider", p.ID).Str("target", t.ID).
				Interface("panic", r).Msg("task factory panicked; candidate rejected")
		}
	}()
	task, err := p.Build(a, t, now)
	if err != nil {
		s.log.Warn().Str("provider", p.ID).Str("target", t.ID).Err(err).
			Msg("task factory failed; candidate rejected")
		return nil
	}
	return task
}

// InvalidateDomain evicts a removed or regenerated domain's caches at once.
func (s *Scheduler) InvalidateDomain(domainID string) {
	s.targets.Invalidate(domainID)
	s.reach.Clear(domainID)
}

// ResetAll wipes every cache (world load/reload).
func (s *Scheduler) ResetAll() {
	s.targets.Reset()
	s.reach.Reset()
	s.track.Reset()
}

func (s *Scheduler) record(d Decision) {
	if s.decisions != nil {
		if err := s.decisions.WriteDecision(d); err != nil {
			s.log.Warn().Err(err).Msg("decision log write failed")
		}
	}
	if s.stats != nil {
		_ = s.stats.RecordDecision(d)
	}
}

func agentID(a *model.Agent) string {
	if a == nil {
		return ""
	}
	return a.ID
}
