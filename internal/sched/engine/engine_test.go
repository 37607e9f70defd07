package engine

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"worksched/internal/sched/model"
	"worksched/internal/sched/provider"
	"worksched/internal/sched/tuning"
)

type fakeEnv struct {
	tick        uint64
	inactive    map[string]bool
	candidates  map[string][]model.Target // domainID + "/" + category
	unreachable map[string]bool
	claimed     map[string]bool
	disabled    map[model.Category]bool
	enumCalls   int
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		inactive:    map[string]bool{},
		candidates:  map[string][]model.Target{},
		unreachable: map[string]bool{},
		claimed:     map[string]bool{},
		disabled:    map[model.Category]bool{},
	}
}

func (e *fakeEnv) add(domainID string, cat model.Category, targets ...model.Target) {
	key := domainID + "/" + string(cat)
	e.candidates[key] = append(e.candidates[key], targets...)
}

func (e *fakeEnv) CurrentTick() uint64            { return e.tick }
func (e *fakeEnv) DomainActive(id string) bool    { return !e.inactive[id] }

func (e *fakeEnv) EnumerateCandidates(domainID string, cat model.Category) ([]model.Target, error) {
	e.enumCalls++
	return e.candidates[domainID+"/"+string(cat)], nil
}

func (e *fakeEnv) IsReachable(a *model.Agent, t model.Target) bool { return !e.unreachable[t.ID] }
func (e *fakeEnv) CanClaim(a *model.Agent, t model.Target) bool    { return !e.claimed[t.ID] }

func (e *fakeEnv) WorkCategoryEnabled(a *model.Agent, cat model.Category) bool {
	return !e.disabled[cat]
}

func (e *fakeEnv) Capability(a *model.Agent, cat model.Category) bool { return true }

func testProvider(id string, cat model.Category, prio float64) *provider.Provider {
	return &provider.Provider{
		ID: id, Category: cat, Priority: prio, RefreshTicks: 10,
		Discover: func(env provider.DiscoverEnv, domainID string) ([]model.Target, error) {
			return env.EnumerateCandidates(domainID, cat)
		},
		Build: func(a *model.Agent, t model.Target, nowTick uint64) (*model.Task, error) {
			return &model.Task{
				TaskID: "task_" + t.ID, ProviderID: id, Category: cat,
				AgentID: a.ID, TargetID: t.ID, TargetPos: t.Pos, StartedTick: nowTick,
			}, nil
		},
	}
}

func testConfig() tuning.Tuning {
	return tuning.Tuning{
		Seed:                 1,
		BucketThresholdsSq:   []int{25, 2500},
		ReachCacheCapacity:   16,
		ReachMaxAgeTicks:     1000,
		DefaultRefreshTicks:  10,
		SweepEveryTicks:      10000,
		DomainIdleEvictTicks: 100,
		MaxCachedTargets:     64,
		TrackerWindow:        8,
	}
}

func newScheduler(t *testing.T, env Env, providers ...*provider.Provider) *Scheduler {
	t.Helper()
	reg := provider.NewRegistry()
	for _, p := range providers {
		if err := reg.Register(p); err != nil {
			t.Fatalf("register %s: %v", p.ID, err)
		}
	}
	return New(testConfig(), env, reg, zerolog.Nop())
}

func TestOnTick_HigherPriorityProviderWins(t *testing.T) {
	env := newFakeEnv()
	env.tick = 100
	env.add("D1", "fire", model.Target{ID: "F1", Pos: model.Vec3i{X: 2}})
	env.add("D1", "clean", model.Target{ID: "C1", Pos: model.Vec3i{X: 1}})

	s := newScheduler(t, env,
		testProvider("extinguish", "fire", 9),
		testProvider("sweep", "clean", 5),
	)
	a := &model.Agent{ID: "X", DomainID: "D1"}

	task := s.OnTick(a)
	if task == nil {
		t.Fatalf("expected a task")
	}
	if task.ProviderID != "extinguish" || task.TargetID != "F1" {
		t.Fatalf("expected the fire task, got %+v", task)
	}
	if task.StartedTick != 100 {
		t.Fatalf("StartedTick=%d want=100", task.StartedTick)
	}
}

func TestOnTick_NoDomainIsNoTask(t *testing.T) {
	env := newFakeEnv()
	s := newScheduler(t, env, testProvider("sweep", "clean", 5))

	if task := s.OnTick(&model.Agent{ID: "X"}); task != nil {
		t.Fatalf("agent without domain must get no task")
	}
	if task := s.OnTick(nil); task != nil {
		t.Fatalf("nil agent must get no task")
	}
}

func TestOnTick_EmptyDomainSkipsSelection(t *testing.T) {
	env := newFakeEnv()
	validated := 0
	p := testProvider("sweep", "clean", 5)
	p.Validate = func(venv provider.ValidateEnv, a *model.Agent, tgt model.Target) bool {
		validated++
		return true
	}
	s := newScheduler(t, env, p)

	if task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"}); task != nil {
		t.Fatalf("empty domain must yield no task")
	}
	if validated != 0 {
		t.Fatalf("no provider may be attempted when the domain has no targets")
	}
}

func TestOnTick_FallsThroughWhenHigherProviderExhausted(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "fire", model.Target{ID: "F1"})
	env.add("D1", "clean", model.Target{ID: "C1"})
	env.unreachable["F1"] = true

	s := newScheduler(t, env,
		testProvider("extinguish", "fire", 9),
		testProvider("sweep", "clean", 5),
	)
	task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"})
	if task == nil || task.ProviderID != "sweep" {
		t.Fatalf("expected fallthrough to the clean provider, got %+v", task)
	}
}

func TestOnTick_ClaimedTargetRejectedByDefaultValidator(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul", model.Target{ID: "T1"}, model.Target{ID: "T2"})
	env.claimed["T1"] = true

	s := newScheduler(t, env, testProvider("haul", "haul", 5))
	task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"})
	if task == nil || task.TargetID != "T2" {
		t.Fatalf("expected the unclaimed target, got %+v", task)
	}
}

func TestOnTick_ValidatorPanicContained(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "fire", model.Target{ID: "F1"})
	env.add("D1", "clean", model.Target{ID: "C1"})

	p := testProvider("extinguish", "fire", 9)
	p.Validate = func(venv provider.ValidateEnv, a *model.Agent, tgt model.Target) bool {
		panic("validator exploded")
	}
	s := newScheduler(t, env, p, testProvider("sweep", "clean", 5))

	task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"})
	if task == nil || task.ProviderID != "sweep" {
		t.Fatalf("panic must be contained and the next provider attempted, got %+v", task)
	}
}

func TestOnTick_FactoryFailureContained(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "fire", model.Target{ID: "F1"})
	env.add("D1", "clean", model.Target{ID: "C1"})

	boom := testProvider("extinguish", "fire", 9)
	boom.Build = func(a *model.Agent, tgt model.Target, nowTick uint64) (*model.Task, error) {
		return nil, fmt.Errorf("factory failed")
	}
	s := newScheduler(t, env, boom, testProvider("sweep", "clean", 5))

	task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"})
	if task == nil || task.ProviderID != "sweep" {
		t.Fatalf("factory failure must not abort later providers, got %+v", task)
	}
}

func TestOnTick_FactoryDeclineTriesNextCandidate(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul",
		model.Target{ID: "near", Pos: model.Vec3i{X: 1}},
		model.Target{ID: "far", Pos: model.Vec3i{X: 100}},
	)
	p := testProvider("haul", "haul", 5)
	inner := p.Build
	p.Build = func(a *model.Agent, tgt model.Target, nowTick uint64) (*model.Task, error) {
		if tgt.ID == "near" {
			return nil, nil // target lost between validation and build
		}
		return inner(a, tgt, nowTick)
	}
	s := newScheduler(t, env, p)

	task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"})
	if task == nil || task.TargetID != "far" {
		t.Fatalf("expected the remaining candidate, got %+v", task)
	}
}

func TestOnTick_CachedNegativeVerdictSkipsValidator(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul", model.Target{ID: "T1"})

	validated := 0
	p := testProvider("haul", "haul", 5)
	p.Validate = func(venv provider.ValidateEnv, a *model.Agent, tgt model.Target) bool {
		validated++
		return false
	}
	s := newScheduler(t, env, p)
	a := &model.Agent{ID: "X", DomainID: "D1"}

	if task := s.OnTick(a); task != nil {
		t.Fatalf("expected no task")
	}
	if validated != 1 {
		t.Fatalf("validated=%d want=1", validated)
	}
	if task := s.OnTick(a); task != nil {
		t.Fatalf("expected no task")
	}
	if validated != 1 {
		t.Fatalf("validated=%d want=1 (cached negative must short-circuit)", validated)
	}
}

func TestOnTick_AssignmentFeedsTracker(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul", model.Target{ID: "T1"})
	s := newScheduler(t, env, testProvider("haul", "haul", 5))

	if task := s.OnTick(&model.Agent{ID: "X", DomainID: "D1"}); task == nil {
		t.Fatalf("expected a task")
	}
	if r := s.Tracker().Rate("haul"); r != 1.0 {
		t.Fatalf("Rate=%v want=1.0 after success", r)
	}
}

func TestInvalidateDomain_ForcesRediscovery(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul", model.Target{ID: "T1"})
	s := newScheduler(t, env, testProvider("haul", "haul", 5))
	a := &model.Agent{ID: "X", DomainID: "D1"}

	s.OnTick(a)
	calls := env.enumCalls
	s.OnTick(a) // same tick, gated
	if env.enumCalls != calls {
		t.Fatalf("refresh must be gated within the interval")
	}
	s.InvalidateDomain("D1")
	s.OnTick(a)
	if env.enumCalls != calls+1 {
		t.Fatalf("invalidation must force rediscovery, calls=%d want=%d", env.enumCalls, calls+1)
	}
}

func TestResetAll_WipesCachesAndTracker(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul", model.Target{ID: "T1"})
	s := newScheduler(t, env, testProvider("haul", "haul", 5))
	a := &model.Agent{ID: "X", DomainID: "D1"}

	if task := s.OnTick(a); task == nil {
		t.Fatalf("expected a task")
	}
	s.ResetAll()
	if s.targets.HasTargets("D1") {
		t.Fatalf("target cache must be empty after reset")
	}
	if s.reach.Len("D1") != 0 {
		t.Fatalf("reachability cache must be empty after reset")
	}
	if r := s.Tracker().Rate("haul"); r != 0.5 {
		t.Fatalf("tracker must be neutral after reset, got %v", r)
	}
	// Scheduling still works from cold caches.
	if task := s.OnTick(a); task == nil {
		t.Fatalf("expected a task after reset")
	}
}

type recordingSink struct{ decisions []Decision }

func (r *recordingSink) WriteDecision(d Decision) error {
	r.decisions = append(r.decisions, d)
	return nil
}

func TestOnTick_DecisionLogReceivesOutcomes(t *testing.T) {
	env := newFakeEnv()
	env.add("D1", "haul", model.Target{ID: "T1"})
	s := newScheduler(t, env, testProvider("haul", "haul", 5))
	sink := &recordingSink{}
	s.SetDecisionLogger(sink)

	s.OnTick(&model.Agent{ID: "X", DomainID: "D1"})
	s.OnTick(&model.Agent{ID: "Y"})

	if len(sink.decisions) != 2 {
		t.Fatalf("decisions=%d want=2", len(sink.decisions))
	}
	if sink.decisions[0].Outcome != OutcomeAssigned || sink.decisions[0].ProviderID != "haul" {
		t.Fatalf("unexpected first decision: %+v", sink.decisions[0])
	}
	if sink.decisions[1].Outcome != OutcomeNoDomain {
		t.Fatalf("unexpected second decision: %+v", sink.decisions[1])
	}
}
