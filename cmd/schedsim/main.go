// schedsim runs the scheduler against the in-memory reference world: a few
// domains, a population of agents, the stock providers, and optional decision
// log + stats sinks. Useful for eyeballing assignment behavior and cache
// churn without a real simulation attached.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	"worksched/internal/sched/audit"
	"worksched/internal/sched/engine"
	"worksched/internal/sched/model"
	"worksched/internal/sched/provider"
	"worksched/internal/sched/statsdb"
	"worksched/internal/sched/tuning"
	"worksched/internal/sim/world"
)

func main() {
	var (
		configPath   = flag.String("config", "", "tuning yaml (empty = defaults)")
		ticks        = flag.Uint64("ticks", 10000, "ticks to simulate")
		agents       = flag.Int("agents", 50, "agent count")
		targets      = flag.Int("targets", 400, "targets per domain")
		seed         = flag.Int64("seed", 0, "override tuning seed (0 = keep)")
		decisionsDir = flag.String("decisions", "", "decision log dir (empty = off)")
		statsPath    = flag.String("stats", "", "sqlite stats path (empty = off)")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "schedsim").Logger()

	cfg, err := tuning.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load tuning")
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	w := world.New()
	reg := provider.NewRegistry()
	for _, p := range w.StockProviders() {
		if err := reg.Register(p); err != nil {
			logger.Fatal().Err(err).Msg("register provider")
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	cats := []model.Category{
		world.CategoryFirefight, world.CategoryHeal, world.CategoryHaul, world.CategoryClean,
	}
	domainIDs := []string{"OVERWORLD", "MINE_L1"}
	for _, id := range domainIDs {
		d := w.AddDomain(id)
		for i := 0; i < *targets; i++ {
			pos := model.Vec3i{X: rng.Intn(400) - 200, Z: rng.Intn(400) - 200}
			d.Spawn(fmt.Sprintf("%s_t%d", id, i), pos, cats[rng.Intn(len(cats))])
		}
	}

	pop := make([]*model.Agent, 0, *agents)
	for i := 0; i < *agents; i++ {
		pop = append(pop, &model.Agent{
			ID:       fmt.Sprintf("agent_%d", i),
			DomainID: domainIDs[i%len(domainIDs)],
			Pos:      model.Vec3i{X: rng.Intn(400) - 200, Z: rng.Intn(400) - 200},
		})
	}

	s := engine.New(cfg, w, reg, logger)

	if *decisionsDir != "" {
		aw := audit.NewWriter(*decisionsDir)
		defer aw.Close()
		s.SetDecisionLogger(aw)
	}
	var store *statsdb.Store
	if *statsPath != "" {
		store, err = statsdb.Open(*statsPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("open stats db")
		}
		defer store.Close()
		s.SetStatsRecorder(store)
	}

	assigned := 0
	byProvider := map[string]int{}
	for t := uint64(0); t < *ticks; t++ {
		for _, a := range pop {
			if task := s.OnTick(a); task != nil {
				assigned++
				byProvider[task.ProviderID]++
				// Work completes instantly in the demo: the target is
				// consumed so the pool drains and refreshes matter.
				w.Domain(a.DomainID).Kill(task.TargetID)
			}
		}
		w.Advance()
	}

	logger.Info().Uint64("ticks", *ticks).Int("agents", len(pop)).
		Int("assigned", assigned).Msg("run complete")
	for pid, n := range byProvider {
		fmt.Printf("%-20s %d\n", pid, n)
	}
	for _, id := range domainIDs {
		fmt.Printf("%-20s %d live targets remain\n", id, w.Domain(id).LiveCount())
	}
	if store != nil {
		st := store.Stats()
		fmt.Printf("stats queue %d/%d dropped=%d\n", st.QueueDepth, st.QueueCapacity, st.DropTotal)
	}
}
