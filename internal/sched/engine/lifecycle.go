package engine

// Lifecycle management runs on a coarse interval, far longer than any
// provider refresh: idle domains that are no longer active in the simulation
// lose their caches entirely, oversized target pools are trimmed, and aged
// reachability entries are pruned in bulk. This keeps memory bounded when
// transient domains are created and destroyed repeatedly.

func (s *Scheduler) maybeSweep(now uint64) {
	if s.swept && now-s.lastSweep < s.cfg.SweepEveryTicks {
		return
	}
	s.lastSweep = now
	s.swept = true
	s.Sweep(now)
}

// Sweep may also be called directly by the simulation loop out-of-band.
func (s *Scheduler) Sweep(now uint64) {
	for _, d := range s.targets.Domains() {
		last, ok := s.targets.LastUse(d)
		if !ok {
			continue
		}
		idle := now > last && now-last > s.cfg.DomainIdleEvictTicks
		if idle && !s.env.DomainActive(d) {
			s.targets.Invalidate(d)
			s.reach.Clear(d)
			s.log.Debug().Str("domain", d).Uint64("idle_since", last).Msg("evicted idle domain caches")
			continue
		}
		if dropped := s.targets.Trim(d, s.cfg.MaxCachedTargets); dropped > 0 {
			s.log.Debug().Str("domain", d).Int("dropped", dropped).Msg("trimmed oversized target pools")
		}
	}
	s.reach.Sweep(now)
}
