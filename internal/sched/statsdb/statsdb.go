// Package statsdb records assignment decisions in sqlite for offline
// analysis. Writes go through a bounded channel drained by a single writer
// goroutine; when the queue is full the record is dropped and counted, so the
// scheduling thread never blocks on disk.
package statsdb

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"worksched/internal/sched/engine"
)

const queueCapacity = 1024

type Store struct {
	db *sql.DB

	ch   chan engine.Decision
	wg   sync.WaitGroup
	once sync.Once

	closed    atomic.Bool
	dropTotal atomic.Uint64
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s := &Store{db: db, ch: make(chan engine.Decision, queueCapacity)}
	s.wg.Add(1)
	go s.writerLoop()
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  tick        INTEGER NOT NULL,
  agent_id    TEXT NOT NULL DEFAULT '',
  domain_id   TEXT NOT NULL DEFAULT '',
  provider_id TEXT NOT NULL DEFAULT '',
  target_id   TEXT NOT NULL DEFAULT '',
  outcome     TEXT NOT NULL,
  attempts    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_decisions_tick ON decisions(tick);
CREATE INDEX IF NOT EXISTS idx_decisions_provider ON decisions(provider_id);
`

// RecordDecision enqueues a row without blocking. Dropped records only bump a
// counter; losing stats must never stall the tick loop.
func (s *Store) RecordDecision(d engine.Decision) error {
	if s.closed.Load() {
		return fmt.Errorf("statsdb closed")
	}
	select {
	case s.ch <- d:
		return nil
	default:
		s.dropTotal.Add(1)
		return nil
	}
}

func (s *Store) writerLoop() {
	defer s.wg.Done()
	for d := range s.ch {
		_, err := s.db.Exec(
			`INSERT INTO decisions (tick, agent_id, domain_id, provider_id, target_id, outcome, attempts)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.Tick, d.AgentID, d.DomainID, d.ProviderID, d.TargetID, string(d.Outcome), d.Attempts,
		)
		if err != nil {
			s.dropTotal.Add(1)
		}
	}
}

func (s *Store) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropTotal.Load(),
	}
}

// OutcomeCounts aggregates rows per outcome. Intended for tooling and tests;
// it reads through the same handle the writer uses, so call it after the
// queue has drained.
func (s *Store) OutcomeCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT outcome, COUNT(*) FROM decisions GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[outcome] = n
	}
	return out, rows.Err()
}

// ProviderAssignments counts ASSIGNED rows per provider.
func (s *Store) ProviderAssignments() (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT provider_id, COUNT(*) FROM decisions WHERE outcome = ? GROUP BY provider_id`,
		string(engine.OutcomeAssigned),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var pid string
		var n int
		if err := rows.Scan(&pid, &n); err != nil {
			return nil, err
		}
		out[pid] = n
	}
	return out, rows.Err()
}

// Close drains the queue, stops the writer and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
