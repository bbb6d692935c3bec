package services

import (
	"fmt"

	"plateau/logging"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// IndexScheduler periodically rebuilds the search index from the working set.
type IndexScheduler struct {
	cron *cron.Cron
	kb   KnowledgeBaseService
	log  zerolog.Logger
}

// NewIndexScheduler registers a full rebuild on schedule, a standard cron
// expression or a descriptor such as "@every 1h".
func NewIndexScheduler(kb KnowledgeBaseService, schedule string) (*IndexScheduler, error) {
	s := &IndexScheduler{cron: cron.New(), kb: kb, log: logging.Component("IndexScheduler")}
	if _, err := s.cron.AddFunc(schedule, s.rebuild); err != nil {
		return nil, fmt.Errorf("invalid rebuild schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *IndexScheduler) rebuild() {
	stats := s.kb.RebuildIndex()
	s.log.Info().
		Int("documents", stats.Documents).
		Int("tokens", stats.Tokens).
		Msg("scheduled index rebuild complete")
}

// Start runs the schedule in the background.
func (s *IndexScheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("index rebuild scheduler started")
}

// Stop halts the schedule and waits for a running rebuild to finish.
func (s *IndexScheduler) Stop() {
	<-s.cron.Stop().Done()
}
