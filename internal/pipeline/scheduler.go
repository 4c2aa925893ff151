package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Scheduler runs frames on a backend, one stage after another.
type Scheduler struct {
	backend Backend
	stages  []Stage
	log     func() *slog.Logger
}

// NewScheduler returns a scheduler driving b. logger is consulted on every
// frame so a logger installed later takes effect.
func NewScheduler(b Backend, logger func() *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default
	}
	return &Scheduler{backend: b, stages: Stages(), log: logger}
}

// Backend returns the driven backend.
func (s *Scheduler) Backend() Backend { return s.backend }

// RunFrame executes every stage of one frame. On error the frame is
// abandoned; already finished stages are not rolled back.
func (s *Scheduler) RunFrame(ctx context.Context, in *FrameInput) error {
	start := time.Now()

	if err := s.backend.BeginFrame(ctx, in); err != nil {
		return fmt.Errorf("pipeline: frame %d: begin: %w", in.Index, err)
	}
	for _, st := range s.stages {
		if err := s.backend.Run(ctx, st); err != nil {
			return fmt.Errorf("pipeline: frame %d: %s: %w", in.Index, st, err)
		}
	}
	if err := s.backend.EndFrame(ctx); err != nil {
		return fmt.Errorf("pipeline: frame %d: end: %w", in.Index, err)
	}

	s.log().Debug("pipeline: frame done",
		"frame", in.Index,
		"state", in.State,
		"backend", s.backend.Name(),
		"elapsed", time.Since(start))
	return nil
}
