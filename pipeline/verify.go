package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// VerifyAll validates every stage's structural invariants, one goroutine per
// stage. Stages own their storage exclusively and the checks only read, so
// the fan-out is safe. The first failing stage's error is returned; once one
// stage fails, stages whose check has not started yet are skipped.
func (p *Pipeline) VerifyAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, st := range p.stages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := st.Validate(); err != nil {
				return fmt.Errorf("stage %q: %w", st.DisplayName(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
