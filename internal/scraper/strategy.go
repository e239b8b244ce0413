package scraper

import (
	"context"

	"github.com/matheuskafuri/phnews/internal/logger"
)

// strategy is one way of producing results. A strategy that returns an
// error or nothing passes control to the next one.
type strategy[T any] struct {
	name string
	run  func(ctx context.Context) ([]T, error)
}

// outcome records how a strategy list was resolved.
type outcome[T any] struct {
	items  []T
	winner string
	counts map[string]int
	errs   map[string]error
}

// firstSuccess runs strategies in order and keeps the first non-empty
// result. Later strategies are not run.
func firstSuccess[T any](ctx context.Context, log logger.Logger, op string, strategies []strategy[T]) outcome[T] {
	out := outcome[T]{counts: make(map[string]int), errs: make(map[string]error)}
	for _, st := range strategies {
		if ctx.Err() != nil {
			out.errs[st.name] = ctx.Err()
			return out
		}
		items, err := st.run(ctx)
		out.counts[st.name] = len(items)
		if err != nil {
			out.errs[st.name] = err
			log.Debug("strategy failed",
				logger.String("op", op),
				logger.String("strategy", st.name),
				logger.Err(err),
			)
			continue
		}
		if len(items) == 0 {
			log.Debug("strategy found nothing",
				logger.String("op", op),
				logger.String("strategy", st.name),
			)
			continue
		}
		out.items = items
		out.winner = st.name
		return out
	}
	return out
}

// firstErr returns the error of the first strategy, in list order, that
// failed.
func (o outcome[T]) firstErr(strategies []strategy[T]) error {
	for _, st := range strategies {
		if err, ok := o.errs[st.name]; ok {
			return err
		}
	}
	return nil
}
