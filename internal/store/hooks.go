package store

import (
	"context"
	"time"

	"github.com/myiotd/myiot-core/pkg/log"
)

type beginKey struct{}

// queryLogHooks satisfies sqlhooks.Hooks, logging query text, args, and
// elapsed time, adapted from the teacher's internal/repository.Hooks.
type queryLogHooks struct{}

func (h *queryLogHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("store: query %s %q", query, args)
	return context.WithValue(ctx, beginKey{}, time.Now()), nil
}

func (h *queryLogHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(beginKey{}).(time.Time); ok {
		log.Debugf("store: took %s", time.Since(begin))
	}
	return ctx, nil
}
