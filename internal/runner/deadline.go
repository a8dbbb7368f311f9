package runner

import (
	"context"
	"time"
)

// softDeadlineCtx reports expiry through Err without closing Done, so loops
// that poll between batches stop scheduling new work while in-flight network
// calls run to completion.
type softDeadlineCtx struct {
	context.Context
	deadline time.Time
}

func softDeadline(parent context.Context, deadline time.Time) context.Context {
	return &softDeadlineCtx{Context: parent, deadline: deadline}
}

func (c *softDeadlineCtx) Err() error {
	if err := c.Context.Err(); err != nil {
		return err
	}
	if time.Now().After(c.deadline) {
		return context.DeadlineExceeded
	}
	return nil
}
