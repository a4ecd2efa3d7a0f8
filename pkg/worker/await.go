package worker

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoResult is returned by Await when a channel closes without a
// terminal message.
var ErrNoResult = errors.New("worker: stream closed without result")

// Await drains ch until the task's terminal message and returns it. A
// Failure is returned together with its error. If ctx ends first the
// result is abandoned; the worker still finishes the job and its late
// messages are dropped with the channel.
func Await(ctx context.Context, ch <-chan Response) (Response, error) {
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return Response{}, ErrNoResult
			}
			if !res.Terminal() {
				continue
			}
			if res.Type == Failure {
				err := res.Payload.Err
				if err == nil {
					err = errors.New(res.Payload.Error)
				}
				return res, err
			}
			return res, nil
		case <-ctx.Done():
			return Response{}, fmt.Errorf("worker: waiting for result: %w", ctx.Err())
		}
	}
}
