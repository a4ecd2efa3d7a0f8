package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxMessage bounds one request line; meshes travel inline.
const maxMessage = 64 << 20

// Serve reads newline-delimited JSON requests from r and writes every
// response to out as one JSON line, in the order the worker produces them.
// Run must be active for queued jobs to make progress; reading waits for
// room in the queue. A message that cannot be decoded is answered with an
// ERROR carrying its taskId when one was readable. Serve returns once r is
// exhausted and every submitted task has sent its terminal message.
func (w *Worker) Serve(ctx context.Context, r io.Reader, out io.Writer) error {
	var mu sync.Mutex
	write := func(res Response) error {
		data, err := EncodeResponse(res)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		_, err = out.Write(append(data, '\n'))
		return err
	}

	var g errgroup.Group
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxMessage)
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		req, err := DecodeRequest(line)
		if err != nil {
			var de *DecodeError
			taskID := ""
			if errors.As(err, &de) {
				taskID = de.TaskID
			}
			w.log.Warn("rejected request", zap.String("taskId", taskID), zap.Error(err))
			if err := write(Response{Type: Failure, Payload: Payload{TaskID: taskID, Error: err.Error()}}); err != nil {
				return err
			}
			continue
		}
		ch, err := w.SubmitWait(ctx, req)
		if err != nil {
			if err := write(Response{Type: Failure, Payload: Payload{TaskID: req.TaskID(), Error: err.Error()}}); err != nil {
				return err
			}
			continue
		}
		g.Go(func() error {
			for res := range ch {
				if err := write(res); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := sc.Err(); err != nil {
		_ = g.Wait()
		return fmt.Errorf("worker: read requests: %w", err)
	}
	return g.Wait()
}
