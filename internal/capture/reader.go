package capture

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// RetryInterval is the pause between failed reads.
const RetryInterval = 20 * time.Millisecond

type readResult struct {
	frame *gocv.Mat
	err   error
}

// NextFrame reads from cam, retrying transient failures until timeout has
// passed without a good frame. It then gives up with ErrEndOfStream, so a
// camera that is unplugged mid-stream ends the stream like a finished file.
// Any other error is returned unchanged.
//
// A read that blocks inside the backend is bounded by the same timeout and
// by ctx. The abandoned read keeps running; a frame it returns later is
// closed.
func NextFrame(ctx context.Context, cam Camera, timeout time.Duration) (*gocv.Mat, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		results := make(chan readResult, 1)
		go func() {
			frame, err := cam.ReadFrame()
			results <- readResult{frame: frame, err: err}
		}()

		var res readResult
		select {
		case res = <-results:
		case <-ctx.Done():
			go discard(results)
			return nil, ctx.Err()
		case <-deadline.C:
			go discard(results)
			return nil, ErrEndOfStream
		}

		if res.err == nil {
			return res.frame, nil
		}
		if !errors.Is(res.err, ErrReadFailed) {
			return nil, res.err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrEndOfStream
		case <-time.After(RetryInterval):
		}
	}
}

func discard(results <-chan readResult) {
	if res := <-results; res.frame != nil {
		res.frame.Close()
	}
}
