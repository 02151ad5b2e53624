package transport

import (
	"context"
	"io"
	"sync"
	"time"
)

// cancelBody releases the request context when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// idleTimeoutBody cancels the request when a single Read blocks for longer
// than timeout. Time spent between reads is not counted.
type idleTimeoutBody struct {
	rc     io.ReadCloser
	cancel context.CancelFunc

	mu      sync.Mutex
	timer   *time.Timer
	timeout time.Duration
}

func newIdleTimeoutBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	timer := time.AfterFunc(timeout, cancel)
	timer.Stop()
	return &idleTimeoutBody{rc: rc, cancel: cancel, timer: timer, timeout: timeout}
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	b.timer.Reset(b.timeout)
	b.mu.Unlock()

	n, err := b.rc.Read(p)

	b.mu.Lock()
	b.timer.Stop()
	b.mu.Unlock()
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.mu.Lock()
	b.timer.Stop()
	b.mu.Unlock()
	err := b.rc.Close()
	b.cancel()
	return err
}
