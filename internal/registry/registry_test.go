package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"sotto/internal/registry"
)

// fakeConn records frames and can simulate a closed transport.
type fakeConn struct {
	mu     sync.Mutex
	frames []any
	closed bool
}

func (c *fakeConn) Send(frame any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func newRegistry() *registry.Registry { return registry.New(zerolog.Nop()) }

func TestRegister_Idempotent(t *testing.T) {
	r := newRegistry()
	conn := &fakeConn{}

	r.Register("alice", conn)
	r.Register("alice", conn)

	r.Fanout("alice", "hello")
	if got := conn.count(); got != 1 {
		t.Fatalf("got %d deliveries, want exactly 1", got)
	}
}

func TestUnregister_RemovesAndDropsEmptySet(t *testing.T) {
	r := newRegistry()
	a1, a2 := &fakeConn{}, &fakeConn{}

	r.Register("alice", a1)
	r.Register("alice", a2)
	r.Unregister(a1)

	r.Fanout("alice", "x")
	if a1.count() != 0 {
		t.Fatal("unregistered connection still reached")
	}
	if a2.count() != 1 {
		t.Fatal("remaining connection missed the fanout")
	}

	r.Unregister(a2)
	if r.Resolvable("alice") {
		t.Fatal("principal still resolvable after last unregister")
	}
}

func TestFanout_SkipsClosedConnections(t *testing.T) {
	r := newRegistry()
	open, closed := &fakeConn{}, &fakeConn{}
	_ = closed.Close()

	r.Register("alice", open)
	r.Register("alice", closed)

	r.Fanout("alice", "x") // must not error or panic
	if open.count() != 1 {
		t.Fatal("open connection missed the fanout")
	}
}

func TestConcurrent_RegisterUnregisterFanout(t *testing.T) {
	r := newRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			for j := 0; j < 100; j++ {
				r.Register("alice", conn)
				r.Fanout("alice", j)
				r.Unregister(conn)
			}
		}()
	}
	wg.Wait()

	if r.Resolvable("alice") {
		t.Fatal("connections leaked after churn")
	}
}
