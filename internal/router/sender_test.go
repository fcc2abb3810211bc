package router_test

import (
	"errors"
	"sync"
)

var errDeadConn = errors.New("connection closed")

// recorder is a Sender that keeps every message it accepts.
type recorder struct {
	mu   sync.Mutex
	msgs []string
	dead bool
}

func (r *recorder) Send(msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		return errDeadConn
	}
	r.msgs = append(r.msgs, string(msg))
	return nil
}

func (r *recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}
