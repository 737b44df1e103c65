package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/joestump/joe-gate/internal/kv"
)

// FaultyKV wraps a kv.Store and fails reads or writes on demand.
type FaultyKV struct {
	kv.Store

	mu       sync.Mutex
	failSets bool
	failGets int
}

// NewFaultyKV wraps an in-memory store.
func NewFaultyKV() *FaultyKV {
	return &FaultyKV{Store: kv.NewMemoryStore()}
}

// ErrInjected is returned by writes while failures are enabled.
var ErrInjected = errors.New("injected write failure")

// ErrInjectedRead is returned by the next n reads after FailGets(n).
var ErrInjectedRead = errors.New("injected read failure")

// FailSets toggles write failures.
func (f *FaultyKV) FailSets(fail bool) {
	f.mu.Lock()
	f.failSets = fail
	f.mu.Unlock()
}

func (f *FaultyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSets
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Store.Set(ctx, key, value)
}

// FailGets makes the next n reads fail.
func (f *FaultyKV) FailGets(n int) {
	f.mu.Lock()
	f.failGets = n
	f.mu.Unlock()
}

func (f *FaultyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return nil, ErrInjectedRead
	}
	return f.Store.Get(ctx, key)
}
