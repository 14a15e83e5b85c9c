// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"context"
	"slices"
	"sync"
)

// LockKey names something an operation needs exclusive access to
type LockKey string

// RecordLock is the lock key for the record at addr
func RecordLock(addr Address) LockKey {
	return LockKey("r:" + string(addr[:]))
}

// BalanceLock is the lock key for the deposit balance of owner
func BalanceLock(owner Address) LockKey {
	return LockKey("b:" + string(owner[:]))
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// lockTable hands out per-key exclusive locks. Keys are always acquired in
// sorted order, so two operations with overlapping key sets cannot deadlock.
type lockTable struct {
	locks map[LockKey]*keyLock
	mu    sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{
		locks: make(map[LockKey]*keyLock),
	}
}

func (l *lockTable) ref(key LockKey) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *lockTable) unref(key LockKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// acquire locks every key and returns a function releasing them. It gives up
// and releases what it holds when ctx is done.
func (l *lockTable) acquire(ctx context.Context, keys []LockKey) (func(), error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	type heldLock struct {
		key LockKey
		kl  *keyLock
	}
	held := make([]heldLock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].kl.ch
			l.unref(held[i].key)
		}
	}
	for _, key := range sorted {
		kl := l.ref(key)
		select {
		case kl.ch <- struct{}{}:
			held = append(held, heldLock{key: key, kl: kl})
		case <-ctx.Done():
			l.unref(key)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
