// Copyright 2025 The Tracehound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPacerEnforcesInterval(t *testing.T) {
	t.Parallel()

	const interval = 50 * time.Millisecond
	p := NewHostPacer(interval, nil)
	ctx := context.Background()

	type window struct{ start, end time.Time }
	var (
		mtx     sync.Mutex
		windows []window
		wg      sync.WaitGroup
	)
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, p.Acquire(ctx, "a.example"))
			start := time.Now()
			time.Sleep(5 * time.Millisecond)
			end := time.Now()
			p.Release("a.example")

			mtx.Lock()
			windows = append(windows, window{start: start, end: end})
			mtx.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, windows, 3)
	// Windows never overlap and each start is at least one interval
	// after the previous completion.
	for i := range windows {
		for j := range windows {
			if i == j {
				continue
			}
			a, b := windows[i], windows[j]
			if a.start.Before(b.start) {
				require.True(t, !b.start.Before(a.end.Add(interval)),
					"request %d started %v after completion of %d, want >= %v",
					j, b.start.Sub(a.end), i, interval)
			}
		}
	}
}

func TestPacerHostsAreIndependent(t *testing.T) {
	t.Parallel()

	p := NewHostPacer(time.Second, nil)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Acquire(ctx, "a.example"))
	require.NoError(t, p.Acquire(ctx, "b.example"))
	require.Less(t, time.Since(start), 500*time.Millisecond)
	p.Release("a.example")
	p.Release("b.example")
}

func TestPacerOverride(t *testing.T) {
	t.Parallel()

	p := NewHostPacer(time.Millisecond, map[string]time.Duration{"slow.example": 80 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, p.Acquire(ctx, "slow.example"))
	p.Release("slow.example")

	start := time.Now()
	require.NoError(t, p.Acquire(ctx, "slow.example"))
	p.Release("slow.example")
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPacerAcquireHonoursCancellation(t *testing.T) {
	t.Parallel()

	p := NewHostPacer(time.Hour, nil)
	require.NoError(t, p.Acquire(context.Background(), "a.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Acquire(ctx, "a.example")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The slot must not be held by the cancelled waiter.
	p.Release("a.example")
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	go func() {
		// Free the interval wait quickly by cancelling.
		time.Sleep(50 * time.Millisecond)
		cancel2()
	}()
	err = p.Acquire(ctx2, "a.example")
	require.Error(t, err)
}

func TestPacerCancelledDuringIntervalWaitFreesSlot(t *testing.T) {
	t.Parallel()

	p := NewHostPacer(200*time.Millisecond, nil)
	require.NoError(t, p.Acquire(context.Background(), "a.example"))
	p.Release("a.example")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, p.Acquire(ctx, "a.example"))

	// A fresh acquire must still be able to take the slot.
	done := make(chan error, 1)
	go func() { done <- p.Acquire(context.Background(), "a.example") }()
	select {
	case err := <-done:
		require.NoError(t, err)
		p.Release("a.example")
	case <-time.After(2 * time.Second):
		t.Fatal("slot leaked by cancelled waiter")
	}
}
