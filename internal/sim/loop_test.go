package sim

import (
	"container/heap"
	"context"
	"sync"
	"testing"
	"time"
)

func TestTimerQueue(t *testing.T) {
	pq := make(TimerQueue, 0)
	heap.Init(&pq)

	heap.Push(&pq, &TimerItem{Due: 10, Order: 1})
	heap.Push(&pq, &TimerItem{Due: 5, Order: 2})
	heap.Push(&pq, &TimerItem{Due: 10, Order: 0})

	if pq.Len() != 3 {
		t.Errorf("Expected length 3, got %d", pq.Len())
	}
	if pq.Peek().Due != 5 {
		t.Errorf("Expected peek due 5, got %d", pq.Peek().Due)
	}

	want := []struct {
		due   int
		order uint64
	}{{5, 2}, {10, 0}, {10, 1}}
	for i, w := range want {
		item := heap.Pop(&pq).(*TimerItem)
		if item.Due != w.due || item.Order != w.order {
			t.Errorf("pop %d: got (%d,%d), want (%d,%d)", i, item.Due, item.Order, w.due, w.order)
		}
	}
	if pq.Peek() != nil {
		t.Error("Expected empty queue")
	}
}

func TestLoopOrderWithinTick(t *testing.T) {
	l := NewLoop()
	var got []string

	l.OnTick(func(tick int) { got = append(got, "hook") })
	l.Invoke(func() { got = append(got, "posted") })
	l.InvokeAfter(1, func() { got = append(got, "timer") })

	l.Step()

	want := []string{"hook", "timer", "posted"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if l.Tick() != 1 {
		t.Errorf("tick = %d, want 1", l.Tick())
	}
}

func TestLoopInvokeAfter(t *testing.T) {
	l := NewLoop()
	var firedAt []int

	l.InvokeAfter(3, func() { firedAt = append(firedAt, l.Tick()) })
	l.InvokeAfter(0, func() { firedAt = append(firedAt, l.Tick()) }) // минимум один тик

	for i := 0; i < 5; i++ {
		l.Step()
	}

	if len(firedAt) != 2 || firedAt[0] != 1 || firedAt[1] != 3 {
		t.Errorf("fired at %v, want [1 3]", firedAt)
	}
	if l.Pending() != 0 {
		t.Errorf("pending = %d, want 0", l.Pending())
	}
}

// Цепочка продолжений: каждое следующее звено - на следующем тике.
func TestLoopContinuationChain(t *testing.T) {
	l := NewLoop()
	var ticks []int

	var step func()
	step = func() {
		ticks = append(ticks, l.Tick())
		if len(ticks) < 3 {
			l.InvokeAfter(1, step)
		}
	}
	l.Invoke(step)

	for i := 0; i < 6; i++ {
		l.Step()
	}

	want := []int{1, 2, 3}
	if len(ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("ticks = %v, want %v", ticks, want)
			break
		}
	}
}

// Invoke из колбэка уходит на следующий тик.
func TestLoopInvokeFromCallbackDefers(t *testing.T) {
	l := NewLoop()
	var at int

	l.Invoke(func() {
		l.Invoke(func() { at = l.Tick() })
	})
	l.Step()
	if at != 0 {
		t.Fatalf("nested invoke ran on the same tick")
	}
	l.Step()
	if at != 2 {
		t.Errorf("nested invoke ran at %d, want 2", at)
	}
}

func TestLoopInvokeConcurrent(t *testing.T) {
	l := NewLoop()
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Invoke(func() { count++ })
		}()
	}
	wg.Wait()
	l.Step()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for l.Tick() < 3 {
		select {
		case <-deadline:
			t.Fatal("loop did not tick")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
