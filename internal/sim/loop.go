package sim

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RuneMirror/RuneMirror/pkg/logger"
)

// Loop - кооперативный однопоточный контекст симуляции ("игровой цикл").
// Всё, что трогает состояние симуляции, выполняется внутри Step.
//
// Порядок внутри тика:
//  1. tick++
//  2. хуки тика (движение аватара и т.п.)
//  3. отложенные вызовы, чей тик наступил
//  4. вызовы, переданные через Invoke из других горутин
type Loop struct {
	tick atomic.Int64

	mu     sync.Mutex
	posted []func()
	timers TimerQueue
	order  uint64

	hooks []func(tick int)
}

func NewLoop() *Loop {
	l := &Loop{timers: make(TimerQueue, 0)}
	heap.Init(&l.timers)
	return l
}

// Tick - текущий тик. Безопасно читать из любой горутины.
func (l *Loop) Tick() int {
	return int(l.tick.Load())
}

// OnTick регистрирует хук, вызываемый в начале каждого тика.
// Регистрировать до запуска цикла.
func (l *Loop) OnTick(fn func(tick int)) {
	l.hooks = append(l.hooks, fn)
}

// Invoke ставит fn в очередь на ближайший тик. Потокобезопасен.
func (l *Loop) Invoke(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
}

// InvokeAfter выполнит fn через ticks тиков (минимум через один).
func (l *Loop) InvokeAfter(ticks int, fn func()) {
	if ticks < 1 {
		ticks = 1
	}
	l.mu.Lock()
	l.order++
	heap.Push(&l.timers, &TimerItem{Fn: fn, Due: l.Tick() + ticks, Order: l.order})
	l.mu.Unlock()
}

// Pending - сколько работы ждёт (для тестов и дебага).
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted) + l.timers.Len()
}

// Step прокручивает ровно один тик.
func (l *Loop) Step() {
	tick := int(l.tick.Add(1))

	for _, hook := range l.hooks {
		hook(tick)
	}

	// Отложенные. InvokeAfter внутри колбэка даёт Due > tick, так что цикл конечен.
	for {
		l.mu.Lock()
		next := l.timers.Peek()
		if next == nil || next.Due > tick {
			l.mu.Unlock()
			break
		}
		item := heap.Pop(&l.timers).(*TimerItem)
		l.mu.Unlock()
		item.Fn()
	}

	// Переданные из других горутин. Забираем пачку целиком:
	// то, что поставят во время выполнения, уйдёт на следующий тик.
	l.mu.Lock()
	batch := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
}

// Run крутит цикл с заданным интервалом, пока не отменят контекст.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	logger.For("loop").WithField("interval", interval).Info("Simulation loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.For("loop").WithField("tick", l.Tick()).Info("Simulation loop stopped")
			return
		case <-ticker.C:
			l.Step()
		}
	}
}
