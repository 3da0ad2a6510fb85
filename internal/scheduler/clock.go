package scheduler

import (
	"sync"
	"time"
)

// Timer 可停止的定时器
type Timer interface {
	Stop()
}

// Clock 调度器使用的时间源，测试中可替换为手动时钟
type Clock interface {
	Now() time.Time
	// AfterFunc d 之后在独立 goroutine 中调用 f 一次
	AfterFunc(d time.Duration, f func()) Timer
	// Every initial 之后首次调用 f，此后每隔 period 调用一次
	Every(initial, period time.Duration, f func()) Timer
}

// RealClock 基于系统时间的 Clock
func RealClock() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return afterFuncTimer{t: time.AfterFunc(d, f)}
}

func (realClock) Every(initial, period time.Duration, f func()) Timer {
	t := &everyTimer{stop: make(chan struct{})}
	go t.run(initial, period, f)
	return t
}

type afterFuncTimer struct {
	t *time.Timer
}

func (a afterFuncTimer) Stop() { a.t.Stop() }

type everyTimer struct {
	stop chan struct{}
	once sync.Once
}

func (e *everyTimer) run(initial, period time.Duration, f func()) {
	if initial < 0 {
		initial = 0
	}
	first := time.NewTimer(initial)
	defer first.Stop()

	select {
	case <-e.stop:
		return
	case <-first.C:
	}
	f()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			f()
		}
	}
}

func (e *everyTimer) Stop() {
	e.once.Do(func() { close(e.stop) })
}
