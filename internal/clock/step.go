package clock

import (
	"sync"
	"time"
)

const (
	// StepMs - фиксированный шаг авторитетной симуляции
	StepMs int64 = 120
	// MaxCatchUpMs - максимальный промежуток времени, который будет проигран за один запрос
	MaxCatchUpMs int64 = 30000
)

// CatchUp описывает план догоняющей симуляции
type CatchUp struct {
	From     int64 // Момент, с которого начинается проигрывание
	Steps    int   // Количество целых шагов
	LastTick int64 // Новое значение lastTick = From + Steps*StepMs
	Skipped  int64 // Пропущенное время в мс от lastTick до From
}

// Tick возвращает момент i-го шага (i начиная с 1)
func (c CatchUp) Tick(i int) int64 {
	return c.From + int64(i)*StepMs
}

// PlanCatchUp строит план догоняющей симуляции от lastTick до now.
// Промежуток больше MaxCatchUpMs не проигрывается: существа "перескакивают" вперед.
// Пропускается начало промежутка, а не конец: From сдвигается к now-MaxCatchUpMs,
// поэтому LastTick оказывается меньше чем на StepMs позади now, а не на lastTick+MaxCatchUpMs.
func PlanCatchUp(lastTick, now int64) CatchUp {
	from := lastTick
	var skipped int64
	if now-from > MaxCatchUpMs {
		skipped = now - MaxCatchUpMs - from
		from = now - MaxCatchUpMs
	}

	steps := 0
	if now > from {
		steps = int((now - from) / StepMs)
	}

	return CatchUp{
		From:     from,
		Steps:    steps,
		LastTick: from + int64(steps)*StepMs,
		Skipped:  skipped,
	}
}

// Clock - источник времени симуляции в миллисекундах
type Clock interface {
	NowMs() int64
}

// WallClock - системные часы
type WallClock struct{}

// NowMs возвращает текущее время в мс
func (WallClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

// FakeClock - управляемые часы для тестов
type FakeClock struct {
	mu  sync.Mutex
	now int64
}

// NewFakeClock создает часы с начальным моментом
func NewFakeClock(start int64) *FakeClock {
	return &FakeClock{now: start}
}

// NowMs возвращает текущее значение
func (f *FakeClock) NowMs() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance сдвигает часы на d мс и возвращает новое время
func (f *FakeClock) Advance(d int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += d
	return f.now
}
