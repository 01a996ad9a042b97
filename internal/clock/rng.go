package clock

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// fallbackSeed используется, если хеш мира свернулся в ноль
const fallbackSeed uint32 = 0x9E3779B9

// Random - источник равномерных чисел в [0,1).
// Авторитетный симулятор получает детерминированный RNG, интерактивный - истинно случайный.
type Random interface {
	Float64() float64
}

// Seed выводит 32-битный сид из идентификатора мира и его версии (last-modified).
// Два процесса с одинаковыми входами получают одинаковый сид.
func Seed(worldID string, version int64) uint32 {
	h := xxhash.Sum64String(worldID + ":" + strconv.FormatInt(version, 10))
	seed := uint32(h>>32) ^ uint32(h)
	if seed == 0 {
		return fallbackSeed
	}
	return seed
}

// RNG - быстрый 32-битный генератор: аддитивный шаг + два раунда xorshift-умножения.
// Состояние сериализуемо, поэтому реестр можно сохранить и продолжить без расхождений.
type RNG struct {
	state uint32
}

// NewRNG создает генератор с указанным сидом
func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// NewWorldRNG создает генератор для мира
func NewWorldRNG(worldID string, version int64) *RNG {
	return NewRNG(Seed(worldID, version))
}

// Next возвращает следующее 32-битное значение
func (r *RNG) Next() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 возвращает число в [0,1)
func (r *RNG) Float64() float64 {
	return float64(r.Next()) / 4294967296.0
}

// State возвращает внутреннее состояние для сохранения
func (r *RNG) State() uint32 {
	return r.state
}

// Restore восстанавливает состояние генератора
func (r *RNG) Restore(state uint32) {
	r.state = state
}

// Uniform возвращает число в [min,max)
func Uniform(r Random, min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// Pick возвращает индекс floor(r*n); n должно быть > 0
func Pick(r Random, n int) int {
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// trueRandom - потокобезопасная обертка над math/rand для интерактивного симулятора
type trueRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewTrueRandom создает источник, засеянный текущим временем
func NewTrueRandom() Random {
	return &trueRandom{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (t *trueRandom) Float64() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rnd.Float64()
}

// Sequence - источник, выдающий заранее заданные значения по кругу (для тестов и реплеев)
type Sequence struct {
	Values []float64
	pos    int
}

// Float64 возвращает следующее значение последовательности
func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	return v
}
