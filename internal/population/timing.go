package population

import (
	"math"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

const (
	// MinRespawnMs - нижняя граница таймера респавна группы
	MinRespawnMs int64 = 500
	// DeathDurationMs - длительность анимации смерти перед деспавном
	DeathDurationMs int64 = 700
	// BaseStepMs - время прохода одного тайла при скорости 1.0
	BaseStepMs = 360.0

	minSpeed = 0.25
	maxSpeed = 5.0

	decisionMinMs = 320.0
	decisionMaxMs = 980.0
	decisionLoMs  = 110.0
	decisionHiMs  = 2200.0

	retryMinMs = 110.0
	retryMaxMs = 700.0

	stepLoMs = 70.0
	stepHiMs = 1440.0
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampSpeed ограничивает скорость существа диапазоном [0.25, 5]
func ClampSpeed(speed float64) float64 {
	return clamp(speed, minSpeed, maxSpeed)
}

// DecisionDelay - задержка до следующего решения: быстрые существа решают чаще
func DecisionDelay(speed float64, rnd clock.Random) int64 {
	raw := clock.Uniform(rnd, decisionMinMs, decisionMaxMs) / ClampSpeed(speed)
	return int64(math.Round(clamp(raw, decisionLoMs, decisionHiMs)))
}

// RetryDelay - короткая задержка повторной попытки, когда двигаться некуда
func RetryDelay(rnd clock.Random) int64 {
	return int64(math.Round(clock.Uniform(rnd, retryMinMs, retryMaxMs)))
}

// StepDurationMs - время перехода между соседними тайлами с учетом диагонали
func StepDurationMs(speed float64, from, to vec.Vec2) int64 {
	perTile := clamp(BaseStepMs/ClampSpeed(speed), stepLoMs, stepHiMs)
	return int64(math.Round(perTile * from.DistanceTo(to)))
}
