package sampler

import (
	"errors"
	"testing"

	"github.com/annel0/mmo-worldgen/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	samples    int
	failures   int
	rejections map[string]int
}

func (o *countingObserver) ObserveSample(label string, attempts int, ok bool) {
	if ok {
		o.samples++
	} else {
		o.failures++
	}
}

func (o *countingObserver) ObserveRejection(label, reason string) {
	if o.rejections == nil {
		o.rejections = make(map[string]int)
	}
	o.rejections[reason]++
}

func TestRandomInt(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		v := RandomInt(seed, 3, 9)
		assert.GreaterOrEqual(t, v, 3)
		assert.Less(t, v, 9)
		assert.Equal(t, v, RandomInt(seed, 3, 9), "Детерминированность")
	}
	assert.Equal(t, 5, RandomInt(1, 5, 5), "max <= min возвращает min")
	assert.Equal(t, 5, RandomInt(1, 5, 2))
}

func TestRandomSectorPosition(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		pos := RandomSectorPosition(seed, 22, 10)
		assert.Equal(t, 22, pos.Level)
		assert.LessOrEqual(t, pos.Vec2().LengthSq(), 100, "Внутри радиуса")
		assert.Equal(t, pos, RandomSectorPosition(seed, 22, 10))
	}
	assert.Equal(t, vec.Origin(4), RandomSectorPosition(9, 4, 0), "Нулевой радиус: центр")
}

func TestSample_Annulus(t *testing.T) {
	s := New()
	center := vec.Pos(5, 10, -3)
	for seed := int64(0); seed < 300; seed++ {
		pos := s.Sample(seed, "test", 7, 4, center, 4)
		d := pos.Vec2().Sub(center.Vec2())
		assert.Equal(t, 16, d.LengthSq(), "Узкое кольцо радиуса 4")
		assert.Equal(t, 7, pos.Level, "Уровень берётся из аргумента")
	}
}

func TestSampleWithCheck_Accepts(t *testing.T) {
	obs := &countingObserver{}
	s := New(WithObserver(obs))

	calls := 0
	pos, err := s.SampleWithCheck(42, "camp pos", 3, 10, vec.Origin(3), 0, func(p vec.Position) CheckResult {
		calls++
		if p.X < 0 {
			return Reject("west", "")
		}
		return Accept()
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pos.X, 0)
	assert.Equal(t, 1, obs.samples)
	assert.Equal(t, calls-1, obs.rejections["west"])

	again, err := s.SampleWithCheck(42, "camp pos", 3, 10, vec.Origin(3), 0, func(p vec.Position) CheckResult {
		if p.X < 0 {
			return Reject("west", "")
		}
		return Accept()
	})
	require.NoError(t, err)
	assert.Equal(t, pos, again, "Одинаковый seed даёт одинаковый результат")
}

func TestSampleWithCheck_Widening(t *testing.T) {
	s := New(WithMaxAttempts(500), WithWidenEvery(10))

	// Радиус 0: первые попытки всегда в центре, подходит только расширенный радиус
	pos, err := s.SampleWithCheck(1, "far", 1, 0, vec.Origin(1), 0, func(p vec.Position) CheckResult {
		if p.Vec2().LengthSq() < 9 {
			return Reject("too close", "")
		}
		return Accept()
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pos.Vec2().LengthSq(), 9)
}

func TestSampleWithCheck_Exhausted(t *testing.T) {
	obs := &countingObserver{}
	s := New(WithMaxAttempts(20), WithObserver(obs))

	_, err := s.SampleWithCheck(7, "passage down pos 5", 5, 3, vec.Origin(5), 0, func(p vec.Position) CheckResult {
		return Reject("blocking feature", p.String())
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "passage down pos 5", exhausted.Label)
	assert.Equal(t, 5, exhausted.Level)
	assert.Equal(t, 20, exhausted.Attempts)
	assert.Equal(t, "blocking feature", exhausted.Reason)
	assert.NotEmpty(t, exhausted.Details)
	assert.Contains(t, err.Error(), "blocking feature")

	assert.Equal(t, 1, obs.failures)
	assert.Equal(t, 20, obs.rejections["blocking feature"])
}
