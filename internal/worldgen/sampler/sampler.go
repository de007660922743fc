// Package sampler реализует детерминированный поиск позиций с проверкой:
// кандидат является чистой функцией (seed, attempt), число попыток ограничено.
package sampler

import (
	"errors"
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/vec"
)

const (
	DefaultMaxAttempts = 1500
	DefaultWidenEvery  = 25

	// Шаг seed между попытками
	seedStride = 7919
)

// ErrExhausted возвращается (в обёртке ExhaustedError), если ни один кандидат не прошёл проверку
var ErrExhausted = errors.New("sampler: attempts exhausted")

// CheckResult описывает результат проверки кандидата. Отказ является нормальным исходом, а не ошибкой.
type CheckResult struct {
	Valid   bool
	Reason  string
	Details string
}

// Accept возвращает положительный результат проверки
func Accept() CheckResult {
	return CheckResult{Valid: true}
}

// Reject возвращает отказ с причиной и подробностями
func Reject(reason, details string) CheckResult {
	return CheckResult{Reason: reason, Details: details}
}

// CheckFunc проверяет кандидата
type CheckFunc func(pos vec.Position) CheckResult

// Observer получает статистику поиска (метрики)
type Observer interface {
	ObserveSample(label string, attempts int, ok bool)
	ObserveRejection(label, reason string)
}

// ExhaustedError описывает неудачный поиск позиции
type ExhaustedError struct {
	Label    string
	Level    int
	Attempts int
	Reason   string
	Details  string
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("sampler: %q на уровне %d: нет допустимой позиции после %d попыток (последняя причина: %s",
		e.Label, e.Level, e.Attempts, e.Reason)
	if e.Details != "" {
		msg += ", " + e.Details
	}
	return msg + ")"
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// Sampler ищет позиции в кольце вокруг центра
type Sampler struct {
	maxAttempts int
	widenEvery  int
	observer    Observer
}

// Option настраивает Sampler
type Option func(*Sampler)

// WithMaxAttempts задаёт предел попыток
func WithMaxAttempts(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithWidenEvery задаёт, через сколько попыток радиус увеличивается на 1 (0 отключает расширение)
func WithWidenEvery(n int) Option {
	return func(s *Sampler) {
		if n >= 0 {
			s.widenEvery = n
		}
	}
}

// WithObserver подключает наблюдателя
func WithObserver(o Observer) Option {
	return func(s *Sampler) { s.observer = o }
}

// New создаёт Sampler
func New(opts ...Option) *Sampler {
	s := &Sampler{
		maxAttempts: DefaultMaxAttempts,
		widenEvery:  DefaultWidenEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts возвращает предел попыток
func (s *Sampler) MaxAttempts() int { return s.maxAttempts }

// Sample возвращает позицию без проверки
func (s *Sampler) Sample(seed int64, label string, level, radius int, center vec.Position, minRadius int) vec.Position {
	return samplePoint(seed, level, radius, center, minRadius)
}

// Candidate возвращает кандидата для конкретной попытки
func (s *Sampler) Candidate(seed int64, attempt, level, radius int, center vec.Position, minRadius int) vec.Position {
	if s.widenEvery > 0 {
		radius += attempt / s.widenEvery
	}
	return samplePoint(seed+int64(attempt)*seedStride, level, radius, center, minRadius)
}

// SampleWithCheck перебирает кандидатов, пока check не примет одного из них.
// При исчерпании попыток возвращает *ExhaustedError.
func (s *Sampler) SampleWithCheck(seed int64, label string, level, radius int, center vec.Position, minRadius int, check CheckFunc) (vec.Position, error) {
	var last CheckResult
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		pos := s.Candidate(seed, attempt, level, radius, center, minRadius)

		res := check(pos)
		if res.Valid {
			if s.observer != nil {
				s.observer.ObserveSample(label, attempt+1, true)
			}
			return pos, nil
		}

		last = res
		if s.observer != nil {
			s.observer.ObserveRejection(label, res.Reason)
		}
	}

	if s.observer != nil {
		s.observer.ObserveSample(label, s.maxAttempts, false)
	}

	return vec.Position{}, &ExhaustedError{
		Label:    label,
		Level:    level,
		Attempts: s.maxAttempts,
		Reason:   last.Reason,
		Details:  last.Details,
	}
}
