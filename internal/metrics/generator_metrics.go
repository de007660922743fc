// Package metrics содержит Prometheus-метрики генератора шаблонов.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GeneratorMetrics собирает статистику поиска позиций и генерации шаблонов.
// Реализует sampler.Observer.
//
// Метрики:
// * worldgen_sample_attempts{label,result}: histogram
// * worldgen_sample_rejections_total{reason}: counter
// * worldgen_generation_duration_seconds{result}: histogram
// * worldgen_templates_total{source}: counter (generated/cache/store)
type GeneratorMetrics struct {
	attempts   *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	templates  *prometheus.CounterVec
}

// NewGeneratorMetrics создаёт метрики и регистрирует их в reg (при nil используется дефолтный регистр)
func NewGeneratorMetrics(reg prometheus.Registerer) *GeneratorMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &GeneratorMetrics{
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worldgen",
			Name:      "sample_attempts",
			Help:      "Число попыток до нахождения допустимой позиции.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 1500},
		}, []string{"label", "result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "sample_rejections_total",
			Help:      "Отклонённые кандидаты по причинам.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worldgen",
			Name:      "generation_duration_seconds",
			Help:      "Длительность генерации шаблона мира.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"result"}),
		templates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldgen",
			Name:      "templates_total",
			Help:      "Выданные шаблоны по источнику (generated, cache, store).",
		}, []string{"source"}),
	}

	reg.MustRegister(m.attempts, m.rejections, m.duration, m.templates)
	return m
}

// ObserveSample фиксирует завершённый поиск позиции
func (m *GeneratorMetrics) ObserveSample(label string, attempts int, ok bool) {
	m.attempts.WithLabelValues(normalizeLabel(label), result(ok)).Observe(float64(attempts))
}

// ObserveRejection фиксирует отклонённого кандидата
func (m *GeneratorMetrics) ObserveRejection(label, reason string) {
	m.rejections.WithLabelValues(normalizeReason(reason)).Inc()
}

// ObserveGeneration фиксирует длительность генерации шаблона
func (m *GeneratorMetrics) ObserveGeneration(d time.Duration, err error) {
	m.duration.WithLabelValues(result(err == nil)).Observe(d.Seconds())
}

// TemplateServed фиксирует источник выданного шаблона
func (m *GeneratorMetrics) TemplateServed(source string) {
	m.templates.WithLabelValues(source).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "exhausted"
}

// normalizeLabel убирает номер уровня ("passage down pos 12" → "passage down pos"),
// чтобы не плодить серии
func normalizeLabel(label string) string {
	return trimTrailingNumber(label)
}

// normalizeReason убирает координаты из причины ("min distance to passage up 13.4.-2")
func normalizeReason(reason string) string {
	for i := len(reason) - 1; i >= 0; i-- {
		c := reason[i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' {
			continue
		}
		if c == ' ' && i < len(reason)-1 {
			return reason[:i]
		}
		break
	}
	return reason
}

func trimTrailingNumber(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i < len(s) && i > 0 && (s[i-1] == ' ' || s[i-1] == '-') {
		return s[:i-1]
	}
	return s
}
