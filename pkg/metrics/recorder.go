package metrics

import (
	"strconv"
	"strings"
	"sync"
)

// Sample é uma métrica registrada pelo Recorder.
type Sample struct {
	Type  MetricType
	Name  string
	Value float64
	Tags  []string
}

// HasTag informa se a amostra carrega a tag "chave:valor".
func (s Sample) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Recorder guarda as métricas em memória. Usado pelo parsectl com
// --metrics=stdout e pelos testes.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(t MetricType, name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Type: t, Name: name, Value: value, Tags: append([]string(nil), tags...)})
	return nil
}

func (r *Recorder) Count(name string, value float64, tags []string) error {
	return r.record(TypeCount, name, value, tags)
}

func (r *Recorder) Gauge(name string, value float64, tags []string) error {
	return r.record(TypeGauge, name, value, tags)
}

func (r *Recorder) Histogram(name string, value float64, tags []string) error {
	return r.record(TypeHistogram, name, value, tags)
}

// Samples devolve uma cópia das amostras, opcionalmente filtradas por nome.
func (r *Recorder) Samples(name string) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sample
	for _, s := range r.samples {
		if name == "" || s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Total soma os valores de name.
func (r *Recorder) Total(name string) float64 {
	var sum float64
	for _, s := range r.Samples(name) {
		sum += s.Value
	}
	return sum
}

// Summary formata uma linha por métrica no formato "tipo nome valor [tags]".
func (r *Recorder) Summary() string {
	var b strings.Builder
	for _, s := range r.Samples("") {
		b.WriteString(string(s.Type))
		b.WriteByte(' ')
		b.WriteString(s.Name)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(s.Value, 'f', -1, 64))
		if len(s.Tags) > 0 {
			b.WriteString(" [")
			b.WriteString(strings.Join(s.Tags, ","))
			b.WriteByte(']')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
