package metrics

// Provider define o contrato para envio de métricas.
// O cliente Parse publica contagem, latência e erros por família de endpoint.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// MetricType define os tipos suportados.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// Noop descarta tudo. É o padrão do Client quando nenhum Provider é informado.
type Noop struct{}

func (Noop) Count(string, float64, []string) error     { return nil }
func (Noop) Gauge(string, float64, []string) error     { return nil }
func (Noop) Histogram(string, float64, []string) error { return nil }
