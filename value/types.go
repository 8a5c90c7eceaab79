package value

import (
	"errors"
	"fmt"
	"time"

	"github.com/raywall/parse-toolkit/parseerr"
)

// ErrGeoPointOutOfRange é devolvido (encapsulado em Precondition) quando a
// latitude não está em [-90, 90] ou a longitude não está em [-180, 180].
var ErrGeoPointOutOfRange = errors.New("value: geo point out of range")

// Pointer referencia outro objeto pela classe e pelo objectId.
type Pointer struct {
	ClassName string
	ObjectID  string
}

type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

func NewGeoPoint(latitude, longitude float64) (GeoPoint, error) {
	g := GeoPoint{Latitude: latitude, Longitude: longitude}
	if err := g.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return g, nil
}

func (g GeoPoint) Validate() error {
	if g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180 {
		return parseerr.NewPrecondition(fmt.Errorf("%w: (%v, %v)", ErrGeoPointOutOfRange, g.Latitude, g.Longitude))
	}
	return nil
}

// File é a referência devolvida pelo upload; o conteúdo vive no servidor.
type File struct {
	Name string
	URL  string
}

// Relation descreve um campo de relação muitos-para-muitos.
type Relation struct {
	ClassName string
}

const isoLayout = "2006-01-02T15:04:05.000Z"

func truncateMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// FormatDate produz o formato ISO-8601 usado pelo Parse (UTC, milissegundos).
func FormatDate(t time.Time) string {
	return truncateMillis(t).Format(isoLayout)
}

// ParseDate aceita RFC3339 com ou sem fração de segundos.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return truncateMillis(t), nil
}
