// Package value implementa o modelo de valores do Parse: uma união etiquetada
// capaz de representar qualquer JSON aceito pelo servidor, incluindo os tipos
// de domínio codificados com o discriminador "__type" (Date, Pointer, GeoPoint,
// File, Relation) e as operações de campo codificadas com "__op".
//
// O valor zero de Value é Null.
package value

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Kind é a etiqueta da união.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindDate
	KindPointer
	KindGeoPoint
	KindFile
	KindRelation
	KindFieldOp
)

var kindNames = [...]string{
	KindNull:     "Null",
	KindBool:     "Bool",
	KindNumber:   "Number",
	KindString:   "String",
	KindArray:    "Array",
	KindObject:   "Object",
	KindDate:     "Date",
	KindPointer:  "Pointer",
	KindGeoPoint: "GeoPoint",
	KindFile:     "File",
	KindRelation: "Relation",
	KindFieldOp:  "FieldOp",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value é imutável depois de construído. Slices e mapas devolvidos pelos
// acessores são cópias rasas.
type Value struct {
	kind Kind
	v    any
}

// Null devolve o valor nulo.
func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, v: b} }

func String(s string) Value { return Value{kind: KindString, v: s} }

// Number guarda o literal numérico como texto, sem perda de precisão.
func Number(n json.Number) Value { return Value{kind: KindNumber, v: n} }

func Int(i int64) Value { return Number(json.Number(strconv.FormatInt(i, 10))) }

func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'f', -1, 64)))
}

// Array copia os elementos recebidos.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, v: cp}
}

// Object copia o mapa recebido.
func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, v: cp}
}

// Date normaliza t para UTC com precisão de milissegundos.
func Date(t time.Time) Value { return Value{kind: KindDate, v: truncateMillis(t)} }

func PointerTo(className, objectID string) Value {
	return Value{kind: KindPointer, v: Pointer{ClassName: className, ObjectID: objectID}}
}

func PointerValue(p Pointer) Value { return Value{kind: KindPointer, v: p} }

// Geo valida os limites de latitude e longitude.
func Geo(latitude, longitude float64) (Value, error) {
	g, err := NewGeoPoint(latitude, longitude)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindGeoPoint, v: g}, nil
}

func FileValue(f File) Value { return Value{kind: KindFile, v: f} }

func RelationOf(className string) Value {
	return Value{kind: KindRelation, v: Relation{ClassName: className}}
}

func Op(op FieldOp) Value { return Value{kind: KindFieldOp, v: op} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Equal compara estruturalmente. Números são comparados pelo valor
// numérico quando ambos os literais são válidos.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		a, b := v.v.(json.Number), o.v.(json.Number)
		if a == b {
			return true
		}
		fa, errA := a.Float64()
		fb, errB := b.Float64()
		return errA == nil && errB == nil && fa == fb
	case KindDate:
		return v.v.(time.Time).Equal(o.v.(time.Time))
	case KindArray:
		a, b := v.v.([]Value), o.v.([]Value)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return equalMaps(v.v.(map[string]Value), o.v.(map[string]Value))
	case KindFieldOp:
		a, b := v.v.(FieldOp), o.v.(FieldOp)
		return a.Kind == b.Kind && a.Operand.Equal(b.Operand)
	default:
		return v.v == o.v
	}
}

func equalMaps(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.kind.String() + ">"
	}
	return string(data)
}
