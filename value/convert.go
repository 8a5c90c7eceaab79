package value

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parseerr"
)

func (v Value) mismatch(want Kind) error {
	return parseerr.NewDecode(nil, fmt.Sprintf("expected %s, got %s", want, v.kind))
}

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.v.(bool), nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.v.(string), nil
}

func (v Value) AsNumber() (json.Number, error) {
	if v.kind != KindNumber {
		return "", v.mismatch(KindNumber)
	}
	return v.v.(json.Number), nil
}

func (v Value) AsFloat() (float64, error) {
	n, err := v.AsNumber()
	if err != nil {
		return 0, err
	}
	f, err := n.Float64()
	if err != nil {
		return 0, parseerr.NewDecode(err, "invalid number "+string(n))
	}
	return f, nil
}

// AsInt aceita literais inteiros e números de ponto flutuante sem parte fracionária.
func (v Value) AsInt() (int64, error) {
	n, err := v.AsNumber()
	if err != nil {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, parseerr.NewDecode(err, "not an integer: "+string(n))
	}
	return int64(f), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, parseerr.NewDecode(nil, "non-finite number")
	}
	return Float(f), nil
}

// AsDate aceita tanto o Date embrulhado quanto uma string ISO-8601 simples.
func (v Value) AsDate() (time.Time, error) {
	switch v.kind {
	case KindDate:
		return v.v.(time.Time), nil
	case KindString:
		t, err := ParseDate(v.v.(string))
		if err != nil {
			return time.Time{}, parseerr.NewDecode(err, "invalid date string")
		}
		return t, nil
	}
	return time.Time{}, v.mismatch(KindDate)
}

func (v Value) AsPointer() (Pointer, error) {
	if v.kind != KindPointer {
		return Pointer{}, v.mismatch(KindPointer)
	}
	return v.v.(Pointer), nil
}

func (v Value) AsGeoPoint() (GeoPoint, error) {
	if v.kind != KindGeoPoint {
		return GeoPoint{}, v.mismatch(KindGeoPoint)
	}
	return v.v.(GeoPoint), nil
}

func (v Value) AsFile() (File, error) {
	if v.kind != KindFile {
		return File{}, v.mismatch(KindFile)
	}
	return v.v.(File), nil
}

func (v Value) AsRelation() (Relation, error) {
	if v.kind != KindRelation {
		return Relation{}, v.mismatch(KindRelation)
	}
	return v.v.(Relation), nil
}

func (v Value) AsFieldOp() (FieldOp, error) {
	if v.kind != KindFieldOp {
		return FieldOp{}, v.mismatch(KindFieldOp)
	}
	return v.v.(FieldOp), nil
}

func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, v.mismatch(KindArray)
	}
	items := v.v.([]Value)
	cp := make([]Value, len(items))
	copy(cp, items)
	return cp, nil
}

func (v Value) AsObject() (map[string]Value, error) {
	if v.kind != KindObject {
		return nil, v.mismatch(KindObject)
	}
	fields := v.v.(map[string]Value)
	cp := make(map[string]Value, len(fields))
	for k, f := range fields {
		cp[k] = f
	}
	return cp, nil
}

// Interface devolve v como tipos Go simples: nil, bool, json.Number, string,
// []any, map[string]any, time.Time, Pointer, GeoPoint, File, Relation ou FieldOp.
func (v Value) Interface() any {
	switch v.kind {
	case KindArray:
		items := v.v.([]Value)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		fields := v.v.(map[string]Value)
		out := make(map[string]any, len(fields))
		for k, f := range fields {
			out[k] = f.Interface()
		}
		return out
	}
	return v.v
}

// From converte valores Go comuns (e os tipos de domínio deste pacote) em
// Value. Tipos não reconhecidos passam por um ciclo JSON, o que permite usar
// structs com tags json.
func From(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(json.Number(fmt.Sprint(t))), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(json.Number(fmt.Sprint(t))), nil
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case time.Time:
		return Date(t), nil
	case *time.Time:
		if t == nil {
			return Null(), nil
		}
		return Date(*t), nil
	case Pointer:
		return PointerValue(t), nil
	case GeoPoint:
		if err := t.Validate(); err != nil {
			return Value{}, err
		}
		return Value{kind: KindGeoPoint, v: t}, nil
	case File:
		return FileValue(t), nil
	case Relation:
		return RelationOf(t.ClassName), nil
	case FieldOp:
		return Op(t), nil
	case ACL:
		return t.Value(), nil
	case []Value:
		return Array(t...), nil
	case map[string]Value:
		return Object(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := From(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindArray, v: items}, nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindArray, v: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := From(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Value{kind: KindObject, v: fields}, nil
	}

	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, parseerr.NewDecode(err, fmt.Sprintf("cannot convert %T", x))
	}
	return Decode(data)
}

// MustFrom é From para literais conhecidos em tempo de compilação.
func MustFrom(x any) Value {
	v, err := From(x)
	if err != nil {
		panic(err)
	}
	return v
}
