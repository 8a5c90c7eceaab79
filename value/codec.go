package value

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/raywall/parse-toolkit/parseerr"
)

const (
	typeKey = "__type"
	opKey   = "__op"
)

// Encode serializa v na codificação de fio do Parse.
func Encode(v Value) ([]byte, error) {
	return v.MarshalJSON()
}

// Decode interpreta um documento JSON completo como Value.
func Decode(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

// EncodeObject serializa um conjunto de campos como objeto JSON.
func EncodeObject(fields map[string]Value) ([]byte, error) {
	return Object(fields).MarshalJSON()
}

// DecodeObject exige que o documento seja um objeto JSON.
func DecodeObject(data []byte) (map[string]Value, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return v.AsObject()
}

func (v Value) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(v.Wire())
	if err != nil {
		return nil, parseerr.NewDecode(err, "encode value")
	}
	return data, nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return parseerr.NewDecode(err, "invalid json")
	}
	decoded, err := FromWire(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Wire devolve a árvore de tipos Go (map[string]any, []any, json.Number,
// string, bool, nil) equivalente a v no formato de fio.
func (v Value) Wire() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool, KindString:
		return v.v
	case KindNumber:
		return v.v.(json.Number)
	case KindArray:
		items := v.v.([]Value)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item.Wire()
		}
		return out
	case KindObject:
		fields := v.v.(map[string]Value)
		out := make(map[string]any, len(fields))
		for k, f := range fields {
			out[k] = f.Wire()
		}
		return out
	case KindDate:
		return map[string]any{typeKey: "Date", "iso": FormatDate(v.v.(time.Time))}
	case KindPointer:
		p := v.v.(Pointer)
		return map[string]any{typeKey: "Pointer", "className": p.ClassName, "objectId": p.ObjectID}
	case KindGeoPoint:
		g := v.v.(GeoPoint)
		return map[string]any{typeKey: "GeoPoint", "latitude": g.Latitude, "longitude": g.Longitude}
	case KindFile:
		f := v.v.(File)
		out := map[string]any{typeKey: "File", "name": f.Name}
		if f.URL != "" {
			out["url"] = f.URL
		}
		return out
	case KindRelation:
		return map[string]any{typeKey: "Relation", "className": v.v.(Relation).ClassName}
	case KindFieldOp:
		op := v.v.(FieldOp)
		out := map[string]any{opKey: string(op.Kind)}
		switch {
		case op.Kind == OpIncrement:
			out["amount"] = op.Operand.Wire()
		case op.Kind.takesObjects():
			out["objects"] = op.Operand.Wire()
		}
		return out
	}
	return nil
}

// FromWire converte uma árvore genérica (como a produzida por json.Unmarshal
// em any) para Value, reconhecendo os discriminadores "__type" e "__op".
// Um "__type" desconhecido resulta em um Object genérico.
func FromWire(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return Number(x), nil
	case float64:
		return Float(x), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := FromWire(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindArray, v: items}, nil
	case map[string]any:
		return fromWireObject(x)
	}
	return Value{}, parseerr.NewDecode(nil, fmt.Sprintf("unsupported wire type %T", raw))
}

func fromWireObject(m map[string]any) (Value, error) {
	if t, ok := m[typeKey].(string); ok {
		switch t {
		case "Date":
			iso, ok := m["iso"].(string)
			if !ok {
				return Value{}, parseerr.NewDecode(nil, "date without iso")
			}
			ts, err := ParseDate(iso)
			if err != nil {
				return Value{}, parseerr.NewDecode(err, "invalid date "+strconv.Quote(iso))
			}
			return Value{kind: KindDate, v: ts}, nil
		case "Pointer":
			className, okC := m["className"].(string)
			objectID, okO := m["objectId"].(string)
			if !okC || !okO {
				return Value{}, parseerr.NewDecode(nil, "pointer without className or objectId")
			}
			return PointerTo(className, objectID), nil
		case "GeoPoint":
			lat, errLat := wireFloat(m["latitude"])
			lon, errLon := wireFloat(m["longitude"])
			if errLat != nil || errLon != nil {
				return Value{}, parseerr.NewDecode(nil, "geo point without numeric coordinates")
			}
			g, err := NewGeoPoint(lat, lon)
			if err != nil {
				return Value{}, parseerr.NewDecode(err, "geo point out of range")
			}
			return Value{kind: KindGeoPoint, v: g}, nil
		case "File":
			name, ok := m["name"].(string)
			if !ok {
				return Value{}, parseerr.NewDecode(nil, "file without name")
			}
			url, _ := m["url"].(string)
			return FileValue(File{Name: name, URL: url}), nil
		case "Relation":
			className, ok := m["className"].(string)
			if !ok {
				return Value{}, parseerr.NewDecode(nil, "relation without className")
			}
			return RelationOf(className), nil
		}
	}

	if op, ok := m[opKey].(string); ok && OpKind(op).valid() {
		return fromWireOp(OpKind(op), m)
	}

	fields := make(map[string]Value, len(m))
	for k, raw := range m {
		v, err := FromWire(raw)
		if err != nil {
			return Value{}, err
		}
		fields[k] = v
	}
	return Value{kind: KindObject, v: fields}, nil
}

func fromWireOp(kind OpKind, m map[string]any) (Value, error) {
	op := FieldOp{Kind: kind}
	switch {
	case kind == OpIncrement:
		amount, err := FromWire(m["amount"])
		if err != nil {
			return Value{}, err
		}
		if amount.kind != KindNumber {
			return Value{}, parseerr.NewDecode(nil, "increment amount must be a number")
		}
		op.Operand = amount
	case kind.takesObjects():
		objects, err := FromWire(m["objects"])
		if err != nil {
			return Value{}, err
		}
		if objects.kind != KindArray {
			return Value{}, parseerr.NewDecode(nil, string(kind)+" objects must be an array")
		}
		op.Operand = objects
	}
	return Op(op), nil
}

func wireFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("not a number: %T", raw)
}
