package value

// OpKind é o valor do discriminador "__op".
type OpKind string

const (
	OpIncrement      OpKind = "Increment"
	OpAdd            OpKind = "Add"
	OpAddUnique      OpKind = "AddUnique"
	OpRemove         OpKind = "Remove"
	OpDelete         OpKind = "Delete"
	OpAddRelation    OpKind = "AddRelation"
	OpRemoveRelation OpKind = "RemoveRelation"
)

// FieldOp é uma operação atômica aplicada pelo servidor a um campo.
// Operand é um Number para Increment, um Array para as operações de lista
// e de relação, e Null para Delete.
type FieldOp struct {
	Kind    OpKind
	Operand Value
}

func Increment(amount Value) Value {
	return Op(FieldOp{Kind: OpIncrement, Operand: amount})
}

func Add(objects ...Value) Value {
	return Op(FieldOp{Kind: OpAdd, Operand: Array(objects...)})
}

func AddUnique(objects ...Value) Value {
	return Op(FieldOp{Kind: OpAddUnique, Operand: Array(objects...)})
}

func Remove(objects ...Value) Value {
	return Op(FieldOp{Kind: OpRemove, Operand: Array(objects...)})
}

// Delete remove o campo do objeto no servidor.
func Delete() Value {
	return Op(FieldOp{Kind: OpDelete})
}

func AddRelation(targets ...Pointer) Value {
	return Op(FieldOp{Kind: OpAddRelation, Operand: pointerArray(targets)})
}

func RemoveRelation(targets ...Pointer) Value {
	return Op(FieldOp{Kind: OpRemoveRelation, Operand: pointerArray(targets)})
}

func pointerArray(ps []Pointer) Value {
	items := make([]Value, len(ps))
	for i, p := range ps {
		items[i] = PointerValue(p)
	}
	return Array(items...)
}

func (k OpKind) valid() bool {
	switch k {
	case OpIncrement, OpAdd, OpAddUnique, OpRemove, OpDelete, OpAddRelation, OpRemoveRelation:
		return true
	}
	return false
}

func (k OpKind) takesObjects() bool {
	switch k {
	case OpAdd, OpAddUnique, OpRemove, OpAddRelation, OpRemoveRelation:
		return true
	}
	return false
}
