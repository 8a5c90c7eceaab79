package query

import (
	"errors"
	"fmt"

	"github.com/raywall/parse-toolkit/parseerr"
	"github.com/raywall/parse-toolkit/value"
)

// Erros de construção. São sempre entregues encapsulados em um
// *parseerr.Error do tipo Precondition.
var (
	ErrEmptyField          = errors.New("query: constraint field is empty")
	ErrInvalidOperand      = errors.New("query: operand not supported by operator")
	ErrConflictingEquality = errors.New("query: equality cannot be combined with other operators on the same field")
	ErrConflictingOperator = errors.New("query: operator already set on the same field with a different operand")
	ErrNegativePagination  = errors.New("query: limit and skip must be non-negative")
	ErrEmptyClassName      = errors.New("query: class name is empty")
	ErrUnknownOperator     = errors.New("query: unknown operator")
)

// Operator identifica o tipo de condição de uma Constraint.
type Operator int

const (
	EqualTo Operator = iota
	NotEqualTo
	GreaterThan
	GreaterOrEqual
	LessThan
	LessOrEqual
	ContainedIn
	NotContainedIn
	ContainsAll
	Exists
	DoesNotExist
	StartsWith
	EndsWith
	Contains
	MatchesRegex
	// FullText é a busca textual restrita a um campo ($text dentro do campo).
	FullText
)

var operatorNames = map[Operator]string{
	EqualTo:        "EqualTo",
	NotEqualTo:     "NotEqualTo",
	GreaterThan:    "GreaterThan",
	GreaterOrEqual: "GreaterOrEqual",
	LessThan:       "LessThan",
	LessOrEqual:    "LessOrEqual",
	ContainedIn:    "ContainedIn",
	NotContainedIn: "NotContainedIn",
	ContainsAll:    "ContainsAll",
	Exists:         "Exists",
	DoesNotExist:   "DoesNotExist",
	StartsWith:     "StartsWith",
	EndsWith:       "EndsWith",
	Contains:       "Contains",
	MatchesRegex:   "MatchesRegex",
	FullText:       "FullText",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Token devolve o operador de fio. EqualTo não tem token (valor simples).
func (o Operator) Token() string {
	switch o {
	case NotEqualTo:
		return "$ne"
	case GreaterThan:
		return "$gt"
	case GreaterOrEqual:
		return "$gte"
	case LessThan:
		return "$lt"
	case LessOrEqual:
		return "$lte"
	case ContainedIn:
		return "$in"
	case NotContainedIn:
		return "$nin"
	case ContainsAll:
		return "$all"
	case Exists, DoesNotExist:
		return "$exists"
	case StartsWith, EndsWith, Contains, MatchesRegex:
		return "$regex"
	case FullText:
		return "$text"
	}
	return ""
}

// Constraint é uma condição sobre um campo. Options só é usado por
// MatchesRegex ($options); Search só por FullText.
type Constraint struct {
	Field    string
	Operator Operator
	Operand  value.Value
	Options  string
	Search   *TextSearch
}

// Validate verifica a combinação operador/operando sem tocar a rede.
func (c Constraint) Validate() error {
	if c.Field == "" {
		return parseerr.NewPrecondition(ErrEmptyField)
	}
	k := c.Operand.Kind()
	bad := func() error {
		return parseerr.NewPrecondition(fmt.Errorf("%w: %s on %q with %s", ErrInvalidOperand, c.Operator, c.Field, k))
	}

	switch c.Operator {
	case EqualTo, NotEqualTo:
		if k == value.KindFieldOp {
			return bad()
		}
	case GreaterThan, GreaterOrEqual, LessThan, LessOrEqual:
		if k != value.KindNumber && k != value.KindString && k != value.KindDate {
			return bad()
		}
	case ContainedIn, NotContainedIn, ContainsAll:
		if k != value.KindArray {
			return bad()
		}
	case Exists, DoesNotExist:
		if k != value.KindNull {
			return bad()
		}
	case StartsWith, EndsWith, Contains, MatchesRegex:
		if k != value.KindString {
			return bad()
		}
	case FullText:
		if c.Search == nil || c.Search.Term == "" {
			return bad()
		}
	default:
		return parseerr.NewPrecondition(fmt.Errorf("%w: %d", ErrUnknownOperator, int(c.Operator)))
	}
	return nil
}

// SortKey é uma chave de ordenação; a ordem de inserção é preservada.
type SortKey struct {
	Field      string
	Descending bool
}

// TextSearch descreve $text.$search. Os ponteiros nulos são omitidos.
type TextSearch struct {
	Term               string
	Language           string
	CaseSensitive      *bool
	DiacriticSensitive *bool
}

// Related restringe o resultado aos membros da relação Key de Object.
type Related struct {
	Object value.Pointer
	Key    string
}

// Spec é o estado completo de uma consulta. É inerte: nada é enviado até
// uma operação terminal do Query ser chamada.
type Spec struct {
	ClassName   string
	Constraints []Constraint
	Order       []SortKey
	// Limit nil usa o padrão do servidor.
	Limit   *int
	Skip    int
	Keys    []string
	Include []string
	Search  *TextSearch
	Related *Related
}

// Clone devolve uma cópia independente (slices copiados).
func (s Spec) Clone() Spec {
	cp := s
	cp.Constraints = append([]Constraint(nil), s.Constraints...)
	cp.Order = append([]SortKey(nil), s.Order...)
	cp.Keys = append([]string(nil), s.Keys...)
	cp.Include = append([]string(nil), s.Include...)
	if s.Limit != nil {
		n := *s.Limit
		cp.Limit = &n
	}
	return cp
}

func (s Spec) validate() error {
	if s.ClassName == "" {
		return parseerr.NewPrecondition(ErrEmptyClassName)
	}
	if s.Skip < 0 || (s.Limit != nil && *s.Limit < 0) {
		return parseerr.NewPrecondition(ErrNegativePagination)
	}
	for _, c := range s.Constraints {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if s.Search != nil && s.Search.Term == "" {
		return parseerr.NewPrecondition(fmt.Errorf("%w: empty search term", ErrInvalidOperand))
	}
	return nil
}
