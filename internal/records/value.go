package records

import "fmt"

// ValueKind is the type of a field value.
type ValueKind int

const (
	KindString ValueKind = iota + 1
	KindBit
	KindDef
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBit:
		return "bit"
	case KindDef:
		return "def"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a typed field value.
type Value struct {
	Kind ValueKind
	str  string
	bit  bool
}

// StringValue creates a string field value.
func StringValue(s string) Value {
	return Value{Kind: KindString, str: s}
}

// BitValue creates a bit field value.
func BitValue(b bool) Value {
	return Value{Kind: KindBit, bit: b}
}

// DefValue creates a reference to the definition named name.
func DefValue(name string) Value {
	return Value{Kind: KindDef, str: name}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBit:
		if v.bit {
			return "1"
		}
		return "0"
	case KindString:
		return fmt.Sprintf("%q", v.str)
	default:
		return v.str
	}
}
