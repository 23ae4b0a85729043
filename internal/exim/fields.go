package exim

import (
	"encoding/json"
	"fmt"
)

// FieldInfo is one named field value of an exported record
type FieldInfo struct {
	Name  string
	Value any
}

// Exportable records enumerate their fields in a fixed order
type Exportable interface {
	Fields() []FieldInfo
}

// Importable records rebuild themselves from values in Fields order.
// FromValues is called on the zero value.
type Importable[T any] interface {
	FromValues(values []any) (T, error)
}

// Describer is optionally implemented by records to label progress
type Describer interface {
	Describe() string
}

// ColumnType is the storage type of a column
type ColumnType int

const (
	TypeInt64 ColumnType = iota
	TypeInt32
	TypeBool
	TypeString
	TypeBytes
	TypeDouble
)

var columnTypeNames = map[ColumnType]string{
	TypeInt64:  "int64",
	TypeInt32:  "int32",
	TypeBool:   "bool",
	TypeString: "string",
	TypeBytes:  "bytes",
	TypeDouble: "double",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// MarshalJSON writes the type name
func (t ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads a type name
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range columnTypeNames {
		if v == name {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown column type %q", name)
}

// Column is one named, typed column of a columnar file
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// ColumnsOf derives the ordered columns of a record
func ColumnsOf(r Exportable) ([]Column, error) {
	fields := r.Fields()
	cols := make([]Column, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		t, err := typeOf(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		cols[i] = Column{Name: f.Name, Type: t}
	}
	return cols, nil
}

func typeOf(v any) (ColumnType, error) {
	switch v.(type) {
	case int64, int:
		return TypeInt64, nil
	case int32:
		return TypeInt32, nil
	case bool:
		return TypeBool, nil
	case string:
		return TypeString, nil
	case []byte:
		return TypeBytes, nil
	case float64:
		return TypeDouble, nil
	default:
		return 0, fmt.Errorf("unsupported field type %T", v)
	}
}

// Scan copies values into dest pointers, in order. A nil value leaves the
// destination at its zero value.
func Scan(values []any, dest ...any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("expected %d values, got %d", len(dest), len(values))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if err := assign(dest[i], v); err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, v any) error {
	switch d := dest.(type) {
	case *int64:
		switch x := v.(type) {
		case int64:
			*d = x
		case int32:
			*d = int64(x)
		case int:
			*d = int64(x)
		default:
			return fmt.Errorf("cannot assign %T to int64", v)
		}
	case *int32:
		switch x := v.(type) {
		case int32:
			*d = x
		default:
			return fmt.Errorf("cannot assign %T to int32", v)
		}
	case *bool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot assign %T to bool", v)
		}
		*d = x
	case *string:
		switch x := v.(type) {
		case string:
			*d = x
		case []byte:
			*d = string(x)
		default:
			return fmt.Errorf("cannot assign %T to string", v)
		}
	case *[]byte:
		switch x := v.(type) {
		case []byte:
			*d = x
		case string:
			*d = []byte(x)
		default:
			return fmt.Errorf("cannot assign %T to []byte", v)
		}
	case *float64:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("cannot assign %T to float64", v)
		}
		*d = x
	default:
		return fmt.Errorf("unsupported destination %T", dest)
	}
	return nil
}
