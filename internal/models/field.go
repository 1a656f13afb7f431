package models

// ValueType describes how a field's values are parsed, formatted and compared
type ValueType string

const (
	TypeString    ValueType = "string"
	TypeInt       ValueType = "int"
	TypeNumber    ValueType = "number"
	TypeBool      ValueType = "bool"
	TypeDate      ValueType = "date"
	TypeTimestamp ValueType = "timestamp"
	TypeTags      ValueType = "tags"
	TypeJSON      ValueType = "json"
	TypeAuto      ValueType = "auto"
)

// IsValid reports whether t is a known value type
func (t ValueType) IsValid() bool {
	switch t {
	case TypeString, TypeInt, TypeNumber, TypeBool, TypeDate, TypeTimestamp, TypeTags, TypeJSON, TypeAuto:
		return true
	}
	return false
}

// FieldInfo describes one field of a bound source
type FieldInfo struct {
	Name     string
	DataType string // source-native type, e.g. "integer" or "TEXT"
	Type     ValueType
	Nullable bool
}
