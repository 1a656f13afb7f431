package fieldspec

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/jsonb"
	"github.com/rebelice/lazyfilter/internal/models"
)

// BlankText is displayed in place of nil or empty values
const BlankText = "[blank]"

const maxJSONWidth = 60

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Config configures one field spec. Zero values fall back to the registry
// defaults, then to values derived from the bound source.
type Config struct {
	Field          string
	DisplayName    string
	ValueType      models.ValueType
	Ops            []models.FilterOperator
	EnableValues   *bool
	ForceSelection bool
	Values         []any
	Example        string
	ValueRenderer  func(v any) string
	ValueParser    func(text string, op models.FilterOperator) (any, error)
}

// FieldSpec describes one filterable field. It is immutable once built.
type FieldSpec struct {
	Field          string
	DisplayName    string
	ValueType      models.ValueType
	Ops            []models.FilterOperator
	EnableValues   bool
	ForceSelection bool
	Values         []any
	Example        string
	ValueRenderer  func(v any) string
	ValueParser    func(text string, op models.FilterOperator) (any, error)
}

func newFieldSpec(cfg Config, info *models.FieldInfo) (*FieldSpec, error) {
	field := strings.TrimSpace(cfg.Field)
	if field == "" {
		return nil, models.ConfigErrorf("field spec requires a field name")
	}

	vt := cfg.ValueType
	if vt == "" && info != nil {
		vt = info.Type
		if vt == "" {
			vt = ValueTypeFromDataType(info.DataType)
		}
	}
	if vt == "" {
		vt = models.TypeAuto
	}
	if !vt.IsValid() {
		return nil, models.ConfigErrorf("field %s has unknown value type %q", field, vt)
	}

	ops := cfg.Ops
	if len(ops) == 0 {
		ops = DefaultOperators(vt)
	}
	for _, op := range ops {
		if !op.IsValid() {
			return nil, models.ConfigErrorf("field %s has unknown operator %q", field, op)
		}
	}

	enableValues := vt != models.TypeJSON && vt != models.TypeNumber && vt != models.TypeTimestamp
	if cfg.EnableValues != nil {
		enableValues = *cfg.EnableValues
	}

	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = Humanize(field)
	}

	return &FieldSpec{
		Field:          field,
		DisplayName:    displayName,
		ValueType:      vt,
		Ops:            slices.Clone(ops),
		EnableValues:   enableValues,
		ForceSelection: cfg.ForceSelection,
		Values:         slices.Clone(cfg.Values),
		Example:        cfg.Example,
		ValueRenderer:  cfg.ValueRenderer,
		ValueParser:    cfg.ValueParser,
	}, nil
}

// SupportsOperator reports whether op may be used on this field
func (s *FieldSpec) SupportsOperator(op models.FilterOperator) bool {
	return slices.Contains(s.Ops, op)
}

// SupportsSuggestions reports whether values should be suggested for op
func (s *FieldSpec) SupportsSuggestions(op models.FilterOperator) bool {
	return s.EnableValues && slices.Contains(suggestionOps, op)
}

// ExampleText returns a sample value shown to the user
func (s *FieldSpec) ExampleText() string {
	if s.Example != "" {
		return s.Example
	}
	switch s.ValueType {
	case models.TypeInt:
		return "100"
	case models.TypeNumber:
		return "1.5"
	case models.TypeBool:
		return "true"
	case models.TypeDate:
		return time.Now().Format(dateLayout)
	case models.TypeTimestamp:
		return time.Now().Format(timestampLayout)
	default:
		return "value"
	}
}

// ParseValue converts user text to a typed value for op
func (s *FieldSpec) ParseValue(text string, op models.FilterOperator) (any, error) {
	if s.ValueParser != nil {
		return s.ValueParser(text, op)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == BlankText {
		return nil, nil
	}

	// partial matches are always textual
	switch op {
	case models.OpLike, models.OpNotLike, models.OpBegins, models.OpEnds:
		return text, nil
	}

	var (
		v   any
		err error
	)
	switch s.ValueType {
	case models.TypeInt:
		v, err = strconv.ParseInt(trimmed, 10, 64)
	case models.TypeNumber:
		v, err = cast.ToFloat64E(trimmed)
	case models.TypeBool:
		v, err = strconv.ParseBool(strings.ToLower(trimmed))
	case models.TypeDate:
		v, err = time.Parse(dateLayout, trimmed)
	case models.TypeTimestamp:
		v, err = cast.ToTimeE(trimmed)
	default:
		return text, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q for %s: %w", s.ValueType, text, s.DisplayName, err)
	}
	return v, nil
}

// FormatValue renders a value for display
func (s *FieldSpec) FormatValue(v any) string {
	if s.ValueRenderer != nil {
		return s.ValueRenderer(v)
	}
	return FormatValue(s.ValueType, v)
}

// FormatValue renders a value of type t for display
func FormatValue(t models.ValueType, v any) string {
	if v == nil {
		return BlankText
	}
	if t == models.TypeJSON {
		if s, err := jsonb.Compact(v); err == nil {
			return jsonb.Truncate(s, maxJSONWidth)
		}
	}

	switch x := v.(type) {
	case time.Time:
		if t == models.TypeDate {
			return x.Format(dateLayout)
		}
		return x.Format(timestampLayout)
	case string:
		if x == "" {
			return BlankText
		}
		return x
	}

	if models.IsSequence(v) {
		parts := make([]string, 0)
		for _, item := range models.ToSlice(v) {
			parts = append(parts, FormatValue(t, item))
		}
		return strings.Join(parts, ", ")
	}

	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// Humanize turns a field name such as "order_id" or "orderId" into "Order Id"
func Humanize(field string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}

	runes := []rune(field)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
		}
		cur = append(cur, r)
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
