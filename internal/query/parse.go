package query

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/models"
)

// ParsedQuery is user input split into its field, operator and value parts
type ParsedQuery struct {
	Text  string // the whole input, trimmed
	Spec  *fieldspec.FieldSpec
	Op    models.FilterOperator
	HasOp bool
	Value string // text after the operator
}

type opText struct {
	text string
	op   models.FilterOperator
}

// opAliases are accepted spellings of operators beyond their canonical form
var opAliases = []opText{
	{text: "==", op: models.OpEqual},
	{text: "<>", op: models.OpNotEqual},
}

// ParseQuery recognizes the longest field name or display name prefixing
// text, then the longest operator of that field prefixing the rest
func ParseQuery(text string, registry *fieldspec.Registry) ParsedQuery {
	q := ParsedQuery{Text: strings.TrimSpace(text)}
	if q.Text == "" || registry == nil {
		return q
	}
	bestLen := 0
	for _, spec := range registry.All() {
		for _, name := range []string{spec.DisplayName, spec.Field} {
			if len(name) > bestLen && hasPrefixFold(q.Text, name) && fieldBoundary(q.Text[len(name):]) {
				q.Spec = spec
				bestLen = len(name)
			}
		}
	}
	if q.Spec == nil {
		return q
	}

	rest := strings.TrimLeftFunc(q.Text[bestLen:], unicode.IsSpace)

	var candidates []opText
	for _, op := range q.Spec.Ops {
		candidates = append(candidates, opText{text: string(op), op: op})
	}
	for _, alias := range opAliases {
		if q.Spec.SupportsOperator(alias.op) {
			candidates = append(candidates, alias)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].text) > len(candidates[j].text)
	})

	for _, c := range candidates {
		if !hasPrefixFold(rest, c.text) {
			continue
		}
		after := rest[len(c.text):]
		if isWordOperator(c.text) && !fieldBoundary(after) {
			continue
		}
		q.Op = c.op
		q.HasOp = true
		q.Value = strings.TrimLeftFunc(after, unicode.IsSpace)
		break
	}
	return q
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// fieldBoundary reports whether rest starts where a name may end
func fieldBoundary(rest string) bool {
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return unicode.IsSpace(r) || strings.ContainsRune("=!<>", r)
}

func isWordOperator(op string) bool {
	for _, r := range op {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}
