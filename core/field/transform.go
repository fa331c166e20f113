package field

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	reversePrefix = "<-"
	manySuffix    = "[]"
	tagsKeyword   = "tags"
)

var scalarKeywords = map[string]ScalarType{
	"text":     TypeText,
	"textarea": TypeTextarea,
	"richtext": TypeRichText,
	"number":   TypeNumber,
	"date":     TypeDate,
	"email":    TypeEmail,
	"checkbox": TypeCheckbox,
	"json":     TypeJSON,
}

// Transform compiles one type string. It accepts any name and any type string.
//
// Precedence, first match wins:
//
//	<-coll[.field]  reverse relation
//	coll[]          relationship (many); tags[] is an option set
//	A | B           option set
//	keyword         scalar; tags is an option set
//	coll            relationship (single)
func Transform(name, typ string) Field {
	if rest, ok := strings.CutPrefix(typ, reversePrefix); ok {
		target, source, _ := strings.Cut(rest, ".")
		return ReverseRelation{Name: name, RelationTo: target, SourceField: source}
	}

	if target, ok := strings.CutSuffix(typ, manySuffix); ok {
		if target == tagsKeyword {
			return tags(name)
		}
		return Relationship{Name: name, RelationTo: target, Cardinality: Many}
	}

	if strings.Contains(typ, "|") {
		return OptionSet{Name: name, Cardinality: Single, Options: ParseOptions(typ)}
	}

	if st, ok := scalarKeywords[typ]; ok {
		return Scalar{Name: name, Type: st}
	}
	if typ == tagsKeyword {
		return tags(name)
	}

	return Relationship{Name: name, RelationTo: typ, Cardinality: Single}
}

// tags options are filled in by the hosting application.
func tags(name string) OptionSet {
	return OptionSet{Name: name, Cardinality: Many, Options: []Option{}}
}

// ParseOptions splits a pipe-separated option list. If " | " occurs anywhere
// it is the separator for the whole string, otherwise a bare "|" is.
func ParseOptions(typ string) []Option {
	sep := "|"
	if strings.Contains(typ, " | ") {
		sep = " | "
	}

	parts := strings.Split(typ, sep)
	options := make([]Option, 0, len(parts))
	for _, p := range parts {
		label := strings.TrimSpace(p)
		options = append(options, Option{Label: label, Value: Slugify(label)})
	}
	return options
}

// Slugify lowercases s and replaces every run of whitespace with a hyphen.
// Bytes that are not valid UTF-8 are copied unchanged.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(s[i])
			inSpace = false
			i++
			continue
		}
		i += size

		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
