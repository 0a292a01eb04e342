package vaultedge

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// notationQuery is one parsed notation expression:
//
//	[keeper://] <record uid or title> / <section> / <name>[idx]...
//
// where section is field, custom_field or file. Bracket segments chain
// left to right: a numeric segment indexes the value array, anything else
// keys into the object at the current position. A bare trailing []
// selects the whole field, metadata included.
type notationQuery struct {
	selector string
	section  string
	name     string

	wholeField bool
	indexes    []string
}

func parseNotation(notation string) (*notationQuery, error) {
	expr := strings.TrimPrefix(notation, NotationPrefix)
	parts := strings.SplitN(expr, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, NewNotationError(notation, "expected <record>/<section>/<name>")
	}

	q := &notationQuery{selector: parts[0], section: parts[1]}
	switch q.section {
	case notationSectionField, notationSectionCustomField, notationSectionFile:
	default:
		return nil, NewNotationError(notation, fmt.Sprintf("unknown section %q", q.section))
	}

	name := parts[2]
	bracket := strings.IndexByte(name, '[')
	if bracket < 0 {
		q.name = name
		return q, nil
	}
	q.name = name[:bracket]
	if q.name == "" {
		return nil, NewNotationError(notation, "missing field name before index")
	}
	if q.section == notationSectionFile {
		return nil, NewNotationError(notation, "file references take no index")
	}

	suffix := name[bracket:]
	if suffix == "[]" {
		q.wholeField = true
		return q, nil
	}
	for suffix != "" {
		if suffix[0] != '[' {
			return nil, NewNotationError(notation, fmt.Sprintf("unexpected %q after index", suffix))
		}
		end := strings.IndexByte(suffix, ']')
		if end < 0 {
			return nil, NewNotationError(notation, "unterminated index")
		}
		token := suffix[1:end]
		if token == "" {
			return nil, NewNotationError(notation, "empty index")
		}
		q.indexes = append(q.indexes, token)
		suffix = suffix[end+1:]
	}
	return q, nil
}

// ResolveNotation evaluates a notation expression against an
// already-fetched result. File references resolve to the *File so the
// caller decides whether to download; field references resolve to the
// selected value element(s).
func ResolveNotation(result *SecretsResult, notation string) ([]interface{}, error) {
	q, err := parseNotation(notation)
	if err != nil {
		return nil, err
	}

	record := result.FindByUID(q.selector)
	if record == nil {
		matches := result.FindByTitle(q.selector)
		switch len(matches) {
		case 0:
			return nil, NewNotationError(notation, fmt.Sprintf("no record matches %q", q.selector))
		case 1:
			record = matches[0]
		default:
			return nil, NewNotationError(notation, fmt.Sprintf("%d records match title %q", len(matches), q.selector))
		}
	}

	if q.section == notationSectionFile {
		for _, f := range record.Files {
			if f.UID == q.name || (f.Data != nil && (f.Data.Name == q.name || f.Data.Title == q.name)) {
				return []interface{}{f}, nil
			}
		}
		return nil, NewNotationError(notation, fmt.Sprintf("record %s has no file %q", record.UID, q.name))
	}

	fields := record.Data.Fields
	if q.section == notationSectionCustomField {
		fields = record.Data.Custom
	}
	field := findField(fields, q.name)
	if field == nil {
		return nil, NewNotationError(notation, fmt.Sprintf("record %s has no %s %q", record.UID, q.section, q.name))
	}

	if q.wholeField {
		return []interface{}{field}, nil
	}

	// Walk the bracket chain left to right, starting at the value array.
	var cursor interface{} = field.Value
	for _, token := range q.indexes {
		if idx, err := strconv.Atoi(token); err == nil {
			arr, ok := cursor.([]interface{})
			if !ok {
				return nil, NewNotationError(notation, fmt.Sprintf("field %q: index %d applied to a non-array value", q.name, idx))
			}
			if idx < 0 || idx >= len(arr) {
				return nil, NewNotationError(notation, fmt.Sprintf("field %q has %d values, index %d is out of range", q.name, len(arr), idx))
			}
			cursor = arr[idx]
			continue
		}
		// A key applied directly to the value array addresses its first
		// element, so name[key] is shorthand for name[0][key].
		if arr, ok := cursor.([]interface{}); ok {
			if len(arr) == 0 {
				return nil, NewNotationError(notation, fmt.Sprintf("field %q has no values", q.name))
			}
			cursor = arr[0]
		}
		obj, ok := cursor.(map[string]interface{})
		if !ok {
			return nil, NewNotationError(notation, fmt.Sprintf("field %q: key %q applied to a non-object value", q.name, token))
		}
		inner, ok := obj[token]
		if !ok {
			return nil, NewNotationError(notation, fmt.Sprintf("field %q has no key %q", q.name, token))
		}
		cursor = inner
	}

	if len(q.indexes) == 0 {
		if len(field.Value) == 0 {
			return nil, NewNotationError(notation, fmt.Sprintf("field %q has no values", q.name))
		}
		return []interface{}{field.Value[0]}, nil
	}
	return []interface{}{cursor}, nil
}

// GetNotation fetches all secrets and evaluates the notation expression
// against them.
func (sm *SecretsManager) GetNotation(ctx context.Context, notation string) ([]interface{}, error) {
	result, err := sm.GetSecrets(ctx, nil)
	if err != nil {
		return nil, err
	}
	return ResolveNotation(result, notation)
}

// TryGetNotation is GetNotation that absorbs all failures into an empty
// result, for callers templating many expressions at once.
func (sm *SecretsManager) TryGetNotation(ctx context.Context, notation string) []interface{} {
	values, err := sm.GetNotation(ctx, notation)
	if err != nil {
		sm.log.Debug("notation lookup failed", zap.String("notation", notation), zap.Error(err))
		return []interface{}{}
	}
	return values
}
