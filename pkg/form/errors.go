package form

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formrules/pkg/formdef"
)

// ErrorMapping splits a server error payload into field-level and
// form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrorPayload normalises server error keys (field names, dotted paths or
// JSON pointers such as "/data/farm_size") onto field names. Unknown keys are
// treated as form-level errors so messages are not lost.
func MapErrorPayload(def *formdef.Definition, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		return mapping
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, rawPath := range keys {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		name, formLevel := mapErrorPath(def, rawPath)
		if formLevel {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[name] = append(mapping.Fields[name], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// ApplyServerErrors shows server-side validation errors on their fields and
// moves focus to the first affected field in definition order. Form-level
// messages are returned and kept in FormErrors. The submitting flag is
// cleared.
func (s *Session) ApplyServerErrors(payload map[string][]string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitting = false
	if s.def == nil {
		return nil
	}

	mapping := MapErrorPayload(s.def, payload)
	s.focus = ""
	for _, field := range s.def.Fields {
		messages, ok := mapping.Fields[field.Name]
		if !ok {
			continue
		}
		state := s.states[field.Name]
		state.Valid = false
		state.Message = messages[0]
		state.Rule = "server"
		state.Server = true
		state.ShowError = true
		if s.focus == "" {
			s.focus = field.Name
		}
	}
	for _, message := range mapping.Form {
		s.cfg.logger.Debug("form level server error", zap.String("message", message))
	}
	s.formErrors = mapping.Form
	if len(mapping.Fields) > 0 || len(mapping.Form) > 0 {
		s.status = StatusInvalid
	}
	return append([]string(nil), mapping.Form...)
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(def *formdef.Definition, raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	if def.Has(trimmed) {
		return trimmed, false
	}

	segments := parsePathSegments(trimmed)
	for _, variant := range [][]string{segments, dropWrapperSegments(segments), stripNumericSegments(dropWrapperSegments(segments))} {
		for end := len(variant); end > 0; end-- {
			candidate := strings.Join(variant[:end], ".")
			if def.Has(candidate) {
				return candidate, false
			}
		}
	}
	return "", true
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":     {},
	"request":  {},
	"payload":  {},
	"data":     {},
	"fields":   {},
	"response": {},
	"values":   {},
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
