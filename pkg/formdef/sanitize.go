package formdef

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// maxDecodePasses bounds entity decoding of nested encodings.
const maxDecodePasses = 4

// sanitizeText reduces a user-facing string to plain text. Entities are
// decoded (nested encodings included) before markup is stripped, so encoded
// tags are removed as tags. The result is unescaped text for messages and
// terminal output and must be escaped again before it is embedded in HTML.
func sanitizeText(raw string) string {
	decoded := raw
	for i := 0; i < maxDecodePasses; i++ {
		next := html.UnescapeString(decoded)
		if next == decoded {
			break
		}
		decoded = next
	}
	trimmed := strings.TrimSpace(decoded)
	if trimmed == "" {
		return ""
	}
	cleaned := textSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
