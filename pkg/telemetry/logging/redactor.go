package logging

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"mercator-hq/restconnector/pkg/config"
)

// Redactor scrubs credentials from log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternBasicAuth   = "basic_auth"
	PatternURLUserInfo = "url_userinfo"
	PatternQuerySecret = "query_secret"
	PatternAPIKey      = "api_key"
	PatternPassword    = "password"
)

// NewRedactor creates a new Redactor with default and custom patterns.
// Invalid custom patterns are skipped; config validation reports them.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}
	r.addDefaultPatterns()

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// addDefaultPatterns adds built-in redaction patterns. Order matters: the
// header schemes run before the generic key patterns.
func (r *Redactor) addDefaultPatterns() {
	defaults := []struct {
		name        string
		regex       string
		replacement string
	}{
		{
			name:        PatternBearerToken,
			regex:       `(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},
		{
			name:        PatternBasicAuth,
			regex:       `(?i)basic\s+[a-zA-Z0-9+/]+=*`,
			replacement: "Basic ***",
		},
		{
			name:        PatternURLUserInfo,
			regex:       `(https?://)[^/\s:@]+:[^/\s@]+@`,
			replacement: "${1}***@",
		},
		{
			name:        PatternQuerySecret,
			regex:       `(?i)([?&](?:api[-_]?key|access[-_]?token|token|secret|password|sig|signature)=)[^&\s#]+`,
			replacement: "${1}***",
		},
		{
			name:        PatternAPIKey,
			regex:       `(sk-[a-zA-Z0-9]{8,}|(?i:api[-_]?key)[:=]\s*[a-zA-Z0-9\-_]+)`,
			replacement: "api_key=***",
		},
		{
			name:        PatternPassword,
			regex:       `(?i)(password|passwd|pwd)[:=]\s*[^\s&]+`,
			replacement: "$1=***",
		},
	}

	for _, p := range defaults {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
}

// RedactString redacts credentials from a string value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// RedactArgs redacts credentials from variadic log arguments.
// Args are in the form: key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if r == nil || len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		key, _ := redacted[i-1].(string)
		redacted[i] = r.Redact(key, redacted[i])
	}

	return redacted
}

// Redact returns value with credentials removed. Values under sensitive
// keys are masked entirely; maps, header sets and slices are walked.
func (r *Redactor) Redact(key string, value any) any {
	if r == nil {
		return value
	}
	if key != "" && isSensitiveKey(key) {
		return maskValue(value)
	}

	switch v := value.(type) {
	case string:
		return r.RedactString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = r.Redact(k, item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if isSensitiveKey(k) {
				out[k] = "***"
				continue
			}
			out[k] = r.RedactString(item)
		}
		return out
	case http.Header:
		out := make(http.Header, len(v))
		for k, items := range v {
			masked := make([]string, len(items))
			for i, item := range items {
				if isSensitiveKey(k) {
					masked[i] = "***"
				} else {
					masked[i] = r.RedactString(item)
				}
			}
			out[k] = masked
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.Redact("", item)
		}
		return out
	case error:
		return r.RedactString(v.Error())
	default:
		return value
	}
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey", "api-key",
	"authorization", "proxy-authorization",
	"cookie", "set-cookie",
	"private_key", "privatekey",
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskValue redacts a sensitive value completely, keeping empty and nil
// values visible.
func maskValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return ""
		}
		return "***"
	default:
		return "***"
	}
}

// Patterns returns the names of the active patterns.
func (r *Redactor) Patterns() []string {
	names := make([]string, 0, len(r.patterns))
	for _, p := range r.patterns {
		names = append(names, p.name)
	}
	sort.Strings(names)
	return names
}
