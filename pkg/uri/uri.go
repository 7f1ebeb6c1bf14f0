package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrPathValues reports a mismatch between path placeholders and supplied path values.
var ErrPathValues = errors.New("path placeholder requires exactly one value")

// ErrPathSegment reports a path value that would not stay a single path segment:
// empty, "." or "..".
var ErrPathSegment = errors.New("path value is not a usable path segment")

// Builder assembles an absolute, percent-encoded request URI.
// It is immutable once built by New.
type Builder struct {
	origin string
	path   string
	query  []queryParam
}

type queryParam struct {
	name  string
	value string
}

type settings struct {
	query      []queryParam
	pathValues []string
}

// Option configures a Builder.
type Option func(*settings)

// WithQuery appends a query parameter. Parameters keep the order they are supplied in.
func WithQuery(name, value string) Option {
	return func(s *settings) {
		s.query = append(s.query, queryParam{name: name, value: value})
	}
}

// WithPathValue supplies the value substituted into the path placeholder.
func WithPathValue(value string) Option {
	return func(s *settings) {
		s.pathValues = append(s.pathValues, value)
	}
}

// New validates the origin and path template and returns a Builder.
func New(base, path string, opts ...Option) (*Builder, error) {
	origin, err := parseOrigin(base)
	if err != nil {
		return nil, err
	}

	var s settings
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	resolved, err := expandPath(path, s.pathValues)
	if err != nil {
		return nil, err
	}

	return &Builder{
		origin: origin,
		path:   resolved,
		query:  s.query,
	}, nil
}

// String returns the encoded absolute URI.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.WriteString(b.origin)
	sb.WriteString(b.path)
	for i, p := range b.query {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(escapeQuery(p.name))
		sb.WriteByte('=')
		sb.WriteString(escapeQuery(p.value))
	}
	return sb.String()
}

func parseOrigin(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", fmt.Errorf("base url is empty")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute (scheme and host)", base)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", fmt.Errorf("base url %q must not carry a query or fragment", base)
	}
	return strings.TrimRight(parsed.Scheme+"://"+parsed.Host+parsed.EscapedPath(), "/"), nil
}

// expandPath substitutes the single {placeholder} token, if any, with the escaped value.
func expandPath(path string, values []string) (string, error) {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	open := strings.IndexByte(path, '{')
	if open < 0 {
		if strings.IndexByte(path, '}') >= 0 {
			return "", fmt.Errorf("path %q has an unbalanced placeholder", path)
		}
		if len(values) > 0 {
			return "", fmt.Errorf("path %q has no placeholder but got %d value(s): %w", path, len(values), ErrPathValues)
		}
		return path, nil
	}

	end := strings.IndexByte(path[open:], '}')
	if end < 0 {
		return "", fmt.Errorf("path %q has an unbalanced placeholder", path)
	}
	end += open
	if end == open+1 {
		return "", fmt.Errorf("path %q has an unnamed placeholder", path)
	}
	if strings.ContainsAny(path[end+1:], "{}") {
		return "", fmt.Errorf("path %q has more than one placeholder", path)
	}
	if len(values) != 1 {
		return "", fmt.Errorf("path %q got %d value(s): %w", path, len(values), ErrPathValues)
	}
	switch values[0] {
	case "", ".", "..":
		return "", fmt.Errorf("path %q value %q: %w", path, values[0], ErrPathSegment)
	}

	return path[:open] + url.PathEscape(values[0]) + path[end+1:], nil
}

// escapeQuery encodes a query component with %20 for spaces.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
