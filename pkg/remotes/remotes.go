package remotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package remotes loads the remote API targets (YAML/JSON) the relay calls.

const (
	// Well-known remote ids.
	IDCatalog     = "catalog"
	IDMarketplace = "marketplace"
)

// Remote describes one outbound API target.
type Remote struct {
	ID             string            `json:"id" yaml:"id"`
	BaseURL        string            `json:"base_url" yaml:"base_url"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-call timeout, zero when the remote leaves it to the client default.
func (r Remote) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// HeadersCopy returns a copy of the static headers safe for callers to extend.
func (r Remote) HeadersCopy() map[string]string {
	out := make(map[string]string, len(r.Headers)+1)
	for k, v := range r.Headers {
		out[k] = v
	}
	return out
}

type configFile struct {
	Remotes []Remote `json:"remotes" yaml:"remotes"`
}

// Registry indexes remotes by id.
type Registry struct {
	mu      sync.RWMutex
	remotes []Remote
	idx     map[string]Remote
}

// NewRegistry builds a registry from already sanitized remotes.
func NewRegistry(remotes ...Remote) (*Registry, error) {
	reg := &Registry{
		remotes: make([]Remote, 0, len(remotes)),
		idx:     make(map[string]Remote, len(remotes)),
	}
	for i, r := range remotes {
		r = sanitizeRemote(r)
		if r.ID == "" {
			return nil, fmt.Errorf("remotes[%d]: id is required", i)
		}
		if _, exists := reg.idx[r.ID]; exists {
			return nil, fmt.Errorf("duplicate remote id %q", r.ID)
		}
		reg.remotes = append(reg.remotes, r)
		reg.idx[r.ID] = r
	}
	return reg, nil
}

// LoadRegistry loads remotes from a YAML/JSON file. Header values may reference
// environment variables as ${NAME}; a header that expands to nothing is an error.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("remotes file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open remotes file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read remotes file: %w", err)
	}

	parsed, err := parseRemotes(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	for i := range parsed.Remotes {
		r, err := expandHeaders(sanitizeRemote(parsed.Remotes[i]), os.Getenv)
		if err != nil {
			return nil, fmt.Errorf("remotes[%d]: %w", i, err)
		}
		parsed.Remotes[i] = r
	}

	return NewRegistry(parsed.Remotes...)
}

func parseRemotes(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var cfg configFile
		if err := d.fn(data, &cfg); err != nil {
			lastErr = fmt.Errorf("decode %s remotes: %w", d.name, err)
			continue
		}
		return cfg, nil
	}
	if lastErr != nil {
		return configFile{}, lastErr
	}
	return configFile{}, errors.New("remotes file format not recognized (expected YAML or JSON)")
}

func sanitizeRemote(r Remote) Remote {
	r.ID = strings.ToLower(strings.TrimSpace(r.ID))
	r.BaseURL = strings.TrimSpace(r.BaseURL)
	if len(r.Headers) > 0 {
		headers := make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			if key := strings.TrimSpace(k); key != "" {
				headers[key] = strings.TrimSpace(v)
			}
		}
		r.Headers = headers
	}
	return r
}

func expandHeaders(r Remote, getenv func(string) string) (Remote, error) {
	for k, v := range r.Headers {
		expanded := strings.TrimSpace(os.Expand(v, getenv))
		if expanded == "" {
			return Remote{}, fmt.Errorf("header %q of remote %q is empty (check %q)", k, r.ID, v)
		}
		r.Headers[k] = expanded
	}
	return r, nil
}

// ByID returns the remote by id.
func (r *Registry) ByID(id string) (Remote, bool) {
	if r == nil {
		return Remote{}, false
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Remote{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	remote, ok := r.idx[id]
	return remote, ok
}

// All returns all configured remotes.
func (r *Registry) All() []Remote {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Remote, len(r.remotes))
	copy(out, r.remotes)
	return out
}

// Resolve returns the remote for id, using fallbackBaseURL when the registry has no
// entry or the entry leaves base_url empty.
func (r *Registry) Resolve(id, fallbackBaseURL string) (Remote, error) {
	remote, ok := r.ByID(id)
	if !ok {
		remote = Remote{ID: strings.ToLower(strings.TrimSpace(id))}
	}
	if remote.BaseURL == "" {
		remote.BaseURL = strings.TrimSpace(fallbackBaseURL)
	}
	if remote.BaseURL == "" {
		return Remote{}, fmt.Errorf("remote %q has no base_url", id)
	}
	return remote, nil
}
