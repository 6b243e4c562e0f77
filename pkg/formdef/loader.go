package formdef

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// LoaderOptions configures how a Loader resolves sources.
type LoaderOptions struct {
	// FileSystem backs SourceKindFS sources.
	FileSystem fs.FS

	// HTTPClient enables URL sources. Nil disables them unless
	// AllowHTTPFallback is set.
	HTTPClient *http.Client

	// AllowHTTPFallback uses a default client when HTTPClient is nil.
	AllowHTTPFallback bool

	// RequestTimeout caps remote fetch durations.
	RequestTimeout time.Duration

	// Parse options applied to every loaded document.
	Parse []ParseOption
}

// LoaderOption mutates LoaderOptions prior to construction.
type LoaderOption func(*LoaderOptions)

// WithFileSystem injects an fs.FS implementation for SourceFromFS paths.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.FileSystem = files
	}
}

// WithHTTPClient injects a custom HTTP client for remote definitions.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables HTTP loading with a default client.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

// WithParseOptions forwards options to Parse.
func WithParseOptions(options ...ParseOption) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.Parse = append(opts.Parse, options...)
	}
}

// Loader fetches and parses form definitions from files, fs.FS entries or
// HTTP endpoints.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
	parse   []ParseOption
}

// NewLoader constructs a Loader.
func NewLoader(options ...LoaderOption) *Loader {
	cfg := LoaderOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var client *http.Client
	switch {
	case cfg.HTTPClient != nil:
		clone := *cfg.HTTPClient
		if cfg.RequestTimeout > 0 && clone.Timeout == 0 {
			clone.Timeout = cfg.RequestTimeout
		}
		client = &clone
	case cfg.AllowHTTPFallback:
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Loader{
		fs:      cfg.FileSystem,
		http:    client,
		timeout: cfg.RequestTimeout,
		parse:   cfg.Parse,
	}
}

// LoadBytes fetches the raw document for src.
func (l *Loader) LoadBytes(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("formdef loader: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch src.Kind() {
	case SourceKindFile:
		data, err := os.ReadFile(src.Location())
		if err != nil {
			return nil, fmt.Errorf("formdef loader: read %s: %w", src.Location(), err)
		}
		return data, nil
	case SourceKindFS:
		if l.fs == nil {
			return nil, errors.New("formdef loader: filesystem is not configured")
		}
		data, err := fs.ReadFile(l.fs, src.Location())
		if err != nil {
			return nil, fmt.Errorf("formdef loader: read %s: %w", src.Location(), err)
		}
		return data, nil
	case SourceKindURL:
		if l.http == nil {
			return nil, errors.New("formdef loader: http support disabled")
		}
		return l.fetch(ctx, src.Location())
	default:
		return nil, fmt.Errorf("formdef loader: unsupported source kind %q", src.Kind())
	}
}

// Load fetches and parses the definition behind src.
func (l *Loader) Load(ctx context.Context, src Source) (*Definition, error) {
	data, err := l.LoadBytes(ctx, src)
	if err != nil {
		return nil, err
	}
	opts := append([]ParseOption{WithSourceName(src.Location())}, l.parse...)
	return Parse(data, opts...)
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("formdef loader: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("formdef loader: fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("formdef loader: fetch %s: unexpected status %d", location, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("formdef loader: read body: %w", err)
	}
	return data, nil
}
