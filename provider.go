package etc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	modellib "github.com/ygrebnov/model"
	"gopkg.in/yaml.v3"
)

// Provider decodes one resolved configuration file into a value of type T.
//
// A Provider[T] performs the following steps exactly once (it is safe to call Get
// from multiple goroutines):
//  1. Construct a new *T using the factory set via WithDefaultFn (or a zero-value fallback).
//  2. If WithModel is set, bind a model.Model[T] to the same *T and call SetDefaults()
//     to populate zero values using `default` struct tags.
//  3. Resolve the file through the Resolver, honoring ${ENV_PREFIX}_CONFIG_PATH when set.
//     A file that cannot be found is skipped.
//  4. Decode the file over the *T: JSON through `json` tags, YAML through `yaml` tags.
//     Dotenv files are treated as an environment layer below the process environment.
//  5. Apply environment overrides using `env` struct tags (or field name in SCREAMING_SNAKE_CASE).
//  6. If WithModel was set, validate the final object using model.Validate(ctx).
type Provider[T any] struct {
	initOnce  sync.Once
	resolver  *Resolver
	typ       Type
	name      string
	envPrefix string
	path      string
	cfg       *T
	defaultFn func() *T
	initErr   error
	modelInit ModelInit[T]
	model     *modellib.Model[T]
}

// ProviderOption configures a Provider at construction time.
type ProviderOption[T any] func(*Provider[T])

// NewProvider constructs a Provider[T] reading the file name of type t through r.
// If no WithDefaultFn is provided, a zero-value factory is used.
func NewProvider[T any](r *Resolver, t Type, name string, opts ...ProviderOption[T]) *Provider[T] {
	p := &Provider[T]{resolver: r, typ: t, name: name}
	for _, opt := range opts {
		opt(p)
	}
	if p.defaultFn == nil {
		p.defaultFn = func() *T { var t T; return &t }
	}
	return p
}

// WithEnvPrefix sets the prefix used for environment overrides, e.g. "MYAPP".
// When set, ${PREFIX}_CONFIG_PATH replaces the file name given to NewProvider.
// Panics if prefix is empty.
func WithEnvPrefix[T any](prefix string) ProviderOption[T] {
	return func(p *Provider[T]) {
		if prefix == "" {
			panic("etc: WithEnvPrefix: prefix cannot be empty")
		}
		p.envPrefix = prefix
	}
}

// WithDefaultFn registers a factory that returns the base *T before any file or
// environment overrides are applied. Panics if fn is nil.
func WithDefaultFn[T any](fn func() *T) ProviderOption[T] {
	return func(p *Provider[T]) {
		if fn == nil {
			panic("etc: WithDefaultFn: fn cannot be nil")
		}
		p.defaultFn = fn
	}
}

// ModelInit binds a model.Model[T] to the Provider-managed *T.
type ModelInit[T any] func(*T) (*modellib.Model[T], error)

// WithModel enables integration with github.com/ygrebnov/model: SetDefaults() runs
// before the file and environment are applied, Validate(ctx) after.
// Panics if init is nil.
func WithModel[T any](init ModelInit[T]) ProviderOption[T] {
	return func(p *Provider[T]) {
		if init == nil {
			panic("etc: WithModel: init cannot be nil")
		}
		p.modelInit = init
	}
}

// Get initializes and returns the configuration, the path of the file it was read
// from (empty when no file was found) and an initialization error, if any.
func (p *Provider[T]) Get() (*T, string, error) {
	return p.GetContext(context.Background())
}

// GetContext is Get with a context for model validation. Only the context of the
// first call is used; later calls return the stored result.
func (p *Provider[T]) GetContext(ctx context.Context) (*T, string, error) {
	p.initOnce.Do(func() {
		p.initErr = p.init(ctx)
	})
	if p.initErr != nil {
		return nil, "", p.initErr
	}
	return p.cfg, p.path, nil
}

func (p *Provider[T]) init(ctx context.Context) error {
	p.cfg = p.defaultFn()

	if p.modelInit != nil {
		mdl, err := p.modelInit(p.cfg)
		if err != nil {
			return err
		}
		p.model = mdl
		// Defaults only fill zero values, so they go before file and env.
		if err := p.model.SetDefaults(); err != nil {
			return err
		}
	}

	name := p.name
	if p.envPrefix != "" {
		if override := os.Getenv(p.envPrefix + "_CONFIG_PATH"); override != "" {
			name = override
		}
	}

	var env envSource = processEnv{}
	path, err := p.resolver.FilePath(p.typ, name)
	switch {
	case errors.Is(err, ErrNotFound):
		p.resolver.log.Debug().Str("name", name).Msg("no config file, using defaults and environment")
	case err != nil:
		return err
	default:
		p.path = path
		doc := p.resolver.parseOrEmpty(p.typ, path)
		if p.typ == Env {
			env = layeredEnv{file: doc}
		} else if err := decodeInto(p.typ, doc, p.cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}

	applyEnv(reflect.ValueOf(p.cfg), p.envPrefix, nil, env)

	if p.model != nil {
		if err := p.model.Validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// decodeInto re-encodes doc with the codec of t and decodes it over cfg, so the
// struct tags of that codec apply.
func decodeInto(t Type, doc Doc, cfg any) error {
	if t == JSON {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, cfg)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
