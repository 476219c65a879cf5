package etc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	modellib "github.com/ygrebnov/model"
	"github.com/ygrebnov/model/validation"
)

type svcDB struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

type svcCfg struct {
	Name  string        `json:"name" yaml:"name" env:"NAME"`
	Count int           `json:"count" yaml:"count" env:"COUNT"`
	Dur   time.Duration `json:"-" yaml:"dur" env:"DUR"`
	DB    svcDB         `json:"db" yaml:"db" env:"DB"`
}

// mCfg exercises defaults+validation through github.com/ygrebnov/model.
type mCfg struct {
	Name string `yaml:"name" env:"NAME" default:"svc" validate:"nonempty"`
	Port int    `yaml:"port" env:"PORT" default:"8080" validate:"min(1),nonzero"`
}

func svcDefaults() *svcCfg { return &svcCfg{Name: "default", Count: 1} }

// withModel binds mCfg with a custom "nonempty" string rule; min and nonzero are
// built in.
func withModel(c *mCfg) (*modellib.Model[mCfg], error) {
	nonempty, err := validation.NewRule[string]("nonempty", func(s string, _ ...string) error {
		if s == "" {
			return errors.New("must not be empty")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return modellib.New(c, modellib.WithRules[mCfg](nonempty))
}

func TestProvider_Get(t *testing.T) {
	type want struct {
		errContains string
		path        string
		cfg         svcCfg
	}

	tests := []struct {
		name  string
		files map[string]string
		env   map[string]string
		typ   Type
		file  string
		want  want
	}{
		{
			name:  "yaml file over defaults",
			files: map[string]string{testWork + "/svc.yml": "name: fromfile\ndur: 2s\ndb:\n  host: h\n  port: 5432\n"},
			typ:   YAML,
			file:  "svc",
			want: want{
				path: testWork + "/svc.yml",
				cfg:  svcCfg{Name: "fromfile", Count: 1, Dur: 2 * time.Second, DB: svcDB{Host: "h", Port: 5432}},
			},
		},
		{
			name:  "env overrides file",
			files: map[string]string{testWork + "/svc.json": `{"name": "fromfile", "count": 7, "db": {"host": "h"}}`},
			env:   map[string]string{"SVC_COUNT": "9", "SVC_DB_HOST": "envhost", "SVC_DUR": "1m"},
			typ:   JSON,
			file:  "svc",
			want: want{
				path: testWork + "/svc.json",
				cfg:  svcCfg{Name: "fromfile", Count: 9, Dur: time.Minute, DB: svcDB{Host: "envhost"}},
			},
		},
		{
			name: "missing file keeps defaults",
			env:  map[string]string{"SVC_NAME": "env"},
			typ:  YAML,
			file: "svc",
			want: want{cfg: svcCfg{Name: "env", Count: 1}},
		},
		{
			name:  "dotenv file is a layer below the process environment",
			files: map[string]string{testRoot + "/.env": "SVC_NAME=dotenv\nSVC_COUNT=3\nSVC_DB_PORT=1\n"},
			env:   map[string]string{"SVC_COUNT": "5"},
			typ:   Env,
			file:  "",
			want: want{
				path: testRoot + "/.env",
				cfg:  svcCfg{Name: "dotenv", Count: 5, DB: svcDB{Port: 1}},
			},
		},
		{
			name: "config path override",
			files: map[string]string{
				testWork + "/svc.yml": "name: local\n",
				"/srv/svc/prod.yml":   "name: prod\n",
			},
			env:  map[string]string{"SVC_CONFIG_PATH": "/srv/svc/prod.yml"},
			typ:  YML,
			file: "svc",
			want: want{
				path: "/srv/svc/prod.yml",
				cfg:  svcCfg{Name: "prod", Count: 1},
			},
		},
		{
			name:  "decode error",
			files: map[string]string{testWork + "/svc.yml": "count: many\n"},
			typ:   YML,
			file:  "svc",
			want:  want{errContains: "decode"},
		},
		{
			name: "unsupported type",
			typ:  Type("ini"),
			file: "svc",
			want: want{errContains: "unsupported config type"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, "SVC_NAME", "SVC_COUNT", "SVC_DUR", "SVC_DB_HOST", "SVC_DB_PORT", "SVC_CONFIG_PATH")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			r, _, _ := memResolver(t, tt.files)
			p := NewProvider[svcCfg](r, tt.typ, tt.file,
				WithEnvPrefix[svcCfg]("SVC"),
				WithDefaultFn(svcDefaults),
			)

			cfg, path, err := p.Get()
			if tt.want.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.want.errContains) {
					t.Fatalf("error = %v, want it to contain %q", err, tt.want.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if path != tt.want.path {
				t.Fatalf("path = %q, want %q", path, tt.want.path)
			}
			if *cfg != tt.want.cfg {
				t.Fatalf("cfg = %+v, want %+v", *cfg, tt.want.cfg)
			}

			again, _, _ := p.Get()
			if again != cfg {
				t.Fatalf("Get must return the same pointer on subsequent calls")
			}
		})
	}
}

func TestProvider_ZeroValueDefault(t *testing.T) {
	unsetEnv(t, "NAME", "COUNT", "DUR", "DB_HOST", "DB_PORT")
	r, _, _ := memResolver(t, map[string]string{testWork + "/svc.yml": "count: 2\n"})
	cfg, _, err := NewProvider[svcCfg](r, YML, "svc").Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "" || cfg.Count != 2 {
		t.Fatalf("cfg = %+v, want zero Name and Count=2", *cfg)
	}
}

func TestProvider_Model(t *testing.T) {
	t.Run("defaults fill zero values then file applies", func(t *testing.T) {
		unsetEnv(t, "MYAPP_NAME", "MYAPP_PORT", "MYAPP_CONFIG_PATH")
		r, _, _ := memResolver(t, map[string]string{testWork + "/app.yml": "port: 9090\n"})
		p := NewProvider[mCfg](r, YML, "app",
			WithEnvPrefix[mCfg]("MYAPP"),
			WithModel[mCfg](withModel),
		)
		cfg, _, err := p.Get()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Name != "svc" {
			t.Fatalf("Name: got %q, want %q (model default should fill zero)", cfg.Name, "svc")
		}
		if cfg.Port != 9090 {
			t.Fatalf("Port: got %d, want %d", cfg.Port, 9090)
		}
	})

	t.Run("factory non-zero default wins over model default", func(t *testing.T) {
		unsetEnv(t, "MYAPP_NAME", "MYAPP_PORT", "MYAPP_CONFIG_PATH")
		r, _, _ := memResolver(t, nil)
		p := NewProvider[mCfg](r, YML, "app",
			WithEnvPrefix[mCfg]("MYAPP"),
			WithDefaultFn(func() *mCfg { return &mCfg{Name: "factory"} }),
			WithModel[mCfg](withModel),
		)
		cfg, _, err := p.Get()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Name != "factory" || cfg.Port != 8080 {
			t.Fatalf("cfg = %+v, want Name=factory Port=8080", *cfg)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		unsetEnv(t, "MYAPP_CONFIG_PATH")
		t.Setenv("MYAPP_NAME", "")
		t.Setenv("MYAPP_PORT", "0")
		r, _, _ := memResolver(t, nil)
		p := NewProvider[mCfg](r, YML, "app",
			WithEnvPrefix[mCfg]("MYAPP"),
			WithModel[mCfg](withModel),
		)
		_, _, err := p.Get()
		var ve *validation.Error
		if !errors.As(err, &ve) {
			t.Fatalf("expected *validation.Error, got %T: %v", err, err)
		}
		msg := ve.Error()
		if !strings.Contains(msg, "nonempty") || !strings.Contains(msg, "nonzero") {
			t.Fatalf("validation error does not mention expected rules: %q", msg)
		}
	})

	t.Run("canceled context stops validation", func(t *testing.T) {
		unsetEnv(t, "MYAPP_NAME", "MYAPP_PORT", "MYAPP_CONFIG_PATH")
		r, _, _ := memResolver(t, nil)
		p := NewProvider[mCfg](r, YML, "app",
			WithEnvPrefix[mCfg]("MYAPP"),
			WithModel[mCfg](withModel),
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := p.GetContext(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want %v", err, context.Canceled)
		}
		// The first result is kept.
		if _, _, err := p.Get(); !errors.Is(err, context.Canceled) {
			t.Fatalf("second call error = %v, want %v", err, context.Canceled)
		}
	})

	t.Run("model init error", func(t *testing.T) {
		boom := errors.New("boom")
		r, _, _ := memResolver(t, nil)
		p := NewProvider[mCfg](r, YML, "app",
			WithModel[mCfg](func(*mCfg) (*modellib.Model[mCfg], error) { return nil, boom }),
		)
		if _, _, err := p.Get(); !errors.Is(err, boom) {
			t.Fatalf("error = %v, want %v", err, boom)
		}
	})
}

func TestProviderOptions_Panics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"empty env prefix", func() { NewProvider(New(), JSON, "svc", WithEnvPrefix[svcCfg]("")) }},
		{"nil default fn", func() { NewProvider(New(), JSON, "svc", WithDefaultFn[svcCfg](nil)) }},
		{"nil model init", func() { NewProvider(New(), JSON, "svc", WithModel[svcCfg](nil)) }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
