package etc

import (
	"errors"
	"testing"
)

const manifestPath = testRoot + "/package.json"

func TestResolver_FilePath(t *testing.T) {
	manifest := `{"name": "app"}`

	tests := []struct {
		name      string
		files     map[string]string
		opts      []Option
		typ       Type
		file      string
		want      string
		wantErrIs error
	}{
		{
			name:  "working directory match",
			files: map[string]string{testWork + "/conf.json": "{}"},
			typ:   JSON,
			file:  "conf",
			want:  testWork + "/conf.json",
		},
		{
			name: "nearest ancestor wins over farther ancestor and fallbacks",
			files: map[string]string{
				manifestPath:                  manifest,
				testRoot + "/src/conf.yml":    "a: 1",
				testRoot + "/conf.yml":        "a: 2",
				testEtc + "/app/conf.yml":     "a: 3",
				testRoot + "/config/conf.yml": "a: 4",
			},
			typ:  YML,
			file: "conf",
			want: testRoot + "/src/conf.yml",
		},
		{
			name: "alternate yaml extension in working directory",
			files: map[string]string{
				testWork + "/conf.yml": "a: 1",
			},
			typ:  YAML,
			file: "conf",
			want: testWork + "/conf.yml",
		},
		{
			name: "extension already present is kept",
			files: map[string]string{
				testWork + "/settings.yaml": "a: 1",
			},
			typ:  YML,
			file: "settings.yaml",
			want: testWork + "/settings.yaml",
		},
		{
			name: "etc/{project} before home etc",
			files: map[string]string{
				manifestPath:                    manifest,
				testEtc + "/app/conf.json":      "{}",
				testHome + "/etc/app/conf.json": "{}",
			},
			typ:  JSON,
			file: "conf.json",
			want: testEtc + "/app/conf.json",
		},
		{
			name: "home etc when /etc has nothing",
			files: map[string]string{
				manifestPath:                   manifest,
				testHome + "/etc/app/conf.yml": "a: 1",
			},
			typ:  YAML,
			file: "conf",
			want: testHome + "/etc/app/conf.yml",
		},
		{
			name: "project name from option",
			files: map[string]string{
				testEtc + "/other/.env": "A=1",
			},
			opts: []Option{WithProjectName("other")},
			typ:  Env,
			file: "",
			want: testEtc + "/other/.env",
		},
		{
			name: "project subdirectories in order",
			files: map[string]string{
				manifestPath:                   manifest,
				testRoot + "/.etc/conf.json":   "{}",
				testRoot + "/config/conf.json": "{}",
			},
			typ:  JSON,
			file: "conf",
			want: testRoot + "/.etc/conf.json",
		},
		{
			name: "dot config is last",
			files: map[string]string{
				manifestPath:                   manifest,
				testRoot + "/.config/conf.yml": "a: 1",
			},
			typ:  YML,
			file: "conf",
			want: testRoot + "/.config/conf.yml",
		},
		{
			name: "relative name with subdirectory",
			files: map[string]string{
				testRoot + "/config/.env": "A=1",
			},
			typ:  Env,
			file: "config/.env",
			want: testRoot + "/config/.env",
		},
		{
			name: "without project name the etc tiers are skipped",
			files: map[string]string{
				testEtc + "/app/conf.json": "{}",
			},
			typ:       JSON,
			file:      "conf",
			wantErrIs: ErrNotFound,
		},
		{
			name:  "absolute path returned as is even when missing",
			files: map[string]string{},
			typ:   JSON,
			file:  "/srv/app/a",
			want:  "/srv/app/a.json",
		},
		{
			name:  "absolute yaml path swapped to existing alternate",
			files: map[string]string{"/srv/app/conf.yml": "a: 1"},
			typ:   YAML,
			file:  "/srv/app/conf.yaml",
			want:  "/srv/app/conf.yml",
		},
		{
			name:  "absolute yaml path kept when neither exists",
			files: map[string]string{},
			typ:   YML,
			file:  "/srv/app/conf.yml",
			want:  "/srv/app/conf.yml",
		},
		{
			name:      "not found",
			files:     map[string]string{manifestPath: manifest},
			typ:       JSON,
			file:      "missing",
			wantErrIs: ErrNotFound,
		},
		{
			name:      "unsupported type",
			typ:       Type("toml"),
			file:      "conf",
			wantErrIs: ErrUnsupportedType,
		},
		{
			name:  "directories do not count as files",
			files: map[string]string{testWork + "/conf.json/keep": "", testRoot + "/conf.json": "{}"},
			typ:   JSON,
			file:  "conf",
			want:  testRoot + "/conf.json",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := memResolver(t, tt.files, tt.opts...)
			got, err := r.FilePath(tt.typ, tt.file)
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("error = %v, want errors.Is %v", err, tt.wantErrIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("FilePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ProjectRootAndName(t *testing.T) {
	t.Run("manifest found upward", func(t *testing.T) {
		r, _, _ := memResolver(t, map[string]string{manifestPath: `{"name": "app", "version": "1.0.0"}`})
		root, err := r.ProjectRoot()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if root != testRoot {
			t.Fatalf("ProjectRoot = %q, want %q", root, testRoot)
		}
		if got := r.ProjectName(); got != "app" {
			t.Fatalf("ProjectName = %q, want %q", got, "app")
		}
		if got := r.Manifest("")["version"]; got != "1.0.0" {
			t.Fatalf("Manifest version = %v, want 1.0.0", got)
		}
	})

	t.Run("no manifest falls back to working directory", func(t *testing.T) {
		r, _, _ := memResolver(t, nil)
		root, err := r.ProjectRoot()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if root != testWork {
			t.Fatalf("ProjectRoot = %q, want %q", root, testWork)
		}
		if got := r.ProjectName(); got != "" {
			t.Fatalf("ProjectName = %q, want empty", got)
		}
		if got := r.Manifest(""); len(got) != 0 {
			t.Fatalf("Manifest = %v, want empty", got)
		}
	})

	t.Run("option wins over manifest", func(t *testing.T) {
		r, _, _ := memResolver(t, map[string]string{manifestPath: `{"name": "app"}`}, WithProjectName("svc"))
		if got := r.ProjectName(); got != "svc" {
			t.Fatalf("ProjectName = %q, want %q", got, "svc")
		}
	})

	t.Run("custom manifest name", func(t *testing.T) {
		r, _, _ := memResolver(t, map[string]string{testRoot + "/app.json": `{"name": "custom"}`}, WithManifest("app.json"))
		if got := r.ProjectName(); got != "custom" {
			t.Fatalf("ProjectName = %q, want %q", got, "custom")
		}
	})

	t.Run("manifest of another directory", func(t *testing.T) {
		r, _, _ := memResolver(t, map[string]string{
			manifestPath:                  `{"name": "app"}`,
			"/opt/tools/lib/package.json": `{"name": "lib"}`,
		})
		if got := r.Manifest("/opt/tools/lib")["name"]; got != "lib" {
			t.Fatalf("Manifest(dir) name = %v, want lib", got)
		}
		if got := r.Manifest("/opt/tools/lib/package.json")["name"]; got != "lib" {
			t.Fatalf("Manifest(file) name = %v, want lib", got)
		}
		if got := r.Manifest("/opt/nowhere"); len(got) != 0 {
			t.Fatalf("Manifest(missing) = %v, want empty", got)
		}
	})
}
