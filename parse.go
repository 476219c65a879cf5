package etc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ParseJSON resolves name as a JSON file and returns its content. Comments and
// trailing commas are tolerated. An empty name means "conf". A missing or
// malformed file yields an empty Doc.
func (r *Resolver) ParseJSON(name string) Doc {
	if name == "" {
		name = defaultBaseName
	}
	return r.resolveAndParse(JSON, name)
}

// ParseYAML resolves name as a YAML file and returns its content. Names ending in
// .yaml are looked up as such, anything else as .yml; either way the other
// extension is tried as well. An empty name means "conf". A missing or malformed
// file, or one whose document is not a mapping, yields an empty Doc.
func (r *Resolver) ParseYAML(name string) Doc {
	if name == "" {
		name = defaultBaseName
	}
	t := YML
	if strings.HasSuffix(name, ".yaml") {
		t = YAML
	}
	return r.resolveAndParse(t, name)
}

// ParseEnvFile resolves name as a dotenv file and returns its KEY=VALUE pairs.
// The process environment is left untouched. An empty name means ".env".
func (r *Resolver) ParseEnvFile(name string) Doc {
	return r.resolveAndParse(Env, name)
}

// Env resolves name as a dotenv file, loads its variables into the process
// environment and returns them. Variables already set in the environment keep
// their current value. An empty name means ".env".
func (r *Resolver) Env(name string) Doc {
	doc := r.ParseEnvFile(name)
	for k, v := range doc {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, fmt.Sprint(v)); err != nil {
			r.warn("set %s: %v", k, err)
		}
	}
	return doc
}

// ParseDotEnvOnly returns the variables of the dotenv file name that are not yet
// set in the process environment, then unsets every variable the file declares.
//
// The call consumes state: variables owned by the process before the call are
// excluded from the result and removed afterwards, so a second call returns them.
func (r *Resolver) ParseDotEnvOnly(name string) Doc {
	doc := r.ParseEnvFile(name)
	out := make(Doc, len(doc))
	for k, v := range doc {
		if _, ok := os.LookupEnv(k); !ok {
			out[k] = v
		}
	}
	for k := range doc {
		if err := os.Unsetenv(k); err != nil {
			r.warn("unset %s: %v", k, err)
		}
	}
	return out
}

// Directory merges every JSON, then YAML, then dotenv file found directly inside
// dir. Dotenv files are loaded into the process environment like Env does.
// A missing directory yields an empty Doc.
func (r *Resolver) Directory(dir string) Doc {
	if !filepath.IsAbs(dir) {
		cwd, err := r.cwd()
		if err != nil {
			return Doc{}
		}
		dir = filepath.Join(cwd, dir)
	}
	if ok, err := afero.DirExists(r.fs, dir); err != nil || !ok {
		return Doc{}
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(r.fs, dir))
	out := Doc{}
	for _, group := range []struct {
		pattern string
		load    func(p string) Doc
	}{
		{"*.json", func(p string) Doc { return r.parseOrEmpty(JSON, p) }},
		{"*.{yaml,yml}", func(p string) Doc { return r.parseOrEmpty(YAML, p) }},
		{"*.env", func(p string) Doc { return r.Env(p) }},
	} {
		for _, name := range r.glob(fsys, group.pattern) {
			out = Merge(out, group.load(filepath.Join(dir, name)))
		}
	}
	return out
}

func (r *Resolver) glob(fsys fs.FS, pattern string) []string {
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		r.warn("glob %s: %v", pattern, err)
		return nil
	}
	sort.Strings(matches)
	return matches
}

// ReadConfigData resolves name and parses it according to t. Resolution errors are
// returned; parse failures yield an empty Doc. Dotenv files are read without
// touching the process environment.
func (r *Resolver) ReadConfigData(t Type, name string) (Doc, error) {
	p, err := r.FilePath(t, name)
	if err != nil {
		return nil, err
	}
	return r.parseOrEmpty(t, p), nil
}

func (r *Resolver) resolveAndParse(t Type, name string) Doc {
	p, err := r.FilePath(t, name)
	if err != nil {
		r.log.Debug().Err(err).Str("type", string(t)).Str("name", name).Msg("resolve failed")
		return Doc{}
	}
	return r.parseOrEmpty(t, p)
}

func (r *Resolver) parseOrEmpty(t Type, p string) Doc {
	doc, err := r.decodeFile(t, p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.log.Debug().Str("path", p).Msg("config file missing")
		return Doc{}
	case err != nil:
		r.warn("%v, using empty configuration", err)
		return Doc{}
	}
	return doc
}

func (r *Resolver) decodeFile(t Type, p string) (Doc, error) {
	data, err := afero.ReadFile(r.fs, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	doc, err := decode(t, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return doc, nil
}

func decode(t Type, data []byte) (Doc, error) {
	var doc Doc
	switch t {
	case JSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, err
		}
	case YAML, YML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case Env:
		vars, err := godotenv.UnmarshalBytes(literalDollars(data))
		if err != nil {
			return nil, err
		}
		doc = make(Doc, len(vars))
		for k, v := range vars {
			doc[k] = v
		}
	default:
		return nil, t.validate()
	}
	if doc == nil {
		doc = Doc{}
	}
	return normalize(doc).(Doc), nil
}

// literalDollars escapes every '$' in unquoted and double-quoted env values so
// godotenv reads them literally instead of expanding $VAR references.
// Single-quoted values are never expanded and are copied unchanged.
func literalDollars(data []byte) []byte {
	if bytes.IndexByte(data, '$') < 0 {
		return data
	}
	out := make([]byte, 0, len(data)+bytes.Count(data, []byte("$")))
	for i := 0; i < len(data); {
		sep := -1
		for j := i; j < len(data) && data[j] != '\n' && data[j] != '#'; j++ {
			if data[j] == '=' || data[j] == ':' {
				sep = j
				break
			}
		}
		if sep < 0 {
			// blank line or comment
			end := lineEnd(data, i)
			out = append(out, data[i:end]...)
			i = end
			continue
		}

		out = append(out, data[i:sep+1]...)
		i = sep + 1
		for i < len(data) && (data[i] == ' ' || data[i] == '\t') {
			out = append(out, data[i])
			i++
		}
		var quote byte
		if i < len(data) && (data[i] == '\'' || data[i] == '"') {
			quote = data[i]
			out = append(out, quote)
			i++
		}
		for ; i < len(data); i++ {
			c := data[i]
			if quote == 0 && c == '\n' {
				break
			}
			if quote != 0 && c == quote && data[i-1] != '\\' {
				out = append(out, c)
				i++
				break
			}
			if c == '$' && quote != '\'' {
				out = append(out, '\\')
			}
			out = append(out, c)
		}
		end := lineEnd(data, i)
		out = append(out, data[i:end]...)
		i = end
	}
	return out
}

// lineEnd returns the index just past the line feed that ends the line holding i.
func lineEnd(data []byte, i int) int {
	if n := bytes.IndexByte(data[i:], '\n'); n >= 0 {
		return i + n + 1
	}
	return len(data)
}

// normalize turns the map[any]any nodes YAML produces for non-string keys into
// Doc nodes so documents can be merged and re-encoded as JSON.
func normalize(v any) any {
	switch n := v.(type) {
	case map[string]any:
		for k, e := range n {
			n[k] = normalize(e)
		}
		return n
	case map[any]any:
		m := make(Doc, len(n))
		for k, e := range n {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range n {
			n[i] = normalize(e)
		}
		return n
	}
	return v
}
