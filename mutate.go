package etc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// AddConfig merges values into the file name of type t. It refuses to overwrite:
// if any key of values already exists at the top level of the file, ErrConflict is
// returned and the file is left as it was.
func (r *Resolver) AddConfig(t Type, name string, values Doc) error {
	p, err := r.FilePath(t, name)
	if err != nil {
		return err
	}
	current := r.parseOrEmpty(t, p)

	var taken []string
	for k := range values {
		if _, ok := current[k]; ok {
			taken = append(taken, k)
		}
	}
	if len(taken) > 0 {
		sort.Strings(taken)
		return fmt.Errorf("%w: %s in %s", ErrConflict, strings.Join(taken, ", "), p)
	}
	return r.Save(t, p, Merge(current, values))
}

// EditConfig merges values into the file name of type t, overwriting existing keys.
func (r *Resolver) EditConfig(t Type, name string, values Doc) error {
	p, err := r.FilePath(t, name)
	if err != nil {
		return err
	}
	return r.Save(t, p, Merge(r.parseOrEmpty(t, p), values))
}

// DeleteConfig removes the top-level keys from the file name of type t. Keys that
// are not present are ignored.
func (r *Resolver) DeleteConfig(t Type, name string, keys ...string) error {
	p, err := r.FilePath(t, name)
	if err != nil {
		return err
	}
	doc := r.parseOrEmpty(t, p)
	for _, k := range keys {
		delete(doc, k)
	}
	return r.Save(t, p, doc)
}

// Save serializes doc according to t and replaces the file name with it.
//
// JSON is written compactly with a line break after the opening brace and after
// every top-level comma. YAML is a plain dump. Dotenv content is the YAML dump
// with every ": " turned into "=", so only flat documents of simple values
// survive a round trip.
func (r *Resolver) Save(t Type, name string, doc Doc) error {
	p, err := r.FilePath(t, name)
	if err != nil {
		return err
	}
	data, err := encode(t, doc)
	if err != nil {
		return err
	}
	if err := r.ensurePath(p); err != nil {
		return errors.Join(ErrEnsureConfigDir, err)
	}
	if err := r.writeFile(p, data); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, p, err)
	}
	r.log.Debug().Str("path", p).Int("bytes", len(data)).Msg("config saved")
	return nil
}

// CreateConfig makes sure a configuration file exists and returns its path.
//
// The extension of path must be one of .json, .env, .yaml or .yml. An absolute
// path is created as given; when that fails for a path under /etc, the same path
// is tried under ~/etc. A relative path is created under /etc/{project}, falling
// back to ~/etc/{project}. Existing files are left untouched.
func (r *Resolver) CreateConfig(path string) (string, error) {
	if _, err := TypeOf(path); err != nil {
		return "", err
	}

	var primary, rel string
	switch {
	case filepath.IsAbs(path):
		primary = filepath.Clean(path)
		under, err := filepath.Rel(r.etcDir, primary)
		if err == nil && under != ".." && !strings.HasPrefix(under, ".."+string(filepath.Separator)) {
			rel = under
		}
	default:
		project := r.ProjectName()
		if project == "" {
			return "", fmt.Errorf("%w: no project name to place %s under", ErrEnsureConfigDir, path)
		}
		rel = filepath.Join(project, path)
		primary = filepath.Join(r.etcDir, rel)
	}

	err := r.touch(primary)
	if err == nil || rel == "" {
		return primary, err
	}
	home, herr := r.home()
	if herr != nil {
		return "", errors.Join(err, herr)
	}
	fallback := filepath.Join(home, "etc", rel)
	r.warn("cannot create %s (%v), using %s", primary, err, fallback)
	if ferr := r.touch(fallback); ferr != nil {
		return "", errors.Join(err, ferr)
	}
	return fallback, nil
}

func (r *Resolver) touch(p string) error {
	if err := r.ensurePath(p); err != nil {
		return errors.Join(ErrEnsureConfigDir, err)
	}
	if r.isFile(p) {
		return nil
	}
	f, err := r.fs.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	r.notify("created new config at %s", p)
	return nil
}

var (
	ErrInaccessiblePath        = errors.New("inaccessible path")
	ErrCannotCreateDirectories = errors.New("cannot create directories")
)

// ensurePath ensures the directories for a file path exist and the path
// does not already exist as a directory.
func (r *Resolver) ensurePath(p string) error {
	info, err := r.fs.Stat(p)
	switch {
	case err == nil:
		if info.IsDir() {
			return ErrInaccessiblePath
		}
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return ErrInaccessiblePath
	}
	if err := r.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCannotCreateDirectories, err)
	}
	return nil
}

func (r *Resolver) writeFile(p string, data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := r.fs.Stat(p); err == nil {
		perm = info.Mode().Perm()
	}
	if _, ok := r.fs.(*afero.OsFs); ok {
		return renameio.WriteFile(p, data, perm)
	}
	return afero.WriteFile(r.fs, p, data, perm)
}

func encode(t Type, doc Doc) (data []byte, retErr error) {
	// yaml.v3 panics on some unsupported kinds, e.g. funcs.
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("%w as %s: %v", ErrFormat, t, rec)
		}
	}()
	if doc == nil {
		doc = Doc{}
	}

	var err error
	switch t {
	case JSON:
		data, err = encodeJSON(doc)
	case YAML, YML:
		data, err = encodeYAML(doc)
	case Env:
		if len(doc) == 0 {
			return []byte{}, nil
		}
		data, err = encodeYAML(doc)
		data = bytes.ReplaceAll(data, []byte(": "), []byte("="))
	default:
		return nil, t.validate()
	}
	if err != nil {
		return nil, fmt.Errorf("%w as %s: %w", ErrFormat, t, err)
	}
	return data, nil
}

func encodeJSON(doc Doc) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return breakTopLevel(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// breakTopLevel inserts a newline after the opening brace, after each top-level
// comma and before the closing brace of a compact JSON object.
func breakTopLevel(compact []byte) []byte {
	out := make([]byte, 0, len(compact)+len(compact)/8+2)
	depth := 0
	inString, escaped := false, false
	for _, c := range compact {
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			out = append(out, c)
			if depth == 1 {
				out = append(out, '\n')
			}
			continue
		case '}', ']':
			if depth == 1 {
				out = append(out, '\n')
			}
			depth--
		case ',':
			if depth == 1 {
				out = append(out, ',', '\n')
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func encodeYAML(doc Doc) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
