package etc

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Type is a configuration file format tag. It controls the extension appended to
// bare file names and the codec used to read and write the file.
type Type string

const (
	JSON Type = "json"
	YAML Type = "yaml"
	YML  Type = "yml"
	Env  Type = "env"
)

// ParseType converts a tag such as "yaml" or ".env" into a Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.TrimPrefix(strings.ToLower(s), "."))
	if err := t.validate(); err != nil {
		return "", err
	}
	return t, nil
}

// TypeOf returns the Type matching the extension of path.
func TypeOf(path string) (Type, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedType, path)
	}
	return ParseType(ext)
}

// Ext returns the file extension of t, including the leading dot.
func (t Type) Ext() string { return "." + string(t) }

func (t Type) isYAML() bool { return t == YAML || t == YML }

func (t Type) validate() error {
	switch t {
	case JSON, YAML, YML, Env:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, string(t))
}

// withExt appends the extension of t to name unless name already carries it.
func (t Type) withExt(name string) string {
	if strings.HasSuffix(name, t.Ext()) {
		return name
	}
	return name + t.Ext()
}

// alternate swaps .yaml and .yml. ok is false for names without a YAML extension.
func alternate(name string) (string, bool) {
	switch {
	case strings.HasSuffix(name, ".yaml"):
		return strings.TrimSuffix(name, ".yaml") + ".yml", true
	case strings.HasSuffix(name, ".yml"):
		return strings.TrimSuffix(name, ".yml") + ".yaml", true
	}
	return "", false
}
