package etc

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// envSource is where struct env overrides are looked up.
type envSource interface {
	lookup(name string) (string, bool)
	hasPrefix(prefix string) bool
}

type processEnv struct{}

func (processEnv) lookup(name string) (string, bool) { return os.LookupEnv(name) }

func (processEnv) hasPrefix(prefix string) bool {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

// layeredEnv resolves names from the process environment first and falls back
// to the variables of a dotenv file.
type layeredEnv struct {
	file Doc
}

func (l layeredEnv) lookup(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	v, ok := l.file[name]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

func (l layeredEnv) hasPrefix(prefix string) bool {
	for k := range l.file {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return processEnv{}.hasPrefix(prefix)
}

// applyEnv sets the exported fields of the struct behind v from env. Names are
// PREFIX_SEGMENT_..., one segment per nesting level.
func applyEnv(v reflect.Value, prefix string, segments []string, env envSource) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		tag := sf.Tag.Get(envVarTagName)
		if tag == "-" {
			continue
		}
		seg := tag
		if seg == "" {
			seg = toScreamingSnake(sf.Name)
		}
		field := v.Field(i)
		path := append(segments[:len(segments):len(segments)], seg)
		envName := buildEnvName(prefix, path)
		switch field.Kind() {
		case reflect.Struct:
			applyEnv(field, prefix, path, env)
		case reflect.String:
			if s, ok := getString(env, envName); ok && field.CanSet() {
				field.SetString(s)
			}
		case reflect.Bool:
			if b, ok := getBool(env, envName); ok && field.CanSet() {
				field.SetBool(b)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if field.Type() == reflect.TypeOf(time.Duration(0)) {
				if d, ok := getDuration(env, envName); ok && field.CanSet() {
					field.SetInt(int64(d))
				}
			} else if n, ok := getInt(env, envName); ok && field.CanSet() {
				field.SetInt(n)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if n, ok := getInt(env, envName); ok && field.CanSet() && n >= 0 {
				field.SetUint(uint64(n))
			}
		case reflect.Pointer:
			elem := field.Type().Elem()
			switch elem.Kind() {
			case reflect.Struct:
				// Allocate *struct only if there is at least one nested env var present
				// for this segment (e.g., APP_PINNER_*). This avoids allocating when no
				// relevant env vars are set.
				base := buildEnvName(prefix, path) + "_"
				if env.hasPrefix(base) {
					if field.IsNil() && field.CanSet() {
						field.Set(reflect.New(elem))
					}
					applyEnv(field, prefix, path, env)
				}
			case reflect.String:
				if s, ok := getString(env, envName); ok && field.CanSet() {
					if field.IsNil() {
						field.Set(reflect.New(elem))
					}
					field.Elem().SetString(s)
				}
			case reflect.Bool:
				if b, ok := getBool(env, envName); ok && field.CanSet() {
					if field.IsNil() {
						field.Set(reflect.New(elem))
					}
					field.Elem().SetBool(b)
				}
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if elem == reflect.TypeOf(time.Duration(0)) {
					if d, ok := getDuration(env, envName); ok && field.CanSet() {
						if field.IsNil() {
							field.Set(reflect.New(elem))
						}
						field.Elem().SetInt(int64(d))
					}
				} else if n, ok := getInt(env, envName); ok && field.CanSet() {
					if field.IsNil() {
						field.Set(reflect.New(elem))
					}
					field.Elem().SetInt(n)
				}
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				if n, ok := getInt(env, envName); ok && field.CanSet() && n >= 0 {
					if field.IsNil() {
						field.Set(reflect.New(elem))
					}
					field.Elem().SetUint(uint64(n))
				}
			}
		}
	}
}

func buildEnvName(prefix string, segments []string) string {
	switch {
	case prefix == "" && len(segments) == 0:
		return ""
	case prefix == "":
		return strings.Join(segments, "_")
	case len(segments) == 0:
		return prefix
	default:
		return prefix + "_" + strings.Join(segments, "_")
	}
}

func getString(env envSource, name string) (string, bool) {
	return env.lookup(name)
}

func getInt(env envSource, name string) (int64, bool) {
	v, ok := env.lookup(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func getBool(env envSource, name string) (bool, bool) {
	v, ok := env.lookup(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func getDuration(env envSource, name string) (time.Duration, bool) {
	v, ok := env.lookup(name)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return d, true
}

func toScreamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && isBoundary(rune(s[i-1]), r) {
			b.WriteByte('_')
		}
		b.WriteRune(toUpper(r))
	}
	return b.String()
}

func isBoundary(prev, curr rune) bool {
	// Split words only on lower→upper case transitions (e.g., ApiKey → API_KEY).
	// Do NOT split between letters and digits so that ApiKey2FA → API_KEY2FA.
	return (prev >= 'a' && prev <= 'z') && (curr >= 'A' && curr <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

