package etc

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/pflag"
)

var (
	numberRe      = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)
	leadingZeroRe = regexp.MustCompile(`^-?0\d`)
)

// Argv returns the command-line flags of the hosting process as a Doc. Positional
// arguments and the program name are not part of the result. See ParseArgs for
// the accepted syntax.
func (r *Resolver) Argv() Doc {
	args := r.args
	if !r.argsSet && len(os.Args) > 1 {
		args = os.Args[1:]
	}
	return ParseArgs(args)
}

// ParseArgs turns undeclared command-line flags into a Doc:
//
//	--name=value, --name value   name: value
//	--flag                       flag: true
//	--no-flag                    flag: false
//	-abc                         a: true, b: true, c: true
//	-n value, -n5, -n=5          n: value
//	--db.host=x                  db: {host: x}
//	--max-conn=3                 max-conn: 3, maxConn: 3
//
// Numeric values become numbers and "true"/"false" become booleans. A flag given
// more than once collects its values into an array. Parsing stops at "--".
func ParseArgs(args []string) Doc {
	out := Doc{}
	set := func(key string, v any) {
		setArg(out, key, v)
		if alias := camelCase(key); alias != key {
			setArg(out, alias, v)
		}
	}
	next := func(i int) (string, bool) {
		if i+1 < len(args) && !isFlag(args[i+1]) && args[i+1] != "--" {
			return args[i+1], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return out
		case strings.HasPrefix(a, "--") && len(a) > 2:
			key := a[2:]
			if k, v, ok := strings.Cut(key, "="); ok {
				set(k, convertArg(v))
				continue
			}
			if strings.HasPrefix(key, "no-") && len(key) > 3 {
				set(key[3:], false)
				continue
			}
			if v, ok := next(i); ok {
				set(key, convertArg(v))
				i++
				continue
			}
			set(key, true)
		case isFlag(a):
			letters := []rune(a[1:])
			if attachedShort(out, letters) {
				continue
			}
			last := string(letters[len(letters)-1])
			if v, ok := next(i); ok {
				setArg(out, last, convertArg(v))
				i++
				continue
			}
			setArg(out, last, true)
		}
	}
	return out
}

// FlagSetArgv returns the flags of a parsed pflag set that were set on the
// command line, typed after their declarations.
func FlagSetArgv(fs *pflag.FlagSet) Doc {
	out := Doc{}
	fs.Visit(func(f *pflag.Flag) {
		setArg(out, f.Name, flagValue(f))
	})
	return out
}

func flagValue(f *pflag.Flag) any {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		items := sv.GetSlice()
		vals := make([]any, len(items))
		for i, s := range items {
			vals[i] = s
		}
		return vals
	}
	switch t := f.Value.Type(); {
	case t == "string":
		return f.Value.String()
	case t == "bool":
		if b, err := strconv.ParseBool(f.Value.String()); err == nil {
			return b
		}
	case strings.HasPrefix(t, "int"), strings.HasPrefix(t, "uint"), strings.HasPrefix(t, "float"):
		return convertArg(f.Value.String())
	}
	return f.Value.String()
}

// attachedShort sets the letters of a short cluster such as -abc or -abn5. Every
// letter is a boolean flag until the rest of the cluster is a number, starts with
// "=" or starts with another non-word character; that rest becomes the value of
// the letter before it. It reports whether such a value was found, otherwise the
// last letter is left unset for the caller.
func attachedShort(out Doc, letters []rune) bool {
	for j, l := range letters[:len(letters)-1] {
		rest := string(letters[j+1:])
		switch {
		case letters[j+1] == '=':
			setArg(out, string(l), convertArg(string(letters[j+2:])))
			return true
		case numberRe.MatchString(rest) || !isWordRune(letters[j+1]):
			setArg(out, string(l), convertArg(rest))
			return true
		}
		setArg(out, string(l), true)
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// camelCase converts the dash-separated words of every dotted segment of key:
// "db.max-conn" becomes "db.maxConn".
func camelCase(key string) string {
	if !strings.Contains(key, "-") {
		return key
	}
	segs := strings.Split(key, ".")
	for i, seg := range segs {
		words := strings.Split(seg, "-")
		var b strings.Builder
		b.WriteString(words[0])
		for _, w := range words[1:] {
			if w == "" {
				continue
			}
			r := []rune(w)
			b.WriteRune(unicode.ToUpper(r[0]))
			b.WriteString(string(r[1:]))
		}
		segs[i] = b.String()
	}
	return strings.Join(segs, ".")
}

func isFlag(s string) bool {
	return len(s) > 1 && s[0] == '-' && !numberRe.MatchString(s)
}

func convertArg(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if !numberRe.MatchString(s) || leadingZeroRe.MatchString(s) {
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// setArg stores v under a dotted key, nesting a Doc per segment. A repeated key
// turns the stored value into an array.
func setArg(out Doc, key string, v any) {
	parts := strings.Split(key, ".")
	m := out
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			child = Doc{}
			m[p] = child
		}
		m = child
	}
	last := parts[len(parts)-1]
	switch prev := m[last].(type) {
	case nil:
		m[last] = v
	case []any:
		m[last] = append(prev, v)
	default:
		m[last] = []any{prev, v}
	}
}
