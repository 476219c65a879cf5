package etc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ygrebnov/etc/streams"
)

const (
	defaultManifest = "package.json"
	defaultEtcDir   = "/etc"
	defaultBaseName = "conf"
	envVarTagName   = "env"
)

// Exported error categories returned by this package. They are wrapped so callers
// can detect error classes using errors.Is.
//   - ErrUnsupportedType: config type or file extension is not json, yaml, yml or env.
//   - ErrNotFound: no candidate location in the search hierarchy holds the file.
//   - ErrConflict: AddConfig was asked to add a key that already exists.
//   - ErrEnsureConfigDir: failure to create parent directories for a config file.
//   - ErrFormat: failure to serialize a document.
//   - ErrWrite: failure to write the config file to disk.
//   - ErrWatchUnsupported: Watch was called on a non-OS filesystem.
var (
	ErrUnsupportedType  = errors.New("unsupported config type")
	ErrNotFound         = errors.New("config file not found")
	ErrConflict         = errors.New("configuration already exists, use EditConfig to overwrite")
	ErrEnsureConfigDir  = errors.New("ensure config dir")
	ErrFormat           = errors.New("format config")
	ErrWrite            = errors.New("write to config file")
	ErrWatchUnsupported = errors.New("watch requires the OS filesystem")
)

// Doc is an untyped configuration document: a JSON-like tree keyed by strings.
type Doc = map[string]any

// Resolver locates, reads, merges and writes configuration files.
//
// A Resolver holds no configuration data: every call goes back to the filesystem.
// The zero value is not usable, construct one with New.
type Resolver struct {
	fs          afero.Fs
	workDir     string
	homeDir     string
	etcDir      string
	projectName string
	manifest    string
	args        []string
	argsSet     bool
	streams     streams.IOStreams
	log         zerolog.Logger
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// New constructs a Resolver backed by the OS filesystem and applies all given options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		fs:       afero.NewOsFs(),
		etcDir:   defaultEtcDir,
		manifest: defaultManifest,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithFs replaces the filesystem used for every probe, read and write.
// Panics if fs is nil.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		if fs == nil {
			panic("etc: WithFs: fs cannot be nil")
		}
		r.fs = fs
	}
}

// WithWorkDir pins the directory the upward search starts from. By default the
// process working directory is read on every call. Panics if dir is not absolute.
func WithWorkDir(dir string) Option {
	return func(r *Resolver) {
		if !filepath.IsAbs(dir) {
			panic("etc: WithWorkDir: dir must be absolute")
		}
		r.workDir = filepath.Clean(dir)
	}
}

// WithHomeDir overrides the home directory used for the ~/etc tier.
// Panics if dir is not absolute.
func WithHomeDir(dir string) Option {
	return func(r *Resolver) {
		if !filepath.IsAbs(dir) {
			panic("etc: WithHomeDir: dir must be absolute")
		}
		r.homeDir = filepath.Clean(dir)
	}
}

// WithEtcDir overrides the system configuration root (default /etc).
// Panics if dir is not absolute.
func WithEtcDir(dir string) Option {
	return func(r *Resolver) {
		if !filepath.IsAbs(dir) {
			panic("etc: WithEtcDir: dir must be absolute")
		}
		r.etcDir = filepath.Clean(dir)
	}
}

// WithProjectName sets the application name used for the /etc/{name} and
// ~/etc/{name} tiers instead of reading it from the manifest.
// Panics if name is empty.
func WithProjectName(name string) Option {
	return func(r *Resolver) {
		if name == "" {
			panic("etc: WithProjectName: name cannot be empty")
		}
		r.projectName = name
	}
}

// WithManifest sets the file name of the project manifest (default package.json).
// The manifest marks the project root and carries the project name in its "name" field.
// Panics if name is empty.
func WithManifest(name string) Option {
	return func(r *Resolver) {
		if name == "" {
			panic("etc: WithManifest: name cannot be empty")
		}
		r.manifest = name
	}
}

// WithArgs sets the command-line arguments parsed by Argv, without the program name.
// By default os.Args[1:] is used.
func WithArgs(args []string) Option {
	return func(r *Resolver) {
		r.args = append([]string(nil), args...)
		r.argsSet = true
	}
}

// WithStreams wires user-facing message streams: "created" notices go to Out,
// swallowed parse failures are reported on ErrOut.
func WithStreams(s streams.IOStreams) Option {
	return func(r *Resolver) {
		r.streams = s
	}
}

// WithLogger sets the logger receiving debug traces of the search hierarchy.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

func (r *Resolver) cwd() (string, error) {
	if r.workDir != "" {
		return r.workDir, nil
	}
	return os.Getwd()
}

func (r *Resolver) home() (string, error) {
	if r.homeDir != "" {
		return r.homeDir, nil
	}
	return os.UserHomeDir()
}

func (r *Resolver) notify(format string, args ...any) {
	if r.streams != nil && r.streams.Out() != nil {
		fmt.Fprintf(r.streams.Out(), "etc: "+format+"\n", args...)
	}
}

func (r *Resolver) warn(format string, args ...any) {
	if r.streams != nil && r.streams.ErrOut() != nil {
		fmt.Fprintf(r.streams.ErrOut(), "etc: warning: "+format+"\n", args...)
	}
}
