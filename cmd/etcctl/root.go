package main

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ygrebnov/etc"
	"github.com/ygrebnov/etc/streams"
)

// settings are read from ETCCTL_* variables first; flags given on the command
// line replace them.
type settings struct {
	WorkDir  string `env:"WORKDIR"`
	HomeDir  string `env:"HOME_DIR"`
	EtcDir   string `env:"ETC_DIR"`
	Project  string `env:"PROJECT"`
	Manifest string `env:"MANIFEST"`
	Type     string `env:"TYPE"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func loadSettings() (settings, error) {
	var s settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: "ETCCTL_"}); err != nil {
		return s, fmt.Errorf("read ETCCTL_* environment: %w", err)
	}
	return s, nil
}

type app struct {
	io       streams.IOStreams
	settings settings
	log      zerolog.Logger
}

func newRootCmd(io streams.IOStreams) *cobra.Command {
	a := &app{io: io, log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "etcctl",
		Short: "Locate, read and edit configuration files",
		Long: `etcctl resolves configuration files the same way applications using the
etc package do: the working directory and its ancestors first, then
/etc/{project}, ~/etc/{project} and the etc, .etc, config and .config
directories of the project root.

The file type is taken from the extension of the name unless --type is given.
Documents are printed as JSON.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.SetIn(io.In())
	cmd.SetOut(io.Out())
	cmd.SetErr(io.ErrOut())

	pf := cmd.PersistentFlags()
	pf.String("workdir", "", "directory the search starts from (default: current directory)")
	pf.String("home-dir", "", "home directory used for ~/etc/{project}")
	pf.String("etc-dir", "", "system configuration root (default: /etc)")
	pf.String("project", "", "project name (default: name field of the manifest)")
	pf.String("manifest", "", "project manifest file name (default: package.json)")
	pf.StringP("type", "t", "", "config type: json, yaml, yml or env")
	pf.String("log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		a.pathCmd(),
		a.getCmd(),
		a.addCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.createCmd(),
		a.dirCmd(),
		a.allCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	overrideFromFlags(cmd.Flags(), map[string]*string{
		"workdir":   &s.WorkDir,
		"home-dir":  &s.HomeDir,
		"etc-dir":   &s.EtcDir,
		"project":   &s.Project,
		"manifest":  &s.Manifest,
		"type":      &s.Type,
		"log-level": &s.LogLevel,
	})

	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", s.LogLevel, err)
	}
	a.settings = s
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: a.io.ErrOut(), NoColor: true}).
		Level(lvl).
		With().Timestamp().Logger()
	return nil
}

func overrideFromFlags(fs *pflag.FlagSet, dst map[string]*string) {
	for name, p := range dst {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*p = f.Value.String()
		}
	}
}

// resolver builds an etc.Resolver from the current settings. Library notices
// and warnings are routed to the logger so stdout carries only results.
func (a *app) resolver(extra ...etc.Option) (*etc.Resolver, error) {
	s := a.settings
	opts := []etc.Option{
		etc.WithLogger(a.log),
		etc.WithStreams(streams.Zerolog(a.log)),
	}
	dirs := []struct {
		value string
		opt   func(string) etc.Option
	}{
		{s.WorkDir, etc.WithWorkDir},
		{s.HomeDir, etc.WithHomeDir},
		{s.EtcDir, etc.WithEtcDir},
	}
	for _, d := range dirs {
		if d.value == "" {
			continue
		}
		abs, err := filepath.Abs(d.value)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", d.value, err)
		}
		opts = append(opts, d.opt(abs))
	}
	if s.Project != "" {
		opts = append(opts, etc.WithProjectName(s.Project))
	}
	if s.Manifest != "" {
		opts = append(opts, etc.WithManifest(s.Manifest))
	}
	return etc.New(append(opts, extra...)...), nil
}

// typeFor returns the --type setting or, when unset, the type implied by the
// extension of name.
func (a *app) typeFor(name string) (etc.Type, error) {
	if a.settings.Type != "" {
		return etc.ParseType(a.settings.Type)
	}
	return etc.TypeOf(name)
}
