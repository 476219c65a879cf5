package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ygrebnov/etc"
)

func (a *app) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <name>",
		Short: "Print the path a config name resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := a.target(args[0])
			if err != nil {
				return err
			}
			p, err := r.FilePath(t, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.io.Out(), p)
			return err
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name> [key]",
		Short: "Print a config file, or one dotted key of it",
		Example: `  etcctl get conf.yml
  etcctl get conf.json db.host`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := a.target(args[0])
			if err != nil {
				return err
			}
			doc, err := r.ReadConfigData(t, args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return a.printJSON(doc)
			}
			v, ok := lookupKey(doc, args[1])
			if !ok {
				return fmt.Errorf("key %q not found in %s", args[1], args[0])
			}
			return a.printJSON(v)
		},
	}
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <key=value>...",
		Short: "Add keys to a config file, failing if any of them exists",
		Long: `Add keys to a config file. Values are read as YAML scalars, so 8080 is a
number, true is a boolean and [a, b] is a list. The command fails without
touching the file when one of the keys is already present; use edit to
overwrite.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(args, (*etc.Resolver).AddConfig)
		},
	}
}

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <name> <key=value>...",
		Short: "Set keys of a config file, overwriting existing values",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(args, (*etc.Resolver).EditConfig)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name> <key>...",
		Short: "Remove top-level keys from a config file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, t, err := a.target(args[0])
			if err != nil {
				return err
			}
			return r.DeleteConfig(t, args[0], args[1:]...)
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <path>",
		Short: "Create an empty config file under /etc/{project} or ~/etc/{project}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			p, err := r.CreateConfig(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.io.Out(), p)
			return err
		},
	}
}

func (a *app) dirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dir <directory>",
		Short: "Merge every json, yaml, yml and env file of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			return a.printJSON(r.Directory(args[0]))
		},
	}
}

func (a *app) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all [-- args...]",
		Short: "Merge arguments, manifest, conf.yml, conf.json and .env",
		Long: `Merge the default sources the way an application calling All would see
them. Arguments after -- stand in for the application's command line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver(etc.WithArgs(args))
			if err != nil {
				return err
			}
			return a.printJSON(r.All())
		},
	}
}

func (a *app) target(name string) (*etc.Resolver, etc.Type, error) {
	t, err := a.typeFor(name)
	if err != nil {
		return nil, "", err
	}
	r, err := a.resolver()
	if err != nil {
		return nil, "", err
	}
	return r, t, nil
}

func (a *app) mutate(args []string, op func(*etc.Resolver, etc.Type, string, etc.Doc) error) error {
	values, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	r, t, err := a.target(args[0])
	if err != nil {
		return err
	}
	return op(r, t, args[0], values)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.io.Out())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
