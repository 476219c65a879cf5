package etc

import (
	"fmt"
	"path/filepath"
)

// FilePath resolves name to the path of an existing configuration file of type t.
//
// The extension of t is appended when name lacks it. An absolute name is returned
// as-is, except that a YAML name whose file is missing is swapped for the alternate
// extension (.yaml and .yml) when that one exists. A relative name is searched for in:
//  1. the working directory and each of its ancestors up to the filesystem root,
//  2. /etc/{project},
//  3. ~/etc/{project},
//  4. {projectRoot}/etc, {projectRoot}/.etc, {projectRoot}/config, {projectRoot}/.config.
//
// YAML names are tried with both extensions in every location. The first match
// wins. The /etc and ~/etc tiers are skipped when no project name is known.
// FilePath returns ErrNotFound when no location holds the file and
// ErrUnsupportedType for an unknown t.
func (r *Resolver) FilePath(t Type, name string) (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}
	candidates := r.candidates(t, name)

	if filepath.IsAbs(candidates[0]) {
		for _, c := range candidates {
			if r.isFile(c) {
				return c, nil
			}
		}
		return candidates[0], nil
	}

	cwd, err := r.cwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	if p, ok := r.lookUp(cwd, candidates); ok {
		return p, nil
	}
	for _, dir := range r.fallbackDirs(cwd) {
		if p, ok := r.probe(dir, candidates); ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, candidates[0])
}

// candidates returns the normalized file name followed by its alternate YAML
// spelling, if any.
func (r *Resolver) candidates(t Type, name string) []string {
	alt, isYAMLName := alternate(name)
	if !t.isYAML() {
		return []string{t.withExt(name)}
	}
	if !isYAMLName {
		name = t.withExt(name)
		alt, _ = alternate(name)
	}
	return []string{name, alt}
}

func (r *Resolver) fallbackDirs(cwd string) []string {
	var dirs []string
	if project := r.ProjectName(); project != "" {
		dirs = append(dirs, filepath.Join(r.etcDir, project))
		if home, err := r.home(); err == nil && home != "" {
			dirs = append(dirs, filepath.Join(home, "etc", project))
		} else if err != nil {
			r.log.Debug().Err(err).Msg("home directory unavailable, skipping ~/etc")
		}
	}
	root := r.projectRoot(cwd)
	for _, sub := range []string{"etc", ".etc", "config", ".config"} {
		dirs = append(dirs, filepath.Join(root, sub))
	}
	return dirs
}

// lookUp walks from dir to the filesystem root and returns the first existing
// candidate.
func (r *Resolver) lookUp(dir string, candidates []string) (string, bool) {
	for {
		if p, ok := r.probe(dir, candidates); ok {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (r *Resolver) probe(dir string, candidates []string) (string, bool) {
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if r.isFile(p) {
			r.log.Debug().Str("path", p).Msg("config file found")
			return p, true
		}
		r.log.Debug().Str("path", p).Msg("probe miss")
	}
	return "", false
}

func (r *Resolver) isFile(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && !info.IsDir()
}

// ProjectRoot returns the nearest directory, starting at the working directory and
// moving up, that contains the project manifest. When there is none, the working
// directory itself is returned.
func (r *Resolver) ProjectRoot() (string, error) {
	cwd, err := r.cwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return r.projectRoot(cwd), nil
}

func (r *Resolver) projectRoot(cwd string) string {
	if p, ok := r.lookUp(cwd, []string{r.manifest}); ok {
		return filepath.Dir(p)
	}
	return cwd
}

// ProjectName returns the name set with WithProjectName or, failing that, the
// "name" field of the nearest manifest. It is empty when neither is available.
func (r *Resolver) ProjectName() string {
	if r.projectName != "" {
		return r.projectName
	}
	name, _ := r.Manifest("")["name"].(string)
	return name
}

// Manifest reads the project manifest. With an empty dir, the manifest nearest to
// the working directory is read. Otherwise dir (with or without the manifest file
// name at its end) is resolved through the search hierarchy like any JSON file.
// A missing or unreadable manifest yields an empty Doc.
func (r *Resolver) Manifest(dir string) Doc {
	if dir != "" {
		if filepath.Base(dir) != r.manifest {
			dir = filepath.Join(dir, r.manifest)
		}
		return r.ParseJSON(dir)
	}
	cwd, err := r.cwd()
	if err != nil {
		return Doc{}
	}
	p, ok := r.lookUp(cwd, []string{r.manifest})
	if !ok {
		return Doc{}
	}
	return r.parseOrEmpty(JSON, p)
}
