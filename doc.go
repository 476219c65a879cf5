// Package etc locates, parses, merges and writes application configuration kept in
// JSON, YAML and dotenv files.
//
// Files are looked up by walking from the working directory to the filesystem
// root, then in /etc/{project}, ~/etc/{project} and the etc, .etc, config and
// .config directories of the project root. The project name and root come from
// the nearest package.json (see WithManifest and WithProjectName).
//
// Reading never fails on bad content: a missing or malformed file parses as an
// empty Doc. Resolving a file that exists nowhere returns ErrNotFound, and
// AddConfig refuses to overwrite existing keys with ErrConflict.
//
// Typical usage:
//
//	r := etc.New(etc.WithProjectName("myapp"))
//	conf := r.ParseYAML("conf")                  // conf.yml or conf.yaml
//	if _, ok := conf["port"]; !ok {
//	    err := r.AddConfig(etc.YAML, "conf", etc.Doc{"port": 8080})
//	    if errors.Is(err, etc.ErrConflict) {
//	        err = r.EditConfig(etc.YAML, "conf", etc.Doc{"port": 8080})
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	}
//	all := r.All()                               // argv, manifest, conf.*, .env
//	fmt.Println(all["name"], all["port"])
//
// For typed access, NewProvider decodes one file into a struct and applies
// environment overrides and optional github.com/ygrebnov/model defaults and
// validation on top. Provider.GetContext passes its context to validation.
package etc
