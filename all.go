package etc

// All merges every configuration source into one Doc. Later sources win:
// command-line flags, then the manifest, then conf.yml, then conf.json, and
// finally the nearest .env file, which is also loaded into the process environment.
func (r *Resolver) All() Doc {
	return Merge(r.Argv(), r.Manifest(""), r.ParseYAML(""), r.ParseJSON(""), r.Env(""))
}
