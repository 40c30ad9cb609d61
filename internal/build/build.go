package build

// Info describes the running binary. Values are set by the linker in
// release builds.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

type Key struct{}

var InfoKey = Key{}
