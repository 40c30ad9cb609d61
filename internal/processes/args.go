package processes

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DefaultArgs passes the writable configuration to the embedded app.
var DefaultArgs = []string{"--config", "{{ .ConfigPath }}"}

// ArgsData is the value argument templates are executed against.
type ArgsData struct {
	Executable string
	WorkingDir string
	ConfigPath string
	Mode       string
}

// RenderArgs executes every argument as a text/template with the sprig
// function map. Arguments without template actions are returned unchanged.
func RenderArgs(args []string, data ArgsData) ([]string, error) {
	rendered := make([]string, 0, len(args))
	for i, arg := range args {
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).
			Funcs(sprig.TxtFuncMap()).
			Option("missingkey=error").
			Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("parse argument %d %q: %w", i, arg, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render argument %d %q: %w", i, arg, err)
		}
		rendered = append(rendered, buf.String())
	}
	return rendered, nil
}
