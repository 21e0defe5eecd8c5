package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const homeCUE = `package views

view: Home: {
	root: "Application.Root"
	fields: {
		identifier: {kind: "field", select: "identifier"}
		name: {
			kind: "mutable"
			query: {type: "Application.Name", role: "root", current: true}
			select:    "value"
			separator: ", "
		}
		items: {
			kind: "collection"
			query: {
				type: "Application.Item"
				role: "root"
				not_exists: [{type: "Application.ItemDeleted", role: "item"}]
			}
			order_by: {select: "createdAt"}
			fields: {
				hash: {kind: "hash"}
				createdAt: {kind: "field", select: "createdAt"}
			}
		}
	}
}
`

const itemsScenario = `name: items
specs:
  - ../views/home.cue
root: home
facts:
  - alias: home
    type: Application.Root
    fields: { identifier: home }
steps:
  - save:
      - alias: a
        type: Application.Item
        fields: { createdAt: "2024-01-02" }
        predecessors: { root: [home] }
      - alias: b
        type: Application.Item
        fields: { createdAt: "2024-01-01" }
        predecessors: { root: [home] }
    expect:
      - type: order
        path: items
        field: hash
        values: ["@b", "@a"]
assertions:
  - type: count
    path: items
    count: 2
`

const failingScenario = `name: failing
specs:
  - ../views/home.cue
root: home
facts:
  - alias: home
    type: Application.Root
    fields: { identifier: home }
assertions:
  - type: equals
    path: identifier
    value: work
`

// writeFile writes content to dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newWorkspace lays out views/home.cue and an empty scenarios directory.
func newWorkspace(t *testing.T) (specsDir, scenariosDir string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "views/home.cue", homeCUE)
	scenariosDir = filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(scenariosDir, 0o755))
	return filepath.Join(root, "views"), scenariosDir
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
