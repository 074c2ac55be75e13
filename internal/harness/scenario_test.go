package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validScenarioYAML = `
name: sample
tree:
  - path: /content
    kind: grove:folder
job:
  kind: relocate
  source: /content/a
  destination: /content/b
  mode: rename
expect:
  state: completed
`

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, validScenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, JobRelocate, s.Job.Kind)
	assert.Equal(t, "completed", s.Expect.State)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, validScenarioYAML+"assertion: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
tree:
  - path: /content
    kind: grove:folder
job:
  kind: relocate
  source: /a
  destination: /b
`,
			want: "name is required",
		},
		{
			name: "empty tree",
			yaml: `
name: x
job:
  kind: relocate
  source: /a
  destination: /b
`,
			want: "tree list is required",
		},
		{
			name: "node without kind",
			yaml: `
name: x
tree:
  - path: /content
job:
  kind: relocate
  source: /a
  destination: /b
`,
			want: "kind is required",
		},
		{
			name: "relocate without destination",
			yaml: `
name: x
tree:
  - path: /content
    kind: grove:folder
job:
  kind: relocate
  source: /a
`,
			want: "source and destination are required",
		},
		{
			name: "setprop without property",
			yaml: `
name: x
tree:
  - path: /content
    kind: grove:folder
job:
  kind: setprop
  base: /content
`,
			want: "base and property are required",
		},
		{
			name: "unknown job kind",
			yaml: `
name: x
tree:
  - path: /content
    kind: grove:folder
job:
  kind: defragment
`,
			want: "unknown job kind",
		},
		{
			name: "acl without privileges",
			yaml: `
name: x
tree:
  - path: /content
    kind: grove:folder
acl:
  - path: /content
job:
  kind: relocate
  source: /a
  destination: /b
`,
			want: "grant or deny is required",
		},
		{
			name: "bad property literal type",
			yaml: `
name: x
tree:
  - path: /content
    kind: grove:folder
    properties:
      p:
        type: decimal
        value: "1"
job:
  kind: relocate
  source: /a
  destination: /b
`,
			want: "unknown value type",
		},
		{
			name: "absent with value",
			yaml: `
name: x
tree:
  - path: /content
    kind: grove:folder
job:
  kind: relocate
  source: /a
  destination: /b
expect:
  properties:
    - path: /content
      key: p
      absent: true
      value: v
`,
			want: "absent excludes value/list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
