package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, "ok.yaml", `
name: sample
game:
  id: g
  plays:
    - score: {side: HOME, points: 2}
    - quiet: 3
expect:
  moments: 1
`)
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "sample", sc.Name)
	assert.Len(t, sc.Game.Plays, 2)
	assert.Equal(t, 1, sc.Expect.Moments)
}

func TestLoadScenarioRejections(t *testing.T) {
	cases := map[string]string{
		"no name": `
game:
  id: g
  plays:
    - quiet: 1
`,
		"no game id": `
name: s
game:
  plays:
    - quiet: 1
`,
		"no plays": `
name: s
game:
  id: g
`,
		"doc and plays": `
name: s
game:
  id: g
  doc: '{}'
  plays:
    - quiet: 1
`,
		"bad side": `
name: s
game:
  id: g
  plays:
    - score: {side: LEFT, points: 2}
`,
		"two directives in one step": `
name: s
game:
  id: g
  plays:
    - {quiet: 1, play: steal}
`,
		"empty step": `
name: s
game:
  id: g
  plays:
    - {}
`,
		"stage expectation missing status": `
name: s
game:
  id: g
  plays:
    - quiet: 1
expect:
  stages:
    - {stage: NORMALIZE_PBP}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, "bad.yaml", body))
			require.Error(t, err)
		})
	}
}

func TestLoadScenarioBadYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "bad.yaml", "name: [unclosed"))
	require.Error(t, err)
}

func TestLoadScenariosDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := `
name: dup
game:
  id: g
  plays:
    - quiet: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(body), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(body), 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario name")
}

func TestLoadScenariosEmptyDir(t *testing.T) {
	_, err := LoadScenarios(t.TempDir())
	require.Error(t, err)
}
