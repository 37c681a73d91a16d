package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			out, err := Run(context.Background(), sc)
			require.NoError(t, err)

			for _, failure := range Check(out) {
				assert.NoError(t, failure)
			}
			for _, p := range Principles() {
				assert.NoError(t, p.Check(out), "principle %s", p.Name)
			}

			if sc.Golden {
				summary, err := Summary(out)
				require.NoError(t, err)
				g := goldie.New(t)
				g.Assert(t, sc.Name, summary)
			}
		})
	}
}

func TestRunIsRepeatable(t *testing.T) {
	sc, err := LoadScenario("testdata/scenarios/01_lead_changes.yaml")
	require.NoError(t, err)

	a, err := Run(context.Background(), sc)
	require.NoError(t, err)
	b, err := Run(context.Background(), sc)
	require.NoError(t, err)

	// Fresh databases each time, so both runs publish version 1 with the
	// same canonical content.
	require.NotNil(t, a.Result.Version)
	require.NotNil(t, b.Result.Version)
	assert.Equal(t, a.Result.Version.PayloadHash, b.Result.Version.PayloadHash)
	assert.Equal(t, a.Payload, b.Payload)
}
