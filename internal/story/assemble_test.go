package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallycap/moments/internal/boundary"
	"github.com/rallycap/moments/internal/contract"
	"github.com/rallycap/moments/internal/partition"
)

func moment(period, startClock, firstPlay int) partition.Moment {
	clock := startClock
	return partition.Moment{
		PlayIDs:        []int{firstPlay, firstPlay + 1},
		Period:         period,
		StartClock:     &clock,
		BoundaryReason: boundary.ReasonScoringPlay,
		Narrative:      "something happened here",
	}
}

func TestAssemble_EmptyInputRefused(t *testing.T) {
	_, err := Assemble(nil)
	require.Error(t, err)
	assert.True(t, IsAssemblyError(err))

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeEmptyInput, ae.Code)
	assert.Equal(t, "cannot assemble from empty list", ae.Message)
}

func TestAssemble_MissingNarrativeRefused(t *testing.T) {
	m := moment(1, 700, 0)
	m.Narrative = ""
	_, err := Assemble([]partition.Moment{m})

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeUnvalidated, ae.Code)
	require.Len(t, ae.Violations, 1)
	assert.Equal(t, contract.CodeNarrativeMissing, ae.Violations[0].Code)
}

func TestAssemble_OverlapRefused(t *testing.T) {
	a := moment(1, 700, 0)
	b := moment(1, 600, 1) // play 1 belongs to both

	_, err := Assemble([]partition.Moment{a, b})
	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrCodeUnvalidated, ae.Code)
	require.NotEmpty(t, ae.Violations)
	assert.Equal(t, contract.CodePlayOverlap, ae.Violations[0].Code)
}

func TestAssemble_DeterministicSort(t *testing.T) {
	early2 := moment(2, 700, 10)
	late1 := moment(1, 50, 6)
	mid1 := moment(1, 400, 4)
	open1 := moment(1, 700, 0)

	out, err := Assemble([]partition.Moment{early2, late1, mid1, open1})
	require.NoError(t, err)

	got := out.Moments()
	require.Len(t, got, 4)
	assert.Equal(t, 0, got[0].FirstPlayID())
	assert.Equal(t, 4, got[1].FirstPlayID())
	assert.Equal(t, 6, got[2].FirstPlayID())
	assert.Equal(t, 10, got[3].FirstPlayID(), "period 2 comes after every period 1 moment")
}

func TestAssemble_UnparsableClockSortsLast(t *testing.T) {
	noClock := moment(1, 0, 8)
	noClock.StartClock = nil
	mid := moment(1, 300, 4)
	open := moment(1, 700, 0)

	out, err := Assemble([]partition.Moment{noClock, mid, open})
	require.NoError(t, err)

	got := out.Moments()
	assert.Equal(t, 8, got[2].FirstPlayID(), "a moment with no parsable clock belongs at the period's end")
}

func TestAssemble_InputNotMutatedAndOutputCopied(t *testing.T) {
	in := []partition.Moment{moment(2, 700, 10), moment(1, 700, 0)}
	out, err := Assemble(in)
	require.NoError(t, err)

	assert.Equal(t, 10, in[0].FirstPlayID(), "assembly sorts a copy, not the caller's slice")

	got := out.Moments()
	got[0].Narrative = "scribbled over"
	assert.Equal(t, "something happened here", out.Moments()[0].Narrative)
	assert.Equal(t, 2, out.Len())
}
