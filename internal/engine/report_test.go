package engine

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Render(t *testing.T) {
	r := &Report{
		Process: "folder-relocation",
		Token:   "tok-0001",
		State:   ProcessAborted,
		Steps: []StepReport{
			{Name: "validate-acls", Status: StepCompleted, Succeeded: 4},
			{
				Name:      "move-nodes",
				Status:    StepAborted,
				Succeeded: 2,
				Failures: []Failure{
					{Target: "/content/a/x", Err: errors.New("conflict"), Attempts: 15},
				},
				Err: errors.New("PRECONDITION_FAILED: 1 item(s) failed validation"),
			},
			{Name: "remove-source", Status: StepSkipped},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))

	want := `Folder Relocation [tok-0001]
state: aborted
step 1: Validate Acls - completed (succeeded=4 failed=0)
step 2: Move Nodes - aborted (succeeded=2 failed=1)
  error: PRECONDITION_FAILED: 1 item(s) failed validation
  failed /content/a/x after 15 attempt(s): conflict
step 3: Remove Source - skipped (succeeded=0 failed=0)
`
	assert.Equal(t, want, buf.String())
}

func TestReport_RenderIsDeterministic(t *testing.T) {
	r := &Report{Process: "p", Token: "t", State: ProcessCompleted,
		Steps: []StepReport{{Name: "s", Status: StepCompleted, Succeeded: 1}}}

	var a, b bytes.Buffer
	require.NoError(t, r.Render(&a))
	require.NoError(t, r.Render(&b))
	assert.Equal(t, a.String(), b.String())
}

func TestReport_Totals(t *testing.T) {
	r := &Report{Steps: []StepReport{
		{Succeeded: 3},
		{Succeeded: 2, Failures: make([]Failure, 2)},
	}}
	assert.Equal(t, 5, r.TotalSucceeded())
	assert.Equal(t, 2, r.TotalFailed())
}
