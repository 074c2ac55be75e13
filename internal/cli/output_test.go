package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/engine"
)

func sampleEngineReport() *engine.Report {
	return &engine.Report{
		Process: "folder-relocation",
		Token:   "tok-0001",
		State:   engine.ProcessAborted,
		Steps: []engine.StepReport{
			{Name: "validate-acls", Status: engine.StepCompleted, Succeeded: 3},
			{
				Name:      "move-nodes",
				Status:    engine.StepAborted,
				Succeeded: 1,
				Err:       errors.New("conflict at destination"),
				Failures: []engine.Failure{
					{Target: "/content/a/x", Attempts: 15, Err: errors.New("conflict")},
				},
			},
			{Name: "remove-source", Status: engine.StepSkipped},
		},
	}
}

func TestOutputFormatter_ReportText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Report(sampleEngineReport()))

	out := buf.String()
	assert.Contains(t, out, "Folder Relocation [tok-0001]")
	assert.Contains(t, out, "state: aborted")
	assert.Contains(t, out, "failed /content/a/x after 15 attempt(s): conflict")
}

func TestOutputFormatter_ReportJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Report(sampleEngineReport()))

	var resp struct {
		Status string     `json:"status"`
		Data   ReportData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "folder-relocation", resp.Data.Process)
	assert.Equal(t, "tok-0001", resp.Data.Token)
	assert.Equal(t, "aborted", resp.Data.State)
	require.Len(t, resp.Data.Steps, 3)

	move := resp.Data.Steps[1]
	assert.Equal(t, "move-nodes", move.Name)
	assert.Equal(t, "conflict at destination", move.Error)
	require.Len(t, move.Failures, 1)
	assert.Equal(t, "/content/a/x", move.Failures[0].Target)
	assert.Equal(t, 15, move.Failures[0].Attempts)
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "done"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E201", "bad job file"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
	assert.Equal(t, "bad job file", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E201", "bad job file"))
	assert.Contains(t, buf.String(), "Error [E201]")
	assert.Contains(t, buf.String(), "bad job file")
}

func TestExitError(t *testing.T) {
	base := errors.New("underlying")
	err := WrapExitError(ExitCommandError, "failed to open database", base)
	assert.Equal(t, "failed to open database: underlying", err.Error())
	assert.ErrorIs(t, err, base)

	plain := NewExitError(ExitFailure, "process aborted")
	assert.Equal(t, "process aborted", plain.Error())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"command error", NewExitError(ExitCommandError, "bad flags"), 2},
		{"failure", NewExitError(ExitFailure, "aborted"), 1},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner")), 2},
		{"plain error", errors.New("anything"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
