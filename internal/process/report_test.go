package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
	"github.com/grovekit/grove/internal/repo"
)

func sampleReport(token string) *engine.Report {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &engine.Report{
		Process: "folder-relocation",
		Token:   token,
		State:   engine.ProcessAborted,
		Steps: []engine.StepReport{
			{Name: "validate-acls", Status: engine.StepCompleted, Succeeded: 3},
			{
				Name:      "move-nodes",
				Status:    engine.StepAborted,
				Succeeded: 1,
				Err:       errors.New("step blew up"),
				Failures: []engine.Failure{
					{
						Target:   "/content/a/x",
						Err:      errors.New("conflict at destination"),
						Attempts: 15,
						Time:     started.Add(time.Minute),
					},
				},
			},
			{Name: "remove-source", Status: engine.StepSkipped},
		},
		Started:  started,
		Finished: started.Add(2 * time.Minute),
	}
}

func TestStoreAndLoadReport(t *testing.T) {
	r := repo.NewMemory()
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	want := sampleReport("tok-store-1")
	require.NoError(t, StoreReport(context.Background(), s, want))

	got, err := LoadReport(context.Background(), s, "tok-store-1")
	require.NoError(t, err)

	assert.Equal(t, want.Process, got.Process)
	assert.Equal(t, want.Token, got.Token)
	assert.Equal(t, want.State, got.State)
	assert.True(t, got.Started.Equal(want.Started))
	assert.True(t, got.Finished.Equal(want.Finished))

	require.Len(t, got.Steps, 3)
	for i, step := range got.Steps {
		assert.Equal(t, want.Steps[i].Name, step.Name)
		assert.Equal(t, want.Steps[i].Status, step.Status)
		assert.Equal(t, want.Steps[i].Succeeded, step.Succeeded)
	}
	require.Error(t, got.Steps[1].Err)
	assert.Equal(t, "step blew up", got.Steps[1].Err.Error())

	require.Len(t, got.Steps[1].Failures, 1)
	f := got.Steps[1].Failures[0]
	assert.Equal(t, content.Path("/content/a/x"), f.Target)
	assert.Equal(t, "conflict at destination", f.Err.Error())
	assert.Equal(t, 15, f.Attempts)
}

func TestStoreReport_DuplicateTokenConflicts(t *testing.T) {
	r := repo.NewMemory()
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, StoreReport(context.Background(), s, sampleReport("tok-dup")))
	err = StoreReport(context.Background(), s, sampleReport("tok-dup"))
	require.Error(t, err)
	assert.True(t, repo.IsConflict(err))
}

func TestLoadReport_UnknownToken(t *testing.T) {
	r := repo.NewMemory()
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	_, err = LoadReport(context.Background(), s, "no-such-token")
	require.Error(t, err)
	assert.True(t, repo.IsNotFound(err))
}

func TestListReports(t *testing.T) {
	r := repo.NewMemory()
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	// empty repository: no report root yet
	summaries, err := ListReports(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	require.NoError(t, StoreReport(context.Background(), s, sampleReport("tok-b")))
	require.NoError(t, StoreReport(context.Background(), s, sampleReport("tok-a")))

	summaries, err = ListReports(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "tok-a", summaries[0].Token, "listing is token-ordered")
	assert.Equal(t, "tok-b", summaries[1].Token)
	assert.Equal(t, "folder-relocation", summaries[0].Process)
	assert.Equal(t, engine.ProcessAborted, summaries[0].State)
}
