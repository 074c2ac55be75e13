package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/content"
	"github.com/grovekit/grove/internal/engine"
)

func minimalTree() []TreeNode {
	return []TreeNode{
		{Path: "/content", Kind: content.KindFolder},
		{Path: "/content/a", Kind: content.KindFolder},
		{Path: "/content/a/item", Kind: content.KindAsset},
	}
}

func TestRun_RelocateScenarioPasses(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "inline-relocate",
		Tree: minimalTree(),
		Job: Job{
			Kind:        JobRelocate,
			Source:      "/content/a",
			Destination: "/content/b",
			Mode:        "rename",
		},
		Expect: Expectation{
			State:  string(engine.ProcessCompleted),
			Exists: []string{"/content/b/item"},
			Absent: []string{"/content/a"},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)
	assert.Equal(t, DefaultToken, result.Report.Token)
}

func TestRun_ExpectationFailuresAreCollected(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "inline-mismatch",
		Tree: minimalTree(),
		Job: Job{
			Kind:        JobRelocate,
			Source:      "/content/a",
			Destination: "/content/b",
			Mode:        "rename",
		},
		Expect: Expectation{
			State:  string(engine.ProcessAborted),
			Exists: []string{"/content/a"},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.Len(t, result.Errors, 2, "state mismatch plus missing path")
}

func TestRun_ExpectedLaunchError(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "inline-missing-source",
		Tree: []TreeNode{{Path: "/content", Kind: content.KindFolder}},
		Job: Job{
			Kind:        JobRelocate,
			Source:      "/content/nope",
			Destination: "/content/b",
			Mode:        "rename",
		},
		Expect: Expectation{
			Error: "PRECONDITION_FAILED",
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)
	assert.Nil(t, result.Report)
}

func TestRun_SetPropRepeatedRuns(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "inline-append",
		Tree: []TreeNode{
			{Path: "/content", Kind: content.KindFolder},
			{Path: "/content/page", Kind: content.KindPageContent},
		},
		Job: Job{
			Kind:      JobSetProp,
			Base:      "/content",
			TreeTypes: content.KindFolder,
			NodeTypes: content.KindPageContent,
			Property:  "tags",
			Type:      "string",
			Plurality: "list",
			Value:     "urgent",
			Rule:      "append-if-missing",
			Runs:      3,
		},
		Token: "tok-x",
		Expect: Expectation{
			State: string(engine.ProcessCompleted),
			Properties: []PropertyExpectation{
				{Path: "/content/page", Key: "tags", List: []string{"urgent"}},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)
	assert.Equal(t, "tok-x-3", result.Report.Token, "each run gets its own token")
}

func TestRun_ACLEntriesApply(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "inline-denied",
		Tree: minimalTree(),
		ACL:  []ACLEntry{{Path: "/content/a", Deny: []string{"write"}}},
		Job: Job{
			Kind:        JobRelocate,
			Source:      "/content/a",
			Destination: "/content/b",
			Mode:        "rename",
		},
		Expect: Expectation{
			State:  string(engine.ProcessAborted),
			Error:  "PRECONDITION_FAILED",
			Absent: []string{"/content/b"},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Passed(), "expectation failures: %v", result.Errors)
}

func TestRun_UnknownJobKind(t *testing.T) {
	_, err := Run(&Scenario{
		Name: "inline-bad-job",
		Tree: minimalTree(),
		Job:  Job{Kind: "defragment"},
	})
	require.Error(t, err)
}
