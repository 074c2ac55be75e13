package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"move-nodes", "Move Nodes"},
		{"validate_acls", "Validate Acls"},
		{"buildTargetFolders", "Build Target Folders"},
		{"report.store", "Report Store"},
		{"simple", "Simple"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FriendlyName(tt.in))
		})
	}
}

func TestKindFilter(t *testing.T) {
	f := ParseKindFilter("grove:folder, Grove:Asset ,")
	assert.True(t, f.Matches("grove:folder"))
	assert.True(t, f.Matches("GROVE:ASSET"))
	assert.False(t, f.Matches("grove:unstructured"))
}

func TestKindFilter_Unrestricted(t *testing.T) {
	assert.True(t, ParseKindFilter("").Matches("anything"))
	assert.True(t, ParseKindFilter("*").Matches("anything"))
	assert.True(t, ParseKindFilter("a,*,b").Matches("c"))
}
