package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovekit/grove/internal/content"
)

func seedTree(t *testing.T, r *MemoryRepository) {
	t.Helper()
	r.MustSeed("/content", content.KindFolder, nil)
	r.MustSeed("/content/a", content.KindFolder, nil)
	r.MustSeed("/content/a/x", content.KindFolder, nil)
	r.MustSeed("/content/a/x/"+content.ContentNodeName, content.KindUnstructured, nil)
}

func TestMemory_MoveSubtree(t *testing.T) {
	r := NewMemory()
	seedTree(t, r)
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Move(context.Background(), "/content/a", "/content/b"))

	assert.Equal(t, []content.Path{
		"/",
		"/content",
		"/content/b",
		"/content/b/x",
		"/content/b/x/" + content.ContentNodeName,
	}, r.Snapshot())
}

func TestMemory_ContentStubQuirk(t *testing.T) {
	r := NewMemoryWithOptions(MemoryOptions{MaterializeContentStubs: true})
	seedTree(t, r)
	r.MustSeed("/content/b", content.KindFolder, nil)
	r.MustSeed("/content/b/x", content.KindFolder, nil)
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	from := content.NewPath("/content/a/x/" + content.ContentNodeName)
	to := content.NewPath("/content/b/x/" + content.ContentNodeName)

	// First move materializes the stub and reports a conflict.
	err = s.Move(ctx, from, to)
	require.True(t, IsConflict(err), "expected conflict, got %v", err)

	exists, err := s.Exists(ctx, to)
	require.NoError(t, err)
	assert.True(t, exists, "stub must be left behind")

	// Clearing the stub and retrying succeeds; the quirk is one-shot.
	require.NoError(t, s.RemoveItem(ctx, to))
	require.NoError(t, s.Move(ctx, from, to))

	exists, err = s.Exists(ctx, from)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemory_InjectFault(t *testing.T) {
	r := NewMemory()
	r.MustSeed("/content", content.KindFolder, nil)
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	boom := NewConflictError("/content/a")
	r.InjectFault("create", "/content/a", 2, boom)

	for i := 0; i < 2; i++ {
		err := s.CreateChild(ctx, "/content", "a", content.KindFolder, nil)
		assert.True(t, IsConflict(err), "attempt %d should fail", i+1)
	}
	require.NoError(t, s.CreateChild(ctx, "/content", "a", content.KindFolder, nil))
}

func TestMemory_PropertiesAreCopies(t *testing.T) {
	r := NewMemory()
	props := content.NewPropertyMap()
	props.Set("title", content.StringValue("one"))
	r.MustSeed("/a", content.KindUnstructured, props)
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	got, err := s.Properties(ctx, "/a")
	require.NoError(t, err)
	got.Set("title", content.StringValue("two"))

	again, err := s.Properties(ctx, "/a")
	require.NoError(t, err)
	v, _ := again.Get("title")
	assert.Equal(t, content.StringValue("one"), v, "mutating a read copy must not write through")
}

func TestMemory_ACL(t *testing.T) {
	r := NewMemory()
	r.MustSeed("/content", content.KindFolder, nil)
	r.MustSeed("/content/a", content.KindFolder, nil)
	r.Deny("/content/a", PrivWrite)
	s, err := r.NewSession(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := s.CheckPrivileges(ctx, "/content/a", PrivRead, PrivWrite)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CheckPrivileges(ctx, "/content", PrivAll)
	require.NoError(t, err)
	assert.True(t, ok)
}
