package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyMap_SetGetOrder(t *testing.T) {
	m := NewPropertyMap()
	m.Set("title", StringValue("hello"))
	m.Set("count", IntValue(3))
	m.Set("title", StringValue("updated"))

	v, ok := m.Get("title")
	assert.True(t, ok)
	assert.Equal(t, StringValue("updated"), v)
	assert.Equal(t, []string{"title", "count"}, m.Keys(), "re-set keeps original position")
	assert.Equal(t, 2, m.Len())
}

func TestPropertyMap_Delete(t *testing.T) {
	m := NewPropertyMap()
	m.Set("a", IntValue(1))
	m.Set("b", IntValue(2))
	m.Delete("a")
	m.Delete("missing")

	assert.False(t, m.Has("a"))
	assert.Equal(t, []string{"b"}, m.Keys())
}

func TestPropertyMap_Clone(t *testing.T) {
	m := NewPropertyMap()
	m.Set("a", StringValue("x"))

	c := m.Clone()
	c.Set("b", StringValue("y"))

	assert.False(t, m.Has("b"))
	assert.True(t, c.Has("a"))
}
