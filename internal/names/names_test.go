package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "janedoe", Normalize("Jane Doe"))
	assert.Equal(t, "janedoe", Normalize("  jane doe  "))
	assert.Equal(t, "janedoe", Normalize("janedoe"))
}

func TestMatcherExact(t *testing.T) {
	m := NewMatcher(nil, 0)
	idx, ok := m.Find("bob", []string{"alice", "bob", "carol"})
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestMatcherFuzzy(t *testing.T) {
	m := NewMatcher(nil, 0)
	idx, ok := m.Find("alicee", []string{"alice", "bob"})
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestMatcherBelowThreshold(t *testing.T) {
	m := NewMatcher(nil, 0)
	_, ok := m.Find("zzzzzz", []string{"alice", "bob"})
	assert.False(t, ok)
}

func TestMatcherCustomScorer(t *testing.T) {
	always := func(a, b string) float64 { return 100 }
	m := NewMatcher(always, 50)
	idx, ok := m.Find("anything", []string{"first", "second"})
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}
