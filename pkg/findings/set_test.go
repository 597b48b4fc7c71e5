package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet("Fever", "cough", "FEVER", "", "  ")

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("fever"))
	assert.True(t, set.Has("cough"))
	assert.False(t, set.Has("Fever"), "Has expects normalized ids")
	assert.Equal(t, []string{"cough", "fever"}, set.Sorted())
}

func TestSet_KeyIsOrderIndependent(t *testing.T) {
	a := NewSet("fever", "cough", "rash")
	b := NewSet("rash", "Fever", "cough", "cough")

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), NewSet("fever", "cough").Key())
	assert.Equal(t, "", NewSet().Key())
}
