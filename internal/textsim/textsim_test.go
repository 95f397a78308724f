package textsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigramJaccardIdentities(t *testing.T) {
	assert.Equal(t, 1.0, BigramJaccard("AuthService", "AuthService"))
	assert.Equal(t, 0.0, BigramJaccard("", "x"))
	assert.Equal(t, 0.0, BigramJaccard("x", ""))
}

func TestBigramJaccardSymmetric(t *testing.T) {
	a, b := "AuthService", "Authentication Service"
	assert.InDelta(t, BigramJaccard(a, b), BigramJaccard(b, a), 1e-9)
}

func TestBigramJaccardCaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, BigramJaccard("UserRepo", "userrepo"))
}

func TestFindSimilarOrdering(t *testing.T) {
	matches := FindSimilar("UserService", []string{"UserServise", "OrderService", "userservice"}, -1)
	if assert.Len(t, matches, 3) {
		assert.Equal(t, "userservice", matches[0].Value)
		assert.Equal(t, 0, matches[0].Distance)
	}
}

func TestFindSimilarMaxDistanceFilters(t *testing.T) {
	matches := FindSimilar("abc", []string{"abc", "abcdefgh"}, 1)
	assert.Len(t, matches, 1)
	assert.Equal(t, "abc", matches[0].Value)
}
