package slugs

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var slugPattern = regexp.MustCompile(`^[a-z]+-[a-z]+-[0-9a-f]{4}$`)

func TestGenerate_MatchesShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		slug := Generate()
		assert.Regexp(t, slugPattern, slug)
	}
}

func TestGenerate_VariesAcrossCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[Generate()] = true
	}
	assert.Greater(t, len(seen), 1, "expected Generate to produce more than one distinct slug across 50 calls")
}
