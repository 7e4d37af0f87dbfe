package automation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessTemplateNoBraces(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, "Great video!", ProcessTemplate("Great video!", rng))
	assert.Equal(t, "", ProcessTemplate("", rng))
}

func TestProcessTemplateSingleGroup(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		out := ProcessTemplate("{A|B}", rng)
		assert.Contains(t, []string{"A", "B"}, out)
		seen[out] = true
	}
	assert.True(t, seen["A"], "alternative A reachable")
	assert.True(t, seen["B"], "alternative B reachable")
}

func TestProcessTemplateIndependentGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[ProcessTemplate("{A|B} {1|2}", rng)] = true
	}
	for _, want := range []string{"A 1", "A 2", "B 1", "B 2"} {
		assert.True(t, seen[want], "combination %q reachable", want)
	}
	assert.Len(t, seen, 4)
}

func TestProcessTemplateSingleOption(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, "only", ProcessTemplate("{only}", rng))
}

func TestProcessTemplateUnterminatedBrace(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, "broken {a|b", ProcessTemplate("broken {a|b", rng))
	assert.Equal(t, "X {a|b", ProcessTemplate("{X|X} {a|b", rng))
}

func TestProcessTemplateSurroundingText(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		out := ProcessTemplate("This is {awesome|great}! Keep it up!", rng)
		assert.Contains(t, []string{
			"This is awesome! Keep it up!",
			"This is great! Keep it up!",
		}, out)
	}
}

func TestDefaultTemplatesExpandCleanly(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, template := range DefaultCommentTemplates {
		for i := 0; i < 20; i++ {
			out := ProcessTemplate(template, rng)
			assert.NotContains(t, out, "{")
			assert.NotContains(t, out, "}")
			assert.NotContains(t, out, "|")
			assert.NotEmpty(t, out)
		}
	}
}
