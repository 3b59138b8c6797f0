package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collectFilter(increments ...string) (emitted []string, body, sources string) {
	f := newSourcesFilter(func(s string) bool {
		emitted = append(emitted, s)
		return true
	})
	for _, inc := range increments {
		f.write(inc)
	}
	body = f.finish()
	return emitted, body, f.modelSources()
}

func TestSourcesFilter_PassThrough(t *testing.T) {
	emitted, body, sources := collectFilter("Hello ", "world", ".  \n")
	assert.Equal(t, []string{"Hello", " world", "."}, emitted)
	assert.Equal(t, "Hello world.", body)
	assert.Empty(t, sources)
}

func TestSourcesFilter_MarkerSplitAcrossIncrements(t *testing.T) {
	emitted, body, sources := collectFilter("Cats purr [1].\n\nSour", "ces: [1] cats", ".txt")
	assert.Equal(t, []string{"Cats purr [1]."}, emitted)
	assert.Equal(t, "Cats purr [1].", body)
	assert.Equal(t, " [1] cats.txt", sources)
}

func TestSourcesFilter_FalseMarkerPrefixReleased(t *testing.T) {
	emitted, body, _ := collectFilter("Read the Sour", "dough recipe")
	assert.Equal(t, "Read the Sourdough recipe", body)
	assert.Equal(t, "Read the", emitted[0])
}

func TestSourcesFilter_StopsWhenConsumerStops(t *testing.T) {
	calls := 0
	f := newSourcesFilter(func(string) bool {
		calls++
		return false
	})
	assert.False(t, f.write("first"))
	assert.Equal(t, 1, calls)
}

func TestHeldSuffix(t *testing.T) {
	assert.Equal(t, 0, heldSuffix("plain"))
	assert.Equal(t, 2, heldSuffix("end\n\n"))
	assert.Equal(t, 4, heldSuffix("see Sou"))
	assert.Equal(t, 4, heldSuffix("x\n\nSo"))
	assert.Equal(t, 0, heldSuffix(""))
}
