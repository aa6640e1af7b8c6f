package license

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serialShape = regexp.MustCompile(`^MORO-\d{4}-\d{4}-\d{4}$`)

func TestGenerate_Shape(t *testing.T) {
	gen := NewGenerator("MORO")

	key, err := gen.Generate(nil)
	require.NoError(t, err)
	assert.Regexp(t, serialShape, key)
}

func TestGenerate_BlocksInRange(t *testing.T) {
	gen := NewGenerator("MORO")

	for i := 0; i < 50; i++ {
		n, err := gen.block()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestGenerate_AvoidsExistingKeys(t *testing.T) {
	gen := NewGenerator("MORO")

	// Force the first draws to collide with an existing key.
	draws := []int{1234, 1234, 1234, 5678, 5678, 5678}
	i := 0
	gen.block = func() (int, error) {
		n := draws[i%len(draws)]
		i++
		return n, nil
	}

	existing := map[string]Record{
		"MORO-1234-1234-1234": NewRecord("Ali", time.Now()),
	}

	key, err := gen.Generate(existing)
	require.NoError(t, err)
	assert.Equal(t, "MORO-5678-5678-5678", key)
}

func TestGenerate_FallbackAfterExhaustedAttempts(t *testing.T) {
	gen := NewGenerator("MORO")
	gen.block = func() (int, error) { return 1234, nil }
	gen.now = func() time.Time { return time.Unix(0, 1700000000000000000) }

	existing := map[string]Record{
		"MORO-1234-1234-1234": NewRecord("Ali", time.Now()),
	}

	key, err := gen.Generate(existing)
	require.NoError(t, err)
	assert.Equal(t, "MORO-1700000000000000000", key)
	assert.NotRegexp(t, serialShape, key, "fallback key sacrifices the canonical shape")
}

func TestGenerate_BatchIsPairwiseDistinct(t *testing.T) {
	gen := NewGenerator("MORO")
	existing := make(map[string]Record)

	for i := 0; i < 200; i++ {
		key, err := gen.Generate(existing)
		require.NoError(t, err)
		_, dup := existing[key]
		require.False(t, dup, "duplicate key %s in batch", key)
		existing[key] = NewRecord(fmt.Sprintf("customer-%d", i), time.Now())
	}
}
