package license

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// maxGenerateAttempts bounds the collision retry loop. With a search space of
// 9000^3 keys per prefix this is practically never exhausted.
const maxGenerateAttempts = 20

// Generator produces human-readable serial keys of the shape
// PREFIX-NNNN-NNNN-NNNN, each block a 4-digit number in [1000, 9999].
type Generator struct {
	prefix string

	// block draws one serial block; swapped out in tests.
	block func() (int, error)
	now   func() time.Time
}

// NewGenerator creates a generator for the given serial prefix.
func NewGenerator(prefix string) *Generator {
	return &Generator{
		prefix: prefix,
		block:  randomBlock,
		now:    time.Now,
	}
}

// Prefix returns the configured serial prefix.
func (g *Generator) Prefix() string {
	return g.prefix
}

// Generate produces a serial key that does not collide with any key in
// existing. It retries with fresh random draws up to a bounded attempt count;
// if every attempt collides it falls back to a timestamp-derived key that is
// unique within the process but sacrifices the canonical shape. The fallback
// is an accepted degradation, not a failure.
//
// Generate is pure with respect to existing aside from its randomness source.
// Batch callers must add each generated key to existing before the next call
// so intra-batch collisions are impossible.
func (g *Generator) Generate(existing map[string]Record) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		key, err := g.randomKey()
		if err != nil {
			return "", err
		}
		if _, taken := existing[key]; !taken {
			return key, nil
		}
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.now().UnixNano()), nil
}

func (g *Generator) randomKey() (string, error) {
	blocks := [3]int{}
	for i := range blocks {
		n, err := g.block()
		if err != nil {
			return "", fmt.Errorf("license: serial block: %w", err)
		}
		blocks[i] = n
	}
	return fmt.Sprintf("%s-%04d-%04d-%04d", g.prefix, blocks[0], blocks[1], blocks[2]), nil
}

// randomBlock draws a uniform 4-digit number in [1000, 9999].
func randomBlock() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1000, nil
}
