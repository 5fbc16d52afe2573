package dimension

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"martbuild/pkg/errors"
)

// DuplicatePolicy controls what a duplicate natural key within one dimension
// batch does to the build.
type DuplicatePolicy string

const (
	// DuplicateError aborts the build: a duplicated natural key breaks the
	// one-row-per-grain invariant of every downstream fact join.
	DuplicateError DuplicatePolicy = "error"
	// DuplicateLastWins applies Type-1 overwrite semantics: the last record
	// in input order wins, deterministically.
	DuplicateLastWins DuplicatePolicy = "last-wins"
)

// ParseDuplicatePolicy validates a configured policy name. Empty means the
// strict default.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "":
		return DuplicateError, nil
	case DuplicateError, DuplicateLastWins:
		return DuplicatePolicy(s), nil
	default:
		return "", errors.ConfigError(fmt.Sprintf("Unknown duplicate policy %q", s), "pipeline.duplicate_policy").
			WithSuggestions("Use 'error' or 'last-wins'")
	}
}

// HashAlgorithmFNV1a64 is the only supported surrogate hash. The algorithm
// name is configuration so a change can never happen silently: fact keys are
// only stable across rebuilds while the hash stays fixed.
const HashAlgorithmFNV1a64 = "fnv1a-64"

// HashKey derives a surrogate key from a synthesized natural key. The high
// bit is cleared so hash keys are always non-negative and can never collide
// with the (negative) unmatched-lookup sentinel.
func HashKey(algorithm, naturalKey string) (int64, error) {
	switch algorithm {
	case HashAlgorithmFNV1a64:
		h := fnv.New64a()
		_, _ = h.Write([]byte(naturalKey))
		return int64(h.Sum64() & 0x7fffffffffffffff), nil
	default:
		return 0, errors.ConfigError(fmt.Sprintf("Unknown key hash algorithm %q", algorithm), "pipeline.key_hash").
			WithSuggestions(fmt.Sprintf("Use %q", HashAlgorithmFNV1a64))
	}
}

// KeyIndex is the natural key → surrogate key lookup a dimension build
// produces. The mapping is total and injective within one build; Add enforces
// both directions.
type KeyIndex struct {
	dimension string
	keys      map[string]int64
	surrogate map[int64]string
}

// NewKeyIndex creates an empty index for one dimension
func NewKeyIndex(dimension string) *KeyIndex {
	return &KeyIndex{
		dimension: dimension,
		keys:      make(map[string]int64),
		surrogate: make(map[int64]string),
	}
}

// Add registers a natural key → surrogate key pair. A repeated natural key or
// a surrogate key already claimed by a different natural key is a fatal
// integrity error.
func (ix *KeyIndex) Add(naturalKey string, surrogateKey int64) error {
	if _, exists := ix.keys[naturalKey]; exists {
		return errors.DuplicateKeyError(ix.dimension, naturalKey)
	}
	if prior, exists := ix.surrogate[surrogateKey]; exists && prior != naturalKey {
		return errors.New(errors.ErrCodeDuplicateKey,
			fmt.Sprintf("Surrogate key collision in %s", ix.dimension)).
			WithContext("surrogate_key", surrogateKey).
			WithContext("natural_keys", []string{prior, naturalKey}).
			WithSeverity(errors.SeverityCritical)
	}
	ix.keys[naturalKey] = surrogateKey
	ix.surrogate[surrogateKey] = naturalKey
	return nil
}

// Replace overwrites the surrogate key for a natural key (Type-1 path)
func (ix *KeyIndex) Replace(naturalKey string, surrogateKey int64) {
	if old, exists := ix.keys[naturalKey]; exists {
		delete(ix.surrogate, old)
	}
	ix.keys[naturalKey] = surrogateKey
	ix.surrogate[surrogateKey] = naturalKey
}

// Resolve looks up the surrogate key for a natural key
func (ix *KeyIndex) Resolve(naturalKey string) (int64, bool) {
	key, ok := ix.keys[naturalKey]
	return key, ok
}

// Len returns the number of indexed keys
func (ix *KeyIndex) Len() int {
	return len(ix.keys)
}

// Dimension returns the dimension name this index belongs to
func (ix *KeyIndex) Dimension() string {
	return ix.dimension
}

// IntKey renders an integer natural key in index form
func IntKey(id int) string {
	return strconv.Itoa(id)
}
