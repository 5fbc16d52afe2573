package dimension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "martbuild/pkg/errors"
)

func TestHashKeyStable(t *testing.T) {
	a, err := HashKey(HashAlgorithmFNV1a64, "CVE-2024-12345")
	require.NoError(t, err)
	b, err := HashKey(HashAlgorithmFNV1a64, "CVE-2024-12345")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashKeyNeverNegative(t *testing.T) {
	inputs := []string{"", "a", "CVE-2021-44228", "CVE-2014-0160", "some-very-long-natural-key-value"}
	for _, in := range inputs {
		key, err := HashKey(HashAlgorithmFNV1a64, in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, key, int64(0), "hash of %q must not collide with the sentinel range", in)
	}
}

func TestHashKeyUnknownAlgorithm(t *testing.T) {
	_, err := HashKey("md5", "x")
	assert.Error(t, err)
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DuplicatePolicy
		wantErr bool
	}{
		{"error", DuplicateError, false},
		{"last-wins", DuplicateLastWins, false},
		{"", DuplicateError, false},
		{"first-wins", DuplicateError, true},
	}

	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestKeyIndexDuplicateNaturalKey(t *testing.T) {
	index := NewKeyIndex("dim_product")
	require.NoError(t, index.Add("17", 17))

	err := index.Add("17", 17)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDuplicateKey, apperrors.GetErrorCode(err))
}

func TestKeyIndexResolve(t *testing.T) {
	index := NewKeyIndex("dim_store")
	require.NoError(t, index.Add("3", 3))

	key, ok := index.Resolve("3")
	assert.True(t, ok)
	assert.Equal(t, int64(3), key)

	_, ok = index.Resolve("99")
	assert.False(t, ok)
}

func TestKeyIndexReplace(t *testing.T) {
	index := NewKeyIndex("dim_vendor")
	require.NoError(t, index.Add("5", 5))

	index.Replace("5", 5)
	key, ok := index.Resolve("5")
	assert.True(t, ok)
	assert.Equal(t, int64(5), key)
	assert.Equal(t, 1, index.Len())
}
