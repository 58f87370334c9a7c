package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHasPrefix(t *testing.T) {
	k := Key{"bookmarks", "abc", "Alice"}

	assert.True(t, k.HasPrefix(Key{}))
	assert.True(t, k.HasPrefix(Key{"bookmarks"}))
	assert.True(t, k.HasPrefix(Key{"bookmarks", "abc"}))
	assert.True(t, k.HasPrefix(k))
	assert.False(t, k.HasPrefix(Key{"bookmarks", "ab"}))
	assert.False(t, k.HasPrefix(Key{"bookmarks", "abc", "Alice", "x"}))
}

func TestKeyCompare(t *testing.T) {
	assert.Less(t, Key{"a"}.Compare(Key{"a", "b"}), 0)
	assert.Greater(t, Key{"b"}.Compare(Key{"a", "z"}), 0)
	assert.Equal(t, 0, Key{"a", "b"}.Compare(Key{"a", "b"}))
	assert.Less(t, Key{"bookmarks", "v", "Alice"}.Compare(Key{"bookmarks", "v", "Bob"}), 0)
}

func TestAtomicBuilder(t *testing.T) {
	op := NewAtomic().
		Check(Key{"a"}, "").
		Set(Key{"a"}, []byte("x"), time.Minute).
		Sum(Key{"count"}, 1).
		Delete(Key{"b"})

	require.Len(t, op.Checks, 1)
	require.Len(t, op.Mutations, 3)
	assert.Equal(t, MutationSet, op.Mutations[0].Kind)
	assert.Equal(t, time.Minute, op.Mutations[0].TTL)
	assert.Equal(t, MutationSum, op.Mutations[1].Kind)
	assert.Equal(t, uint64(1), op.Mutations[1].Delta)
	assert.Equal(t, MutationDelete, op.Mutations[2].Kind)
}

func TestU64(t *testing.T) {
	n, err := DecodeU64(EncodeU64(18446744073709551615))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), n)

	_, err = DecodeU64([]byte("-1"))
	assert.Error(t, err)
}

func TestEntryExists(t *testing.T) {
	assert.False(t, Entry{}.Exists())
	assert.True(t, Entry{Versionstamp: "00000000000000000001"}.Exists())
}
