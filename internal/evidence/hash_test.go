package evidence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidHash(t *testing.T) {
	valid := "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"well-formed", valid, true},
		{"empty", "", false},
		{"too short", valid[:45], false},
		{"too long", valid + "a", false},
		{"wrong prefix", "Zz" + valid[2:], false},
		{"zero is not base58", "Qm" + strings.Repeat("0", 44), false},
		{"capital O is not base58", "Qm" + strings.Repeat("O", 44), false},
		{"capital I is not base58", "Qm" + strings.Repeat("I", 44), false},
		{"lowercase l is not base58", "Qm" + strings.Repeat("l", 44), false},
		{"plus sign rejected", valid[:45] + "+", false},
		{"all ones is valid base58", "Qm" + strings.Repeat("1", 44), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidHash(tc.in))
		})
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	t.Run("hash is stable and format-valid", func(t *testing.T) {
		first, err := store.Put(ctx, []byte("wipe report #1"))
		require.NoError(t, err)
		assert.True(t, ValidHash(first))

		again, err := store.Put(ctx, []byte("wipe report #1"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("different content yields different hash", func(t *testing.T) {
		a, err := store.Put(ctx, []byte("report a"))
		require.NoError(t, err)
		b, err := store.Put(ctx, []byte("report b"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("blob retrievable by hash", func(t *testing.T) {
		hash, err := store.Put(ctx, []byte("stored blob"))
		require.NoError(t, err)

		blob, ok := store.Get(hash)
		require.True(t, ok)
		assert.Equal(t, []byte("stored blob"), blob)
	})
}
