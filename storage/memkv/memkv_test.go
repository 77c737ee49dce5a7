package memkv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeBasic(t *testing.T) {
	require := require.New(t)

	tree := New()
	require.Nil(tree.Get([]byte("missing")), "Get, missing key")

	tree.Insert([]byte("foo"), []byte("bar"))
	require.Equal([]byte("bar"), tree.Get([]byte("foo")), "Get")

	tree.Insert([]byte("foo"), []byte("baz"))
	require.Equal([]byte("baz"), tree.Get([]byte("foo")), "Get, after replace")

	tree.Remove([]byte("foo"))
	require.Nil(tree.Get([]byte("foo")), "Get, after remove")

	// Removing a missing key is a no-op.
	require.NotPanics(func() { tree.Remove([]byte("foo")) })
}

func TestTreeCopiesBuffers(t *testing.T) {
	require := require.New(t)

	tree := New()
	key := []byte("key")
	value := []byte("value")
	tree.Insert(key, value)

	value[0] = 'X'
	require.Equal([]byte("value"), tree.Get(key), "stored value unaffected by caller mutation")

	got := tree.Get(key)
	got[0] = 'Y'
	require.Equal([]byte("value"), tree.Get(key), "stored value unaffected by reader mutation")
}

func TestTreeCheckpointRollback(t *testing.T) {
	require := require.New(t)

	tree := New()
	tree.Insert([]byte("a"), []byte("1"))
	tree.Insert([]byte("b"), []byte("2"))

	cp := tree.Checkpoint()

	tree.Insert([]byte("a"), []byte("changed"))
	tree.Insert([]byte("c"), []byte("3"))
	tree.Remove([]byte("b"))

	tree.Rollback(cp)

	require.Equal([]byte("1"), tree.Get([]byte("a")), "rolled back value")
	require.Equal([]byte("2"), tree.Get([]byte("b")), "rolled back removal")
	require.Nil(tree.Get([]byte("c")), "rolled back insert")
}

func TestIterator(t *testing.T) {
	require := require.New(t)

	tree := New()
	for i := 0; i < 5; i++ {
		tree.Insert([]byte(fmt.Sprintf("p/%d", i)), []byte{byte(i)})
	}
	tree.Insert([]byte("q/0"), []byte("other"))
	tree.Insert([]byte("o/9"), []byte("other"))

	var keys []string
	it := tree.NewIterator([]byte("p/"))
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal([]string{"p/0", "p/1", "p/2", "p/3", "p/4"}, keys, "prefix iteration order")

	it = tree.NewIterator([]byte("z/"))
	require.False(it.Valid(), "iteration over empty prefix")
}
