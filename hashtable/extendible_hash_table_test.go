package hashtable

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func intKeyBytes(k int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(k))
	return buf
}

func TestFind_LastWriterWins(t *testing.T) {
	tbl := New[int, string](4, intKeyBytes)
	tbl.Insert(1, "a")
	tbl.Insert(1, "b")
	v, ok := tbl.Find(1)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestFind_MissingKey(t *testing.T) {
	tbl := New[int, string](4, intKeyBytes)
	_, ok := tbl.Find(42)
	require.False(t, ok)
}

func TestRemove_DeletesWithoutMerging(t *testing.T) {
	tbl := New[int, string](4, intKeyBytes)
	tbl.Insert(1, "a")
	require.True(t, tbl.Remove(1))
	require.False(t, tbl.Remove(1))
	_, ok := tbl.Find(1)
	require.False(t, ok)
}

// scenario S4: bucket_size=2, three inserts force a split and a
// directory doubling to global depth 1.
func TestInsert_S4_SplitDoublesDirectory(t *testing.T) {
	tbl := New[int, string](2, intKeyBytes)
	tbl.Insert(1, "a")
	tbl.Insert(5, "b")
	tbl.Insert(9, "c")

	require.GreaterOrEqual(t, tbl.GetGlobalDepth(), 1)

	v1, ok := tbl.Find(1)
	require.True(t, ok)
	require.Equal(t, "a", v1)
	v2, ok := tbl.Find(5)
	require.True(t, ok)
	require.Equal(t, "b", v2)
	v3, ok := tbl.Find(9)
	require.True(t, ok)
	require.Equal(t, "c", v3)
}

func TestInsert_ManyKeysSurviveGrowth(t *testing.T) {
	tbl := New[int, int](2, intKeyBytes)
	for i := 0; i < 200; i++ {
		tbl.Insert(i, i*i)
	}
	for i := 0; i < 200; i++ {
		v, ok := tbl.Find(i)
		require.True(t, ok, "key %d missing", i)
		require.Equal(t, i*i, v)
	}
	require.GreaterOrEqual(t, tbl.GetNumBuckets(), 1)
}

func TestGetLocalDepth_NeverExceedsGlobalDepth(t *testing.T) {
	tbl := New[int, int](2, intKeyBytes)
	for i := 0; i < 64; i++ {
		tbl.Insert(i, i)
	}
	g := tbl.GetGlobalDepth()
	for i := 0; i < (1 << g); i++ {
		require.LessOrEqual(t, tbl.GetLocalDepth(i), g)
	}
}

func TestDestroy_DropsBuckets(t *testing.T) {
	tbl := New[int, int](2, intKeyBytes)
	tbl.Insert(1, 1)
	tbl.Destroy()
	require.Equal(t, 0, tbl.GetNumBuckets())
}
