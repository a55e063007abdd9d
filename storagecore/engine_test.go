package storagecore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Think5UP/bustub-private/bptree"
	"github.com/Think5UP/bustub-private/common"
	"github.com/Think5UP/bustub-private/config"
)

func TestOpen_InMemoryEngineInsertsAndReads(t *testing.T) {
	engine, err := Open(config.Default())
	require.NoError(t, err)
	defer engine.Close()

	tree := engine.Primary()
	ok, err := tree.Insert(intKey(1), common.RID{PageID: 10, SlotNum: 0})
	require.NoError(t, err)
	require.True(t, ok)

	value, found, err := tree.GetValue(intKey(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, common.RID{PageID: 10, SlotNum: 0}, value)
}

func TestOpen_FileBackedEngineSurvivesReopen(t *testing.T) {
	cfg := config.Default()
	cfg.DataFile = filepath.Join(t.TempDir(), "engine.db")
	cfg.PoolSize = 8

	engine, err := Open(cfg)
	require.NoError(t, err)
	_, err = engine.Primary().Insert(intKey(42), common.RID{PageID: 7, SlotNum: 3})
	require.NoError(t, err)
	require.NoError(t, engine.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Primary().GetValue(intKey(42))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, common.RID{PageID: 7, SlotNum: 3}, value)
}

func TestOpen_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.PoolSize = 0

	_, err := Open(cfg)
	require.Error(t, err)
}

func TestOpenIndex_SecondIndexIsIndependentOfPrimary(t *testing.T) {
	engine, err := Open(config.Default())
	require.NoError(t, err)
	defer engine.Close()

	secondary := engine.OpenIndex("secondary", 8)
	_, err = secondary.Insert(intKey(5), common.RID{PageID: 1, SlotNum: 0})
	require.NoError(t, err)

	_, found, err := engine.Primary().GetValue(intKey(5))
	require.NoError(t, err)
	require.False(t, found, "inserting into the secondary index must not leak into the primary one")

	value, found, err := secondary.GetValue(intKey(5))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, common.RID{PageID: 1, SlotNum: 0}, value)
}

func intKey(n int) bptree.Key {
	k := make(bptree.Key, 8)
	for i := 7; i >= 0; i-- {
		k[i] = byte(n)
		n >>= 8
	}
	return k
}
