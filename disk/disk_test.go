package disk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Think5UP/bustub-private/common"
)

func TestMemoryBlockDevice_ReadUnwrittenPageIsZero(t *testing.T) {
	d := NewMemoryBlockDevice()
	buf := make([]byte, common.PageSize)
	for i := range buf {
		buf[i] = 0xFF
	}

	require.NoError(t, d.ReadPage(7, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestMemoryBlockDevice_WriteThenReadRoundTrips(t *testing.T) {
	d := NewMemoryBlockDevice()
	out := make([]byte, common.PageSize)
	out[0] = 0xAB

	require.NoError(t, d.WritePage(3, out))

	in := make([]byte, common.PageSize)
	require.NoError(t, d.ReadPage(3, in))
	require.Equal(t, out, in)
}

func TestMemoryBlockDevice_PageCountTracksHighWatermark(t *testing.T) {
	d := NewMemoryBlockDevice()
	require.Equal(t, common.PageID(0), d.PageCount())

	buf := make([]byte, common.PageSize)
	require.NoError(t, d.WritePage(0, buf))
	require.Equal(t, common.PageID(1), d.PageCount())

	require.NoError(t, d.WritePage(5, buf))
	require.Equal(t, common.PageID(6), d.PageCount())

	// Writing an earlier id again must not move the watermark backward.
	require.NoError(t, d.WritePage(2, buf))
	require.Equal(t, common.PageID(6), d.PageCount())
}

func TestMemoryBlockDevice_RejectsWrongSizedBuffers(t *testing.T) {
	d := NewMemoryBlockDevice()
	require.Error(t, d.ReadPage(0, make([]byte, 10)))
	require.Error(t, d.WritePage(0, make([]byte, 10)))
}

func TestFileBlockDevice_PageCountMatchesFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	d, err := OpenFileBlockDevice(path)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, common.PageID(0), d.PageCount())

	buf := make([]byte, common.PageSize)
	require.NoError(t, d.WritePage(0, buf))
	require.Equal(t, common.PageID(1), d.PageCount())

	require.NoError(t, d.WritePage(2, buf))
	require.Equal(t, common.PageID(3), d.PageCount())
}

func TestFileBlockDevice_WriteThenReadRoundTripsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	d, err := OpenFileBlockDevice(path)
	require.NoError(t, err)

	out := make([]byte, common.PageSize)
	out[0] = 0x42
	require.NoError(t, d.WritePage(1, out))
	require.NoError(t, d.Close())

	reopened, err := OpenFileBlockDevice(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, common.PageID(2), reopened.PageCount())

	in := make([]byte, common.PageSize)
	require.NoError(t, reopened.ReadPage(1, in))
	require.Equal(t, out, in)
}
