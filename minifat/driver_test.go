package minifat_test

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"strings"
	"testing"

	"github.com/Swizzzer/tinyfs"
	"github.com/Swizzzer/tinyfs/minifat"
	dt "github.com/Swizzzer/tinyfs/testing"
	"github.com/Swizzzer/tinyfs/utilities/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func TestWriteFile__RoundTripAllMethods(t *testing.T) {
	payloads := map[string][]byte{
		"text":       bytes.Repeat([]byte("pack my box with five dozen liquor jugs\n"), 40),
		"runs":       bytes.Repeat([]byte{7}, 5000),
		"empty":      {},
		"one byte":   {42},
		"full":       bytes.Repeat([]byte{1, 2, 3, 4}, minifat.ClusterSize/4),
		"cluster+1":  make([]byte, minifat.ClusterSize+1),
		"2 clusters": make([]byte, 2*minifat.ClusterSize),
	}

	for _, method := range []compression.Method{
		compression.MethodNone, compression.MethodRLE, compression.MethodDeflate,
	} {
		for payloadName, payload := range payloads {
			t.Run(
				fmt.Sprintf("%s/%s", method.Label(), payloadName),
				func(t *testing.T) {
					volume, _ := dt.FormatVolume(t)

					require.NoError(t, volume.WriteFile("f", payload, method))
					readBack, err := volume.ReadFile("f")
					require.NoError(t, err)
					assert.True(
						t,
						bytes.Equal(payload, readBack),
						"data came back different")
				},
			)
		}
	}
}

func TestWriteFile__DefaultMethodIsDeflate(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFileDefault("d", bytes.Repeat([]byte("abc"), 1000)))

	stats, err := volume.CompressionStats("d")
	require.NoError(t, err)
	assert.Equal(t, "deflate", stats.MethodLabel)
}

func TestWriteFile__UnknownMethodRejected(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	err := volume.WriteFile("f", []byte("data"), compression.Method(3))
	assert.ErrorIs(t, err, tinyfs.ErrInvalidArgument)

	// The failed write must not have left anything behind.
	entries, err := volume.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile__OverwriteReplacesAndReusesClusters(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("f", []byte("first contents"), 0))
	require.NoError(t, volume.WriteFile("f", []byte("second contents"), 0))

	readBack, err := volume.ReadFile("f")
	require.NoError(t, err)
	assert.Equal(t, []byte("second contents"), readBack)

	// Delete-then-create means the replacement reclaims the same cluster,
	// and the directory holds exactly one live entry for the name.
	entries, err := volume.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].FirstCluster)

	stat, err := volume.FSStat()
	require.NoError(t, err)
	assert.EqualValues(t, 1021, stat.FreeClusters)
}

func TestWriteFile__UncompressedBytesLandVerbatim(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	payload := []byte("hello")
	require.NoError(t, volume.WriteFile("f", payload, compression.MethodNone))

	entries, err := volume.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	clusterData, err := volume.ReadCluster(entries[0].FirstCluster)
	require.NoError(t, err)
	assert.Equal(t, payload, clusterData[:len(payload)])
}

func TestReadFile__NotFound(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	_, err := volume.ReadFile("ghost")
	assert.ErrorIs(t, err, tinyfs.ErrNotFound)
}

func TestReadFile__TruncatedChainIsCorruption(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	payload := make([]byte, 2*minifat.ClusterSize)
	rand.Read(payload)
	require.NoError(t, volume.WriteFile("f", payload, compression.MethodNone))

	// Chop the chain after its first cluster.
	require.NoError(t, volume.SetNextCluster(2, minifat.FATEndOfChain))

	_, err := volume.ReadFile("f")
	assert.ErrorIs(t, err, tinyfs.ErrFileSystemCorrupted)
}

func TestReadFile__MangledDeflatePayloadIsCorruption(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	payload := bytes.Repeat([]byte("compressible"), 500)
	require.NoError(t, volume.WriteFile("f", payload, compression.MethodDeflate))

	entries, err := volume.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	garbage := bytes.Repeat([]byte{0xFF}, int(entries[0].StoredSize))
	require.NoError(t, volume.WriteCluster(entries[0].FirstCluster, garbage))

	_, err = volume.ReadFile("f")
	assert.ErrorIs(t, err, tinyfs.ErrFileSystemCorrupted)
}

func TestRemove__FileGoneAndClustersFreed(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("f", make([]byte, 3*minifat.ClusterSize), 0))

	statBefore, err := volume.FSStat()
	require.NoError(t, err)
	require.EqualValues(t, 1019, statBefore.FreeClusters)

	require.NoError(t, volume.Remove("f"))

	_, err = volume.ReadFile("f")
	assert.ErrorIs(t, err, tinyfs.ErrNotFound)

	statAfter, err := volume.FSStat()
	require.NoError(t, err)
	assert.EqualValues(t, 1022, statAfter.FreeClusters)
}

func TestRemove__NotFound(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	err := volume.Remove("ghost")
	assert.ErrorIs(t, err, tinyfs.ErrNotFound)
}

func TestListFiles__TombstonesFiltered(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("keep", []byte("k"), 0))
	require.NoError(t, volume.WriteFile("drop", []byte("d"), 0))
	require.NoError(t, volume.Remove("drop"))

	entries, err := volume.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep", entries[0].Name)
}

func TestWriteFile__NameHandling(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	exactName := strings.Repeat("n", 32)
	require.NoError(t, volume.WriteFile(exactName, []byte("max"), 0))
	data, err := volume.ReadFile(exactName)
	require.NoError(t, err)
	assert.Equal(t, []byte("max"), data)

	// A 33-byte name is accepted but truncated; lookups under both the long
	// and the truncated form hit the same file.
	longName := strings.Repeat("q", 33)
	require.NoError(t, volume.WriteFile(longName, []byte("long"), 0))

	data, err = volume.ReadFile(longName)
	require.NoError(t, err)
	assert.Equal(t, []byte("long"), data)

	data, err = volume.ReadFile(strings.Repeat("q", 32))
	require.NoError(t, err)
	assert.Equal(t, []byte("long"), data)

	entries, err := volume.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, strings.Repeat("q", 32), entries[1].Name)
}

func TestWriteFile__DirectoryFull(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	for i := 0; i < minifat.RootEntries; i++ {
		require.NoError(t, volume.WriteFile(fmt.Sprintf("file-%02d", i), []byte("x"), 0))
	}

	err := volume.WriteFile("one-too-many", []byte("x"), 0)
	assert.ErrorIs(t, err, tinyfs.ErrDirectoryFull)

	// Tombstoning any entry frees its slot for a brand-new name.
	require.NoError(t, volume.Remove("file-07"))
	require.NoError(t, volume.WriteFile("replacement", []byte("y"), 0))

	entries, err := volume.ListFiles()
	require.NoError(t, err)
	assert.Len(t, entries, minifat.RootEntries)
}

func TestWriteFile__NoSpace(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	// 31 files of 32 clusters each occupy 992 of the 1022 data clusters.
	bigPayload := make([]byte, 32*minifat.ClusterSize)
	for i := 0; i < 31; i++ {
		require.NoError(t, volume.WriteFile(fmt.Sprintf("big-%02d", i), bigPayload, 0))
	}

	err := volume.WriteFile("straw", bigPayload, 0)
	assert.ErrorIs(t, err, tinyfs.ErrNoSpaceOnDevice)

	// The failed write consumed the remaining 30 clusters before running out
	// and does not roll them back; they're orphaned until a scavenging pass.
	stat, err := volume.FSStat()
	require.NoError(t, err)
	assert.EqualValues(t, 0, stat.FreeClusters)
	assert.ErrorIs(t, volume.Fsck(), tinyfs.ErrFileSystemCorrupted,
		"fsck must surface the orphaned clusters")
}

func TestCompressionStats(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("a", []byte("hello"), compression.MethodNone))
	stats, err := volume.CompressionStats("a")
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.OriginalSize)
	assert.EqualValues(t, 5, stats.StoredSize)
	assert.Equal(t, 100.0, stats.Ratio)
	assert.Equal(t, "none", stats.MethodLabel)

	require.NoError(t, volume.WriteFile("e", []byte{}, compression.MethodNone))
	stats, err = volume.CompressionStats("e")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.Ratio, "empty file ratio must be 0")

	_, err = volume.CompressionStats("ghost")
	assert.ErrorIs(t, err, tinyfs.ErrNotFound)
}

func TestScenario__RLESingleRun(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("b", []byte("aaaaaaaaaa"), compression.MethodRLE))

	data, err := volume.ReadFile("b")
	require.NoError(t, err)
	assert.Equal(t, []byte("aaaaaaaaaa"), data)

	stats, err := volume.CompressionStats("b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.StoredSize, "ten identical bytes are one (count, value) pair")
}

func TestScenario__RLELongRun(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	payload := bytes.Repeat([]byte{'x'}, 3000)
	require.NoError(t, volume.WriteFile("c", payload, compression.MethodRLE))

	stats, err := volume.CompressionStats("c")
	require.NoError(t, err)
	// 3000 = 11 runs of 255 plus one of 195, two bytes per run.
	assert.EqualValues(t, 24, stats.StoredSize)

	data, err := volume.ReadFile("c")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, data))
}

func TestScenario__DeflateRandomPayload(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	payload := make([]byte, 10000)
	rand.Read(payload)
	require.NoError(t, volume.WriteFile("d", payload, compression.MethodDeflate))

	data, err := volume.ReadFile("d")
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, data))
}

func TestScenario__SlotAndClusterReuseIsDeterministic(t *testing.T) {
	volume, _ := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("e", []byte("x"), 0))
	require.NoError(t, volume.Remove("e"))
	require.NoError(t, volume.WriteFile("f", []byte("y"), 0))

	entries, err := volume.ListFiles()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f", entries[0].Name)
	assert.EqualValues(t, 2, entries[0].FirstCluster,
		"the freed cluster must be handed back first")
}

func TestRemount__SeesIdenticalState(t *testing.T) {
	volume, stream := dt.FormatVolume(t)

	require.NoError(t, volume.WriteFile("alpha", bytes.Repeat([]byte("aaa"), 999), compression.MethodRLE))
	require.NoError(t, volume.WriteFile("beta", []byte("plain"), compression.MethodNone))
	require.NoError(t, volume.WriteFile("gamma", make([]byte, 5000), compression.MethodDeflate))
	require.NoError(t, volume.Remove("beta"))

	reopened, err := minifat.MountStream(stream)
	require.NoError(t, err)

	liveEntries, err := volume.ListFiles()
	require.NoError(t, err)
	reopenedEntries, err := reopened.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, liveEntries, reopenedEntries)

	for _, entry := range liveEntries {
		fromLive, err := volume.ReadFile(entry.Name)
		require.NoError(t, err)
		fromReopened, err := reopened.ReadFile(entry.Name)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(fromLive, fromReopened), entry.Name)
	}
}

func TestEquivalentOperationsYieldIdenticalImages(t *testing.T) {
	runOperations := func(volume *minifat.Volume) {
		require.NoError(t, volume.WriteFile("one", bytes.Repeat([]byte{9}, 4000), compression.MethodRLE))
		require.NoError(t, volume.WriteFile("two", []byte("literal"), compression.MethodNone))
		require.NoError(t, volume.Remove("one"))
		require.NoError(t, volume.WriteFile("three", bytes.Repeat([]byte("ab"), 2000), compression.MethodDeflate))
	}

	firstImage := make([]byte, minifat.TotalImageBytes)
	secondImage := make([]byte, minifat.TotalImageBytes)

	for _, image := range [][]byte{firstImage, secondImage} {
		volume, err := minifat.FormatStream(bytesextra.NewReadWriteSeeker(image))
		require.NoError(t, err)
		runOperations(volume)
	}

	assert.True(
		t,
		bytes.Equal(firstImage, secondImage),
		"the same operations must produce byte-identical images")
}
