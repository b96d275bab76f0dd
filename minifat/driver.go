package minifat

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Swizzzer/tinyfs"
	"github.com/Swizzzer/tinyfs/utilities/compression"
)

// Volume is a handle to one mounted MINIFAT disk image. It owns the backing
// stream exclusively; the format provides no consistency whatsoever if two
// handles target the same image. All operations are synchronous and complete
// before returning.
type Volume struct {
	stream io.ReadWriteSeeker
	// file is set when the volume was opened from a host path, so Close can
	// release it. Stream-backed volumes leave it nil.
	file *os.File
}

// MOUNTING ====================================================================

// Mount opens the host file at `path` read-write and validates that it holds
// a MINIFAT volume. A file that can't be opened, or whose read fails, reports
// an I/O error; one too short to hold a boot sector reports
// ErrFileSystemCorrupted; one with the wrong identifier or boot signature
// reports ErrNotAVolume.
func Mount(path string) (*Volume, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, tinyfs.ErrIOFailed.Wrap(err)
	}

	volume := &Volume{stream: file, file: file}
	if err := volume.validateBootSector(); err != nil {
		file.Close()
		return nil, err
	}
	return volume, nil
}

// MountStream is Mount for a volume backed by an existing stream.
func MountStream(stream io.ReadWriteSeeker) (*Volume, error) {
	volume := &Volume{stream: stream}
	if err := volume.validateBootSector(); err != nil {
		return nil, err
	}
	return volume, nil
}

// GetOrCreate mounts the volume at `path`, or formats a fresh one there if
// mounting fails for any reason.
func GetOrCreate(path string) (*Volume, error) {
	volume, err := Mount(path)
	if err != nil {
		return Format(path)
	}
	return volume, nil
}

func (volume *Volume) validateBootSector() error {
	bootSector, err := volume.ReadSector(0)
	if err != nil {
		return err
	}

	if !bytes.Equal(bootSector[3:11], []byte(volumeIdentifier)) {
		return tinyfs.ErrNotAVolume.WithMessage(
			fmt.Sprintf("identifier mismatch: got %q", bootSector[3:11]))
	}
	if bootSector[SectorSize-2] != 0x55 || bootSector[SectorSize-1] != 0xAA {
		return tinyfs.ErrNotAVolume.WithMessage("boot sector signature missing")
	}
	return nil
}

// Close flushes pending writes and releases the host file, if the volume owns
// one. The handle must not be used afterwards.
func (volume *Volume) Close() error {
	flushErr := volume.Flush()
	if volume.file != nil {
		if err := volume.file.Close(); err != nil {
			return tinyfs.ErrIOFailed.Wrap(err)
		}
	}
	return flushErr
}

// FILE SERVICE ================================================================

// WriteFile stores a file on the volume under the given name, replacing any
// existing file with that name. The payload is first encoded with the chosen
// compression method; the encoded bytes are what occupy clusters. Names
// longer than MaxNameLength bytes are truncated.
//
// If the volume runs out of clusters or directory slots partway through, the
// clusters allocated so far stay allocated. The FAT still describes them
// accurately, so a later scavenging pass could reclaim them; attempting a
// rollback here would just add more failure modes to an already-failing
// write.
func (volume *Volume) WriteFile(name string, data []byte, method compression.Method) error {
	if !method.IsValid() {
		return tinyfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unknown compression method %d", method))
	}

	payload, err := compression.CompressToBytes(method, data)
	if err != nil {
		return err
	}
	originalSize := uint32(len(data))
	storedSize := uint32(len(payload))

	// Replacement is delete-then-create. Deleting first both frees the old
	// chain and guarantees the directory never holds two live entries with
	// the same name.
	if _, _, found, err := volume.findFile(name); err != nil {
		return err
	} else if found {
		if err := volume.Remove(name); err != nil {
			return err
		}
	}

	clustersNeeded := (len(payload) + ClusterSize - 1) / ClusterSize
	if clustersNeeded < 1 {
		// An empty file still owns one cluster.
		clustersNeeded = 1
	}

	firstCluster, err := volume.AllocateCluster()
	if err != nil {
		return err
	}

	currentCluster := firstCluster
	for chunkIndex := 0; chunkIndex < clustersNeeded; chunkIndex++ {
		start := chunkIndex * ClusterSize
		end := start + ClusterSize
		if end > len(payload) {
			end = len(payload)
		}

		if err := volume.WriteCluster(currentCluster, payload[start:end]); err != nil {
			return err
		}

		if chunkIndex < clustersNeeded-1 {
			// Allocation marks the new cluster end-of-chain; linking then
			// redirects the current cluster at it. The final cluster keeps
			// its end-of-chain marker, so the chain is terminated at every
			// step and no cluster is ever both free and in use.
			nextCluster, err := volume.AllocateCluster()
			if err != nil {
				return err
			}
			if err := volume.SetNextCluster(currentCluster, nextCluster); err != nil {
				return err
			}
			currentCluster = nextCluster
		}
	}

	entry := DirectoryEntry{
		Name:              normalizeFilename(name),
		Size:              originalSize,
		StoredSize:        storedSize,
		FirstCluster:      firstCluster,
		IsCompressed:      method > compression.MethodNone,
		CompressionMethod: method,
	}
	return volume.upsertDirectoryEntry(&entry)
}

// WriteFileDefault stores a file with the default compression method, DEFLATE.
func (volume *Volume) WriteFileDefault(name string, data []byte) error {
	return volume.WriteFile(name, data, compression.MethodDeflate)
}

// ReadFile returns the original bytes of the named file, walking its cluster
// chain and undoing whatever compression the write applied. A chain that ends
// before yielding the recorded stored size, a payload the codec rejects, and
// a decompressed size that disagrees with the recorded original size are all
// reported as corruption.
func (volume *Volume) ReadFile(name string) ([]byte, error) {
	entry, _, found, err := volume.findFile(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, tinyfs.ErrNotFound.WithMessage(name)
	}

	stored := make([]byte, 0, entry.StoredSize)
	currentCluster := entry.FirstCluster
	for currentCluster != FATEndOfChain && currentCluster >= firstDataCluster {
		clusterData, err := volume.ReadCluster(currentCluster)
		if err != nil {
			return nil, err
		}

		remaining := int(entry.StoredSize) - len(stored)
		if remaining < len(clusterData) {
			// The last cluster is only partially occupied.
			clusterData = clusterData[:remaining]
		}
		stored = append(stored, clusterData...)

		if len(stored) >= int(entry.StoredSize) {
			break
		}

		currentCluster, err = volume.NextCluster(currentCluster)
		if err != nil {
			return nil, err
		}
	}

	if len(stored) < int(entry.StoredSize) {
		return nil, tinyfs.ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf(
				"%s: cluster chain ended after %d of %d stored bytes",
				entry.Name,
				len(stored),
				entry.StoredSize))
	}

	// CompressionMethod is canonical; the IsCompressed flag is derived at
	// write time and deliberately ignored here.
	switch entry.CompressionMethod {
	case compression.MethodNone:
		return stored, nil
	case compression.MethodRLE, compression.MethodDeflate:
		data, err := compression.DecompressToBytes(entry.CompressionMethod, stored)
		if err != nil {
			return nil, tinyfs.ErrFileSystemCorrupted.Wrap(err)
		}
		if len(data) != int(entry.Size) {
			return nil, tinyfs.ErrFileSystemCorrupted.WithMessage(
				fmt.Sprintf(
					"%s: decompressed to %d bytes, expected %d",
					entry.Name,
					len(data),
					entry.Size))
		}
		return data, nil
	}

	return nil, tinyfs.ErrFileSystemCorrupted.WithMessage(
		fmt.Sprintf(
			"%s: unknown compression method %d on disk",
			entry.Name,
			entry.CompressionMethod))
}

// Remove deletes the named file: its cluster chain is freed, then its
// directory slot is tombstoned. Freeing first matters for crash behavior: an
// interruption between the two steps leaves a tombstone-less entry whose
// clusters are free, which is detectable, rather than silently leaking the
// chain.
func (volume *Volume) Remove(name string) error {
	entry, _, found, err := volume.findFile(name)
	if err != nil {
		return err
	}
	if !found {
		return tinyfs.ErrNotFound.WithMessage(name)
	}

	if err := volume.FreeClusterChain(entry.FirstCluster); err != nil {
		return err
	}
	return volume.tombstoneFile(name)
}

// STATS =======================================================================

// CompressionStats summarizes how effectively a file compressed.
type CompressionStats struct {
	// OriginalSize is the byte length of the data as written by the caller.
	OriginalSize uint32
	// StoredSize is the byte length actually occupying clusters.
	StoredSize uint32
	// Ratio is StoredSize as a percentage of OriginalSize, or 0 for an empty
	// file.
	Ratio float64
	// MethodLabel names the compression method: "none", "rle" or "deflate".
	MethodLabel string
}

// CompressionStats reports the stored/original sizes and compression ratio of
// the named file.
func (volume *Volume) CompressionStats(name string) (CompressionStats, error) {
	entry, _, found, err := volume.findFile(name)
	if err != nil {
		return CompressionStats{}, err
	}
	if !found {
		return CompressionStats{}, tinyfs.ErrNotFound.WithMessage(name)
	}

	ratio := 0.0
	if entry.Size > 0 {
		ratio = float64(entry.StoredSize) / float64(entry.Size) * 100.0
	}

	return CompressionStats{
		OriginalSize: entry.Size,
		StoredSize:   entry.StoredSize,
		Ratio:        ratio,
		MethodLabel:  entry.CompressionMethod.Label(),
	}, nil
}

// FSStat reports the volume's cluster and directory slot usage.
func (volume *Volume) FSStat() (tinyfs.FSStat, error) {
	freeClusters, err := volume.countFreeClusters()
	if err != nil {
		return tinyfs.FSStat{}, err
	}

	rootDir, err := volume.readRootDirectory()
	if err != nil {
		return tinyfs.FSStat{}, err
	}

	liveFiles := uint(0)
	for slot := 0; slot < RootEntries; slot++ {
		raw := rootDir[slot*DirEntrySize : (slot+1)*DirEntrySize]
		if raw[0] != 0 && raw[44] == 0 {
			liveFiles++
		}
	}

	return tinyfs.FSStat{
		TotalClusters: MaxClusters - uint(firstDataCluster),
		FreeClusters:  freeClusters,
		LiveFiles:     liveFiles,
		FreeSlots:     RootEntries - liveFiles,
		MaxNameLength: MaxNameLength,
	}, nil
}
