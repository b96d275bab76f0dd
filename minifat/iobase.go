package minifat

import (
	"fmt"
	"io"

	"github.com/Swizzzer/tinyfs"
)

// Every seek against the backing stream happens in this file, and sector and
// cluster offsets are computed here. The FAT and directory code compute the
// byte offsets of their own entries (fat.go, dirent.go) and pass them to
// readAt/writeAt; no other code seeks the stream.

// SECTOR-LEVEL ACCESS =========================================================

func sectorToFileOffset(sector uint) (int64, error) {
	if sector >= TotalSectors {
		return -1, tinyfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid sector number: %d not in [0, %d)", sector, TotalSectors))
	}
	return int64(sector) * SectorSize, nil
}

// ReadSector reads one sector from the image.
func (volume *Volume) ReadSector(sector uint) ([]byte, error) {
	offset, err := sectorToFileOffset(sector)
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, SectorSize)
	if err := volume.readAt(offset, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

// WriteSector writes one sector to the image. `data` must be exactly the size
// of a sector.
func (volume *Volume) WriteSector(sector uint, data []byte) error {
	if len(data) != SectorSize {
		return tinyfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("sector data must be %d bytes, got %d", SectorSize, len(data)))
	}

	offset, err := sectorToFileOffset(sector)
	if err != nil {
		return err
	}
	return volume.writeAt(offset, data)
}

// CLUSTER-LEVEL ACCESS ========================================================

// IsValidCluster returns a boolean indicating whether the given cluster
// number addresses a slot in the data area.
func IsValidCluster(cluster uint32) bool {
	return (cluster >= firstDataCluster) && (cluster < MaxClusters)
}

func makeInvalidClusterError(cluster uint32) error {
	return tinyfs.ErrInvalidArgument.WithMessage(
		fmt.Sprintf(
			"bad cluster number: %d not in range [%d, %d)",
			cluster,
			firstDataCluster,
			MaxClusters))
}

func clusterToFileOffset(cluster uint32) (int64, error) {
	if !IsValidCluster(cluster) {
		return -1, makeInvalidClusterError(cluster)
	}
	// Cluster 2 is the first cluster of the data area.
	return int64(dataStartSector)*SectorSize +
		int64(cluster-firstDataCluster)*ClusterSize, nil
}

// ReadCluster reads one full cluster from the data area. `cluster` must be
// valid, as determined by IsValidCluster().
func (volume *Volume) ReadCluster(cluster uint32) ([]byte, error) {
	offset, err := clusterToFileOffset(cluster)
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, ClusterSize)
	if err := volume.readAt(offset, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

// WriteCluster writes bytes to the given cluster. `data` may be shorter than
// a cluster; the trailing space is zero-filled so a full cluster is always
// written out.
func (volume *Volume) WriteCluster(cluster uint32, data []byte) error {
	if len(data) > ClusterSize {
		return tinyfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"cluster data must be at most %d bytes, got %d",
				ClusterSize,
				len(data)))
	}

	offset, err := clusterToFileOffset(cluster)
	if err != nil {
		return err
	}

	padded := make([]byte, ClusterSize)
	copy(padded, data)
	return volume.writeAt(offset, padded)
}

// STREAM PRIMITIVES ===========================================================

func (volume *Volume) readAt(offset int64, buffer []byte) error {
	if _, err := volume.stream.Seek(offset, io.SeekStart); err != nil {
		return tinyfs.ErrIOFailed.Wrap(err)
	}
	if _, err := io.ReadFull(volume.stream, buffer); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return tinyfs.ErrFileSystemCorrupted.WithMessage(
				fmt.Sprintf(
					"image truncated: short read of %d bytes at offset %d",
					len(buffer),
					offset))
		}
		return tinyfs.ErrIOFailed.Wrap(err)
	}
	return nil
}

func (volume *Volume) writeAt(offset int64, data []byte) error {
	if _, err := volume.stream.Seek(offset, io.SeekStart); err != nil {
		return tinyfs.ErrIOFailed.Wrap(err)
	}
	if _, err := volume.stream.Write(data); err != nil {
		return tinyfs.ErrIOFailed.Wrap(err)
	}
	return nil
}

type syncer interface {
	Sync() error
}

// Flush forces buffered writes to durable storage when the backing stream
// supports it (an *os.File does; an in-memory stream has nothing to sync).
func (volume *Volume) Flush() error {
	if s, ok := volume.stream.(syncer); ok {
		if err := s.Sync(); err != nil {
			return tinyfs.ErrIOFailed.Wrap(err)
		}
	}
	return nil
}
