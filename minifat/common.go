// Package minifat implements a miniature FAT-style filesystem stored inside a
// single backing disk-image file. The volume has a flat namespace (one root
// directory, no subdirectories) and applies per-file transparent compression
// selected from the codecs in the compression package.
//
// On-disk layout, in sector order: boot sector, FAT, root directory, data
// area. The FAT is an array of 32-bit little-endian next-pointers, one per
// cluster; 0 marks a free cluster and 0xFFFFFFFF ends a chain. Cluster
// numbering starts at 2, matching FAT tradition: clusters 0 and 1 are never
// allocated and their FAT slots hold end-of-chain markers from format time.
package minifat

import "bytes"

// Fundamental volume geometry. These are compile-time constants of the format
// itself, not tunables; changing any of them changes the on-disk layout.
const (
	// SectorSize is the atomic I/O unit in bytes.
	SectorSize = 512
	// SectorsPerCluster gives the number of sectors in one allocation unit.
	SectorsPerCluster = 4
	// ClusterSize is the allocation unit in bytes.
	ClusterSize = SectorsPerCluster * SectorSize
	// MaxClusters is the size of the cluster space, including the two
	// reserved cluster numbers.
	MaxClusters = 1024
	// DirEntrySize is the size of one root directory slot in bytes.
	DirEntrySize = 64
	// MaxNameLength is the longest storable file name in bytes.
	MaxNameLength = 32
)

// Region layout, in sectors.
const (
	// BootSectors is the number of sectors reserved at the start of the image.
	BootSectors = 1
	// FATSectors is the number of sectors the FAT occupies: one 4-byte entry
	// per cluster.
	FATSectors = MaxClusters * fatEntrySize / SectorSize
	// RootDirSectors is the number of sectors holding directory slots.
	RootDirSectors = 4
	// RootEntries is the root directory's slot capacity, counting live and
	// tombstoned files together.
	RootEntries = RootDirSectors * SectorSize / DirEntrySize
	// DataSectors is the number of sectors in the data area.
	DataSectors = MaxClusters * SectorsPerCluster
	// TotalSectors is the size of the whole image in sectors.
	TotalSectors = BootSectors + FATSectors + RootDirSectors + DataSectors
	// TotalImageBytes is the exact byte length of a volume's backing file.
	TotalImageBytes = TotalSectors * SectorSize

	fatEntrySize       = 4
	fatStartSector     = BootSectors
	rootDirStartSector = fatStartSector + FATSectors
	dataStartSector    = rootDirStartSector + RootDirSectors
)

// FAT sentinel values.
const (
	// FATFree marks an unallocated cluster.
	FATFree = uint32(0x00000000)
	// FATEndOfChain terminates a cluster chain.
	FATEndOfChain = uint32(0xFFFFFFFF)
	// 0xFFFFFFFE is reserved for marking bad clusters; nothing writes it.

	// firstDataCluster is the lowest allocatable cluster number.
	firstDataCluster = uint32(2)
)

// FilenameToBytes converts a filename string to its on-disk representation: a
// fixed 32-byte field, zero-padded on the right. Names longer than 32 bytes
// are truncated.
func FilenameToBytes(name string) []byte {
	raw := make([]byte, MaxNameLength)
	copy(raw, name)
	return raw
}

// BytesToFilename converts the on-disk representation of a filename into its
// user-friendly form. Decoding stops at the first zero byte.
func BytesToFilename(rawName []byte) string {
	end := bytes.IndexByte(rawName, 0)
	if end < 0 {
		end = len(rawName)
	}
	return string(rawName[:end])
}

// normalizeFilename maps a caller-supplied name to the form names take after
// an encode/decode round trip, so lookups match what a write stored.
func normalizeFilename(name string) string {
	return BytesToFilename(FilenameToBytes(name))
}
