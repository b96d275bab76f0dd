// Package tinyfs defines the error conditions and summary types shared by the
// MINIFAT volume implementation in the minifat package.
package tinyfs

// FSStat is a snapshot of a mounted volume's resource usage.
type FSStat struct {
	// TotalClusters is the number of allocatable data clusters on the volume.
	TotalClusters uint
	// FreeClusters is the number of clusters whose FAT entry marks them free.
	FreeClusters uint
	// LiveFiles is the number of directory slots holding a non-deleted file.
	LiveFiles uint
	// FreeSlots is the number of directory slots a new file could occupy,
	// counting both never-used and tombstoned slots.
	FreeSlots uint
	// MaxNameLength is the longest file name the volume can store, in bytes.
	MaxNameLength uint
}
