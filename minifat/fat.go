package minifat

import (
	"encoding/binary"
	"fmt"

	"github.com/Swizzzer/tinyfs"
)

// The FAT is a flat array of 32-bit little-endian next-pointers, one per
// cluster number including the two reserved ones. Entry N lives at byte
// offset N*4 within the FAT region.

func fatEntryOffset(cluster uint32) (int64, error) {
	if cluster >= MaxClusters {
		return -1, tinyfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("invalid FAT index: %d not in [0, %d)", cluster, MaxClusters))
	}
	return int64(fatStartSector)*SectorSize + int64(cluster)*fatEntrySize, nil
}

// NextCluster reads the FAT entry for the given cluster: the next cluster in
// its chain, FATEndOfChain, or FATFree.
func (volume *Volume) NextCluster(cluster uint32) (uint32, error) {
	offset, err := fatEntryOffset(cluster)
	if err != nil {
		return 0, err
	}

	raw := make([]byte, fatEntrySize)
	if err := volume.readAt(offset, raw); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// SetNextCluster writes the FAT entry for the given cluster. Callers must
// maintain the chain invariants themselves; nothing here validates the value.
func (volume *Volume) SetNextCluster(cluster, next uint32) error {
	offset, err := fatEntryOffset(cluster)
	if err != nil {
		return err
	}

	raw := make([]byte, fatEntrySize)
	binary.LittleEndian.PutUint32(raw, next)
	return volume.writeAt(offset, raw)
}

// AllocateCluster finds the first free cluster, marks it as the end of a
// chain, and returns its number.
//
// The scan order is part of the format's contract: always linear from the
// lowest cluster number up. Together with the directory's slot-selection
// order, this makes the image bytes produced by a sequence of operations
// fully deterministic.
func (volume *Volume) AllocateCluster() (uint32, error) {
	for cluster := firstDataCluster; cluster < MaxClusters; cluster++ {
		next, err := volume.NextCluster(cluster)
		if err != nil {
			return 0, err
		}
		if next == FATFree {
			// Mark it end-of-chain immediately so the cluster is never
			// simultaneously free and in use. A caller linking a longer chain
			// overwrites this with a real next-pointer afterwards.
			if err := volume.SetNextCluster(cluster, FATEndOfChain); err != nil {
				return 0, err
			}
			return cluster, nil
		}
	}

	return 0, tinyfs.ErrNoSpaceOnDevice.WithMessage("no free clusters left")
}

// FreeClusterChain walks the chain starting at the given cluster and marks
// every visited cluster free. Starting below the data area is a no-op. The
// walk stops at end-of-chain or at any next-pointer below the data area, so a
// damaged chain can't send it through the reserved clusters.
func (volume *Volume) FreeClusterChain(start uint32) error {
	if start < firstDataCluster {
		return nil
	}

	current := start
	for current != FATEndOfChain && current >= firstDataCluster {
		// Read the next-pointer before clearing the entry, or the rest of the
		// chain would be unreachable.
		next, err := volume.NextCluster(current)
		if err != nil {
			return err
		}
		if err := volume.SetNextCluster(current, FATFree); err != nil {
			return err
		}
		current = next
	}

	return nil
}

// countFreeClusters scans the whole FAT and returns how many clusters are
// currently unallocated.
func (volume *Volume) countFreeClusters() (uint, error) {
	free := uint(0)
	for cluster := firstDataCluster; cluster < MaxClusters; cluster++ {
		next, err := volume.NextCluster(cluster)
		if err != nil {
			return 0, err
		}
		if next == FATFree {
			free++
		}
	}
	return free, nil
}
