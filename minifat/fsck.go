package minifat

import (
	"fmt"

	"github.com/Swizzzer/tinyfs"
	"github.com/boljen/go-bitmap"
	"github.com/hashicorp/go-multierror"
)

// Fsck verifies the volume's structural invariants and reports every
// violation it finds at once, rather than stopping at the first:
//
//   - each live file's chain stays inside the data area, visits exactly the
//     number of clusters its stored size implies, and terminates in an
//     end-of-chain marker;
//   - no cluster belongs to two chains;
//   - no two live directory entries share a name;
//   - every allocated cluster is referenced by some live chain. Clusters
//     failing this last check are the orphans a failed mid-write leaves
//     behind; they're reported so callers can detect the leakage.
//
// A healthy volume returns nil. Every violation wraps
// [tinyfs.ErrFileSystemCorrupted].
func (volume *Volume) Fsck() error {
	var result *multierror.Error
	usage := bitmap.New(MaxClusters)

	entries, err := volume.ListFiles()
	if err != nil {
		return err
	}

	seenNames := make(map[string]bool)
	for i := range entries {
		entry := &entries[i]
		if seenNames[entry.Name] {
			result = multierror.Append(result, corruption(
				"two live directory entries named %q", entry.Name))
			continue
		}
		seenNames[entry.Name] = true

		result = multierror.Append(result, volume.checkChain(entry, usage)...)
	}

	// Everything a live chain claimed is now marked in the usage map, so any
	// remaining allocated cluster belongs to no file.
	for cluster := firstDataCluster; cluster < MaxClusters; cluster++ {
		next, err := volume.NextCluster(cluster)
		if err != nil {
			return err
		}
		if next != FATFree && !usage.Get(int(cluster)) {
			result = multierror.Append(result, corruption(
				"cluster %d is allocated but referenced by no live file (orphaned)",
				cluster))
		}
	}

	return result.ErrorOrNil()
}

// checkChain walks one file's cluster chain, marking visited clusters in the
// usage map and collecting any violations.
func (volume *Volume) checkChain(entry *DirectoryEntry, usage bitmap.Bitmap) []error {
	// A chain is exactly as long as its stored size requires, and an empty
	// file still owns one cluster.
	requiredClusters := (int(entry.StoredSize) + ClusterSize - 1) / ClusterSize
	if requiredClusters < 1 {
		requiredClusters = 1
	}

	var violations []error
	currentCluster := entry.FirstCluster
	visited := 0
	for {
		if !IsValidCluster(currentCluster) {
			violations = append(violations, corruption(
				"%q: chain escapes the data area at cluster %d",
				entry.Name, currentCluster))
			break
		}
		if usage.Get(int(currentCluster)) {
			violations = append(violations, corruption(
				"%q: cluster %d is already claimed by another chain (cross-linked)",
				entry.Name, currentCluster))
			break
		}
		usage.Set(int(currentCluster), true)
		visited++

		next, err := volume.NextCluster(currentCluster)
		if err != nil {
			violations = append(violations, err)
			break
		}

		if next == FATEndOfChain {
			if visited < requiredClusters {
				violations = append(violations, corruption(
					"%q: chain holds %d clusters but its stored size of %d bytes needs %d",
					entry.Name, visited, entry.StoredSize, requiredClusters))
			}
			break
		}
		if next == FATFree {
			violations = append(violations, corruption(
				"%q: chain runs into free cluster after cluster %d",
				entry.Name, currentCluster))
			break
		}
		if visited >= requiredClusters {
			violations = append(violations, corruption(
				"%q: chain exceeds the %d clusters implied by its stored size",
				entry.Name, requiredClusters))
			break
		}
		currentCluster = next
	}

	return violations
}

func corruption(format string, args ...interface{}) error {
	return tinyfs.ErrFileSystemCorrupted.WithMessage(fmt.Sprintf(format, args...))
}
