package minifat

import (
	"encoding/binary"
	"fmt"

	"github.com/Swizzzer/tinyfs"
	"github.com/Swizzzer/tinyfs/utilities/compression"
	"github.com/noxer/bytewriter"
)

// DirectoryEntry is the decoded form of one 64-byte root directory slot.
//
// A slot whose first byte is zero has never held a file; a slot with a name
// but IsDeleted set is a tombstone. Both kinds are reusable by a later write,
// which is why the two states must stay distinguishable on disk.
type DirectoryEntry struct {
	// Name is the file name, at most MaxNameLength bytes.
	Name string
	// Size is the byte length of the caller's original data.
	Size uint32
	// StoredSize is the byte length of the codec output actually occupying
	// clusters. Equal to Size when the file is uncompressed.
	StoredSize uint32
	// FirstCluster is the head of the file's cluster chain.
	FirstCluster uint32
	// IsDeleted marks a tombstoned slot.
	IsDeleted bool
	// IsCompressed records whether a codec was applied. Derived from
	// CompressionMethod at write time; CompressionMethod is the canonical
	// field and readers ignore this one.
	IsCompressed bool
	// CompressionMethod selects the codec that produced the stored bytes.
	CompressionMethod compression.Method
}

// ToBytes encodes the entry into its fixed 64-byte on-disk form. All integers
// are little-endian; bytes 47 through 63 are reserved and left zero.
func (entry *DirectoryEntry) ToBytes() []byte {
	raw := make([]byte, DirEntrySize)
	writer := bytewriter.New(raw)

	writer.Write(FilenameToBytes(entry.Name))
	binary.Write(writer, binary.LittleEndian, entry.Size)
	binary.Write(writer, binary.LittleEndian, entry.StoredSize)
	binary.Write(writer, binary.LittleEndian, entry.FirstCluster)
	writer.Write([]byte{
		encodeFlag(entry.IsDeleted),
		encodeFlag(entry.IsCompressed),
		byte(entry.CompressionMethod),
	})

	return raw
}

func encodeFlag(value bool) byte {
	if value {
		return 1
	}
	return 0
}

// DirectoryEntryFromBytes decodes one 64-byte directory slot.
func DirectoryEntryFromBytes(raw []byte) (DirectoryEntry, error) {
	if len(raw) < DirEntrySize {
		return DirectoryEntry{}, tinyfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("directory slot must be %d bytes, got %d", DirEntrySize, len(raw)))
	}

	return DirectoryEntry{
		Name:              BytesToFilename(raw[0:MaxNameLength]),
		Size:              binary.LittleEndian.Uint32(raw[32:36]),
		StoredSize:        binary.LittleEndian.Uint32(raw[36:40]),
		FirstCluster:      binary.LittleEndian.Uint32(raw[40:44]),
		IsDeleted:         raw[44] != 0,
		IsCompressed:      raw[45] != 0,
		CompressionMethod: compression.Method(raw[46]),
	}, nil
}

// DIRECTORY REGION ACCESS =====================================================

func directorySlotOffset(slot int) int64 {
	return int64(rootDirStartSector)*SectorSize + int64(slot)*DirEntrySize
}

// readRootDirectory reads the whole directory region as one contiguous
// buffer; slot N occupies bytes [N*64, N*64+64).
func (volume *Volume) readRootDirectory() ([]byte, error) {
	buffer := make([]byte, RootDirSectors*SectorSize)
	if err := volume.readAt(directorySlotOffset(0), buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func (volume *Volume) writeDirectorySlot(slot int, raw []byte) error {
	return volume.writeAt(directorySlotOffset(slot), raw)
}

// ListFiles returns the directory entries of all live files, in slot order.
// Tombstoned and never-used slots are skipped.
func (volume *Volume) ListFiles() ([]DirectoryEntry, error) {
	rootDir, err := volume.readRootDirectory()
	if err != nil {
		return nil, err
	}

	var entries []DirectoryEntry
	for slot := 0; slot < RootEntries; slot++ {
		raw := rootDir[slot*DirEntrySize : (slot+1)*DirEntrySize]
		if raw[0] == 0 {
			continue
		}

		entry, err := DirectoryEntryFromBytes(raw)
		if err != nil {
			return nil, err
		}
		if !entry.IsDeleted {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// findFile returns the first live entry with the given name and the slot it
// occupies. Names compare byte-for-byte after truncation to the on-disk form.
func (volume *Volume) findFile(name string) (DirectoryEntry, int, bool, error) {
	searchName := normalizeFilename(name)

	rootDir, err := volume.readRootDirectory()
	if err != nil {
		return DirectoryEntry{}, -1, false, err
	}

	for slot := 0; slot < RootEntries; slot++ {
		raw := rootDir[slot*DirEntrySize : (slot+1)*DirEntrySize]
		if raw[0] == 0 {
			continue
		}

		entry, err := DirectoryEntryFromBytes(raw)
		if err != nil {
			return DirectoryEntry{}, -1, false, err
		}
		if !entry.IsDeleted && entry.Name == searchName {
			return entry, slot, true, nil
		}
	}

	return DirectoryEntry{}, -1, false, nil
}

// upsertDirectoryEntry writes the entry into the first usable slot: one that
// was never used, one holding a tombstone, or one holding a live entry with
// the same name. Scanning in slot order keeps slot assignment deterministic.
//
// Callers overwriting an existing file must delete the old entry first;
// relying on the same-name match alone would work here, but would leave the
// old cluster chain allocated forever.
func (volume *Volume) upsertDirectoryEntry(entry *DirectoryEntry) error {
	rootDir, err := volume.readRootDirectory()
	if err != nil {
		return err
	}

	for slot := 0; slot < RootEntries; slot++ {
		raw := rootDir[slot*DirEntrySize : (slot+1)*DirEntrySize]
		if raw[0] != 0 {
			existing, err := DirectoryEntryFromBytes(raw)
			if err != nil {
				return err
			}
			if !existing.IsDeleted && existing.Name != entry.Name {
				continue
			}
		}

		return volume.writeDirectorySlot(slot, entry.ToBytes())
	}

	return tinyfs.ErrDirectoryFull.WithMessage(
		fmt.Sprintf("all %d directory slots hold live files", RootEntries))
}

// tombstoneFile marks the live entry with the given name as deleted. The
// slot's sizes and first cluster are left in place; only the tombstone byte
// changes. The slot becomes reusable by any later upsert.
func (volume *Volume) tombstoneFile(name string) error {
	_, slot, found, err := volume.findFile(name)
	if err != nil {
		return err
	}
	if !found {
		return tinyfs.ErrNotFound.WithMessage(name)
	}

	raw := make([]byte, DirEntrySize)
	if err := volume.readAt(directorySlotOffset(slot), raw); err != nil {
		return err
	}
	raw[44] = 1
	return volume.writeDirectorySlot(slot, raw)
}
