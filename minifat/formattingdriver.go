package minifat

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/Swizzzer/tinyfs"
	"github.com/noxer/bytewriter"
)

// volumeIdentifier sits at bytes 3..10 of the boot sector: seven ASCII
// characters and a trailing space, mirroring the OEM-name field of classic
// FAT boot sectors.
const volumeIdentifier = "MINIFAT "

// Format creates or truncates the host file at `path`, writes a fresh empty
// volume layout into it, and returns a mounted handle.
func Format(path string) (*Volume, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, tinyfs.ErrIOFailed.Wrap(err)
	}

	if err := file.Truncate(TotalImageBytes); err != nil {
		file.Close()
		return nil, tinyfs.ErrIOFailed.Wrap(err)
	}

	volume := &Volume{stream: file, file: file}
	if err := volume.writeEmptyLayout(); err != nil {
		file.Close()
		return nil, err
	}
	return volume, nil
}

// FormatStream writes a fresh empty volume layout onto an existing stream and
// returns a mounted handle. The stream must already be TotalImageBytes long;
// use this for memory-backed volumes where there's no host file to truncate.
func FormatStream(stream io.ReadWriteSeeker) (*Volume, error) {
	volume := &Volume{stream: stream}
	if err := volume.writeEmptyLayout(); err != nil {
		return nil, err
	}
	return volume, nil
}

func (volume *Volume) writeEmptyLayout() error {
	if err := volume.WriteSector(0, buildBootSector()); err != nil {
		return err
	}

	// The FAT starts out all free, except that the two reserved cluster
	// numbers get end-of-chain markers so they can never be allocated.
	zeroSector := make([]byte, SectorSize)

	firstFATSector := make([]byte, SectorSize)
	binary.LittleEndian.PutUint32(firstFATSector[0:4], FATEndOfChain)
	binary.LittleEndian.PutUint32(firstFATSector[4:8], FATEndOfChain)
	if err := volume.WriteSector(fatStartSector, firstFATSector); err != nil {
		return err
	}
	for i := uint(1); i < FATSectors; i++ {
		if err := volume.WriteSector(fatStartSector+i, zeroSector); err != nil {
			return err
		}
	}

	for i := uint(0); i < RootDirSectors; i++ {
		if err := volume.WriteSector(rootDirStartSector+i, zeroSector); err != nil {
			return err
		}
	}

	return volume.Flush()
}

// buildBootSector constructs the boot sector: a dummy x86 jump, the volume
// identifier, the BPB-style geometry fields, and the 0x55AA signature in the
// last two bytes. Everything not listed stays zero.
func buildBootSector() []byte {
	sector := make([]byte, SectorSize)
	writer := bytewriter.New(sector)

	writer.Write([]byte{0xEB, 0x3C, 0x90})
	writer.Write([]byte(volumeIdentifier))
	writer.Write([]byte{SectorsPerCluster})
	binary.Write(writer, binary.LittleEndian, uint16(BootSectors))
	writer.Write([]byte{1}) // number of FATs
	binary.Write(writer, binary.LittleEndian, uint16(RootEntries))
	binary.Write(writer, binary.LittleEndian, uint32(TotalSectors))
	binary.Write(writer, binary.LittleEndian, uint16(FATSectors))

	sector[SectorSize-2] = 0x55
	sector[SectorSize-1] = 0xAA
	return sector
}
