package fwpkg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/ws63dev/ws63flash/crc16"
)

const (
	magic      = 0xEFBEADDF
	headerSize = 12
	entrySize  = 52
	nameSize   = 32
	maxEntries = 16
	typeLoader = 0
	typeApp    = 1
)

// BinInfo describes one embedded image within a .fwpkg container.
type BinInfo struct {
	// Name is the image name decoded from its NUL-padded 32-byte field.
	Name string

	// Offset is the byte offset within the package file where this
	// image's raw bytes begin.
	Offset uint32

	// Length is the image size in bytes.
	Length uint32

	// BurnAddr is the destination flash address on the target.
	BurnAddr uint32

	// BurnSize is the informational burn size.
	BurnSize uint32

	// Type is 0 for the loader boot image, 1 for an application image.
	// Any other value is reserved and carried through unchanged.
	Type uint32
}

// ImageReader returns a reader over this image's raw bytes within the
// package file backing, given a ReaderAt over the whole package (for
// example the *os.File returned by Open).
func (b BinInfo) ImageReader(backing io.ReaderAt) io.Reader {
	return io.NewSectionReader(backing, int64(b.Offset), int64(b.Length))
}

func (b BinInfo) String() string {
	kind := "app"
	if b.Type == typeLoader {
		kind = "loader"
	}
	return fmt.Sprintf("%-16s type=%-6s offset=0x%08X length=%-8d burn_addr=0x%08X burn_size=%d",
		b.Name, kind, b.Offset, b.Length, b.BurnAddr, b.BurnSize)
}

// Package is the parsed representation of a .fwpkg firmware container.
type Package struct {
	// Crc is the stored header CRC.
	Crc uint16

	// Length is the informational total length from the header.
	Length uint32

	// Entries holds every embedded image in file order.
	Entries []BinInfo
}

// Loader returns the first entry with Type == 0, if any.
func (p *Package) Loader() (BinInfo, bool) {
	for _, e := range p.Entries {
		if e.Type == typeLoader {
			return e, true
		}
	}
	return BinInfo{}, false
}

// Apps returns all entries with Type == 1, in original order.
func (p *Package) Apps() []BinInfo {
	var apps []BinInfo
	for _, e := range p.Entries {
		if e.Type == typeApp {
			apps = append(apps, e)
		}
	}
	return apps
}

// String renders the package header and one line per entry, used by
// the CLI's --show flag.
func (p *Package) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "fwpkg: crc=0x%04X length=%d entries=%d\n", p.Crc, p.Length, len(p.Entries))
	for i, e := range p.Entries {
		fmt.Fprintf(&buf, "  [%d] %s\n", i, e.String())
	}
	return buf.String()
}

// Open opens path, parses it as a .fwpkg container, and returns the
// parsed Package along with the underlying file, kept open so
// BinInfo.ImageReader can stream image bytes directly. The caller owns
// the file and must Close it.
func Open(path string) (*Package, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("fwpkg: open: %w", err)
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("fwpkg: stat: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("fwpkg: stat: %w", err)
	}

	pkg, err := Parse(f, size)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return pkg, f, nil
}

// ParseReader parses a .fwpkg container fully buffered from r. It is a
// convenience wrapper over Parse for readers that are not already a
// ReaderAt (tests, in-memory buffers).
func ParseReader(r io.Reader) (*Package, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fwpkg: read: %w", err)
	}
	return Parse(bytes.NewReader(data), int64(len(data)))
}

// Parse decodes and validates a .fwpkg container read from r, whose
// total size is size bytes.
func Parse(r io.ReaderAt, size int64) (*Package, error) {
	if size < headerSize {
		return nil, &HeaderTruncatedError{Size: int(size)}
	}

	header := make([]byte, headerSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("fwpkg: read header: %w", err)
	}

	gotMagic := binary.LittleEndian.Uint32(header[0:4])
	if gotMagic != magic {
		return nil, &BadMagicError{Got: gotMagic}
	}

	storedCrc := binary.LittleEndian.Uint16(header[4:6])
	count := int(binary.LittleEndian.Uint16(header[6:8]))
	length := binary.LittleEndian.Uint32(header[8:12])

	if count > maxEntries {
		return nil, &TooManyEntriesError{Count: count}
	}

	tableSize := headerSize + entrySize*count
	if size < int64(tableSize) {
		return nil, &EntryTruncatedError{Index: (int(size) - headerSize) / entrySize}
	}

	table := make([]byte, entrySize*count)
	if count > 0 {
		if _, err := r.ReadAt(table, headerSize); err != nil {
			return nil, fmt.Errorf("fwpkg: read entry table: %w", err)
		}
	}

	entries := make([]BinInfo, count)
	for i := 0; i < count; i++ {
		rec := table[i*entrySize : (i+1)*entrySize]

		name, err := decodeName(rec[0:nameSize])
		if err != nil {
			return nil, &NameEncodingError{Index: i}
		}

		entries[i] = BinInfo{
			Name:     name,
			Offset:   binary.LittleEndian.Uint32(rec[32:36]),
			Length:   binary.LittleEndian.Uint32(rec[36:40]),
			BurnAddr: binary.LittleEndian.Uint32(rec[40:44]),
			BurnSize: binary.LittleEndian.Uint32(rec[44:48]),
			Type:     binary.LittleEndian.Uint32(rec[48:52]),
		}
	}

	crcRegion := make([]byte, tableSize-6)
	if _, err := r.ReadAt(crcRegion, 6); err != nil {
		return nil, fmt.Errorf("fwpkg: read crc region: %w", err)
	}
	computed := crc16.Sum(crcRegion)
	if computed != storedCrc {
		return nil, &CrcMismatchError{Want: storedCrc, Got: computed}
	}

	return &Package{
		Crc:     storedCrc,
		Length:  length,
		Entries: entries,
	}, nil
}

// decodeName extracts an entry name from its 32-byte NUL-padded field:
// bytes up to (but excluding) the first 0x00, or all 32 bytes with
// trailing 0x00 stripped if there is no terminator.
func decodeName(field []byte) (string, error) {
	if i := bytes.IndexByte(field, 0x00); i >= 0 {
		field = field[:i]
	} else {
		field = bytes.TrimRight(field, "\x00")
	}
	if !utf8.Valid(field) {
		return "", fmt.Errorf("invalid utf-8")
	}
	return string(field), nil
}
