// Package fwpkg parses the .fwpkg firmware container format: a
// CRC-protected header followed by a fixed-size entry table, followed
// by the raw image bytes the entries point into.
//
// # File Format
//
// All integers are little-endian.
//
//	offset  size  field
//	0       4     magic = 0xEFBEADDF
//	4       2     crc16 (over bytes [6 .. 12+52*count))
//	6       2     count (<=16)
//	8       4     length (informational)
//	12      52*N  N entries, each:
//	              0    32  name (NUL-padded UTF-8)
//	              32   4   offset within file
//	              36   4   length
//	              40   4   burn_addr
//	              44   4   burn_size
//	              48   4   type (0=loader, 1=app)
//	12+52N  ...   image payloads, referenced by each entry's offset/length
//
// # Usage
//
//	pkg, file, err := fwpkg.Open("firmware.fwpkg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	loader, ok := pkg.Loader()
//	for _, app := range pkg.Apps() {
//	    r := app.ImageReader(file)
//	    // ... stream r into the YMODEM sender
//	}
package fwpkg
