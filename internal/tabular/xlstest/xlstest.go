// Package xlstest builds small legacy BIFF8 workbooks for tests.
package xlstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

const (
	sectorSize   = 512
	streamCutoff = 4096

	endOfChain = 0xFFFFFFFE
	freeSector = 0xFFFFFFFF
	fatSector  = 0xFFFFFFFD
)

const (
	recBOF        = 0x0809
	recEOF        = 0x000A
	recBoundSheet = 0x0085
	recNumber     = 0x0203
	recLabel      = 0x0204
)

// Build returns a one-sheet workbook inside a compound document. Cells are
// strings or numbers; a string becomes a LABEL record and a number a NUMBER
// record, so the reader sees them the way Excel 97 writes them.
func Build(sheet string, rows [][]any) []byte {
	return container(workbookStream(sheet, rows))
}

func workbookStream(sheet string, rows [][]any) []byte {
	var globals bytes.Buffer
	writeBOF(&globals, 0x0005)

	// BOUNDSHEET carries the absolute offset of the sheet substream, which
	// follows the globals.
	name := xlString(sheet)
	boundSize := 4 + 2 + len(name)
	globalsLen := globals.Len() + 4 + boundSize + 4
	var bs bytes.Buffer
	binary.Write(&bs, binary.LittleEndian, uint32(globalsLen))
	bs.WriteByte(0) // visible
	bs.WriteByte(0) // worksheet
	bs.Write(name)
	writeRecord(&globals, recBoundSheet, bs.Bytes())
	writeRecord(&globals, recEOF, nil)

	var sh bytes.Buffer
	writeBOF(&sh, 0x0010)
	for r, row := range rows {
		for c, v := range row {
			writeCell(&sh, uint16(r), uint16(c), v)
		}
	}
	writeRecord(&sh, recEOF, nil)

	out := append(globals.Bytes(), sh.Bytes()...)
	if len(out) < streamCutoff {
		out = append(out, make([]byte, streamCutoff-len(out))...)
	}
	return out
}

func writeBOF(buf *bytes.Buffer, kind uint16) {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, struct {
		Version, Kind, Build, Year uint16
		History, LowestVersion     uint32
	}{0x0600, kind, 0x0DBB, 0x07CC, 0, 0x0006})
	writeRecord(buf, recBOF, body.Bytes())
}

func writeCell(buf *bytes.Buffer, row, col uint16, v any) {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, [3]uint16{row, col, 0x000F})
	switch x := v.(type) {
	case string:
		s := xlString(x)
		binary.Write(&body, binary.LittleEndian, uint16(len([]rune(x))))
		body.Write(s[1:])
		writeRecord(buf, recLabel, body.Bytes())
	case int:
		binary.Write(&body, binary.LittleEndian, float64(x))
		writeRecord(buf, recNumber, body.Bytes())
	case float64:
		binary.Write(&body, binary.LittleEndian, x)
		writeRecord(buf, recNumber, body.Bytes())
	default:
		panic(fmt.Sprintf("xlstest: unsupported cell type %T", v))
	}
}

// xlString encodes s as a length byte, an option flag and the characters,
// compressed to one byte each when every rune fits.
func xlString(s string) []byte {
	runes := []rune(s)
	compressed := true
	for _, r := range runes {
		if r > 0xFF {
			compressed = false
			break
		}
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(len(runes)))
	if compressed {
		buf.WriteByte(0)
		for _, r := range runes {
			buf.WriteByte(byte(r))
		}
		return buf.Bytes()
	}
	buf.WriteByte(1)
	for _, u := range utf16.Encode(runes) {
		binary.Write(&buf, binary.LittleEndian, u)
	}
	return buf.Bytes()
}

func writeRecord(buf *bytes.Buffer, id uint16, body []byte) {
	binary.Write(buf, binary.LittleEndian, [2]uint16{id, uint16(len(body))})
	buf.Write(body)
}

type header struct {
	Signature    [2]uint32
	ClassID      [4]uint32
	MinorVersion uint16
	MajorVersion uint16
	ByteOrder    uint16
	SectorShift  uint16
	MiniShift    uint16
	Reserved     [3]uint16
	DirSectors   uint32
	FATSectors   uint32
	DirStart     uint32
	Transaction  uint32
	MiniCutoff   uint32
	MiniFATStart uint32
	MiniFATCount uint32
	DIFATStart   uint32
	DIFATSectors uint32
	DIFAT        [109]uint32
}

// container lays out a compound document as header, one FAT sector, one
// directory sector and the workbook stream.
func container(stream []byte) []byte {
	if pad := len(stream) % sectorSize; pad != 0 {
		stream = append(stream, make([]byte, sectorSize-pad)...)
	}
	streamSectors := len(stream) / sectorSize
	if 2+streamSectors > sectorSize/4 {
		panic("xlstest: workbook too large for a single FAT sector")
	}

	h := header{
		Signature:    [2]uint32{0xE011CFD0, 0xE11AB1A1},
		MinorVersion: 0x003E,
		MajorVersion: 0x0003,
		ByteOrder:    0xFFFE,
		SectorShift:  9,
		MiniShift:    6,
		FATSectors:   1,
		DirStart:     1,
		MiniCutoff:   streamCutoff,
		MiniFATStart: endOfChain,
		DIFATStart:   endOfChain,
	}
	for i := range h.DIFAT {
		h.DIFAT[i] = freeSector
	}
	h.DIFAT[0] = 0

	fat := make([]uint32, sectorSize/4)
	for i := range fat {
		fat[i] = freeSector
	}
	fat[0] = fatSector
	fat[1] = endOfChain
	for i := 0; i < streamSectors; i++ {
		fat[2+i] = uint32(3 + i)
	}
	fat[1+streamSectors] = endOfChain

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, h)
	binary.Write(&out, binary.LittleEndian, fat)

	var dir bytes.Buffer
	writeDirEntry(&dir, "Root Entry", 5, endOfChain, 0)
	writeDirEntry(&dir, "Workbook", 2, 2, uint32(len(stream)))
	dir.Write(make([]byte, sectorSize-dir.Len()))
	out.Write(dir.Bytes())

	out.Write(stream)
	return out.Bytes()
}

func writeDirEntry(buf *bytes.Buffer, name string, kind byte, start, size uint32) {
	var n [32]uint16
	units := utf16.Encode([]rune(name))
	copy(n[:], units)
	binary.Write(buf, binary.LittleEndian, struct {
		Name     [32]uint16
		NameLen  uint16
		Kind     byte
		Color    byte
		Left     uint32
		Right    uint32
		Child    uint32
		ClassID  [8]uint16
		State    uint32
		Times    [2]uint64
		Start    uint32
		Size     uint32
		Reserved uint32
	}{
		Name:    n,
		NameLen: uint16(2 * (len(units) + 1)),
		Kind:    kind,
		Color:   1,
		Left:    freeSector,
		Right:   freeSector,
		Child:   freeSector,
		Start:   start,
		Size:    size,
	})
}
