// Package pdftest builds small text-layer PDFs for tests.
package pdftest

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"fmt"
	"strings"
)

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var (
	fileID     = []byte("statement-ingest")
	ownerEntry = bytes.Repeat([]byte{0x5A}, 32)
)

const permissions int32 = -4

// Build returns a one-page PDF whose text layer holds lines, one per row.
// A non-empty password encrypts it with the standard 40-bit RC4 handler.
func Build(lines []string, password string) []byte {
	return BuildPages([][]string{lines}, password)
}

// BuildPages is Build for several pages.
func BuildPages(pages [][]string, password string) []byte {
	var key []byte
	if password != "" {
		key = fileKey(password)
	}

	nObjs := 3 + 2*len(pages)
	offsets := make([]int, nObjs+1)
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(id int, body []byte) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", id)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	writeObj(1, []byte("<< /Type /Catalog /Pages 2 0 R >>"))
	writeObj(2, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))))
	writeObj(3, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"))

	for i, lines := range pages {
		pageID, contentID := 4+2*i, 5+2*i
		writeObj(pageID, []byte(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 842] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentID)))

		content := contentStream(lines)
		if key != nil {
			content = rc4Bytes(objectKey(key, contentID), content)
		}
		var body bytes.Buffer
		fmt.Fprintf(&body, "<< /Length %d >>\nstream\n", len(content))
		body.Write(content)
		body.WriteString("\nendstream")
		writeObj(contentID, body.Bytes())
	}

	xrefAt := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", nObjs+1)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= nObjs; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /ID [<%x> <%x>]", nObjs+1, fileID, fileID)
	if key != nil {
		fmt.Fprintf(&buf, " /Encrypt << /Filter /Standard /V 1 /R 2 /O <%x> /U <%x> /P %d >>",
			ownerEntry, rc4Bytes(key, passwordPad), permissions)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xrefAt)

	return buf.Bytes()
}

func contentStream(lines []string) []byte {
	var b bytes.Buffer
	b.WriteString("BT\n/F1 10 Tf\n")
	for i, line := range lines {
		fmt.Fprintf(&b, "1 0 0 1 40 %d Tm\n(", 800-14*i)
		for _, r := range line {
			switch {
			case r == '(' || r == ')' || r == '\\':
				b.WriteByte('\\')
				b.WriteByte(byte(r))
			case r < 256:
				b.WriteByte(byte(r))
			default:
				b.WriteByte('?')
			}
		}
		b.WriteString(") Tj\n")
	}
	b.WriteString("ET")
	return b.Bytes()
}

// fileKey is algorithm 2 of the standard security handler, revision 2.
func fileKey(password string) []byte {
	pw := []byte(password)
	h := md5.New()
	if len(pw) >= 32 {
		h.Write(pw[:32])
	} else {
		h.Write(pw)
		h.Write(passwordPad[:32-len(pw)])
	}
	h.Write(ownerEntry)
	perm := permissions
	p := uint32(perm)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(fileID)
	return h.Sum(nil)[:5]
}

func objectKey(key []byte, id int) []byte {
	h := md5.New()
	h.Write(key)
	h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), 0, 0})
	return h.Sum(nil)
}

func rc4Bytes(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}
