package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-ingest/internal/common"
)

// Extract decodes an in-memory PDF and returns the text of each page.
// An encrypted file opened without the right password yields
// common.ErrPasswordRequired; anything else that stops decoding yields
// common.ErrExtractionFailure, joined by common.ErrEncryption when the file
// is protected by a handler the reader cannot open.
func Extract(data []byte, password string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: PDF library crashed: %v", common.ErrExtractionFailure, r)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrExtractionFailure)
	}

	r, err := openReader(bytes.NewReader(data), int64(len(data)), password)
	if err != nil {
		return nil, err
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", common.ErrExtractionFailure)
	}

	// Method 1: words of each row, left to right
	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Method 2: the page's text runs in content-stream order
	pages = extractByPagePlainText(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	return nil, fmt.Errorf("%w: no readable text layer; the file may be scanned or image-based", common.ErrExtractionFailure)
}

// ExtractFile is Extract for a file on disk.
func ExtractFile(path, password string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailure, err)
	}
	return Extract(data, password)
}

// openReader offers the password once; the library keeps asking until it gets "".
func openReader(ra io.ReaderAt, size int64, password string) (*pdf.Reader, error) {
	offered := false
	r, err := pdf.NewReaderEncrypted(ra, size, func() string {
		if offered {
			return ""
		}
		offered = true
		return password
	})
	if err == nil {
		return r, nil
	}

	if errors.Is(err, pdf.ErrInvalidPassword) {
		if password == "" {
			return nil, common.NewUserError("the PDF is password protected", common.ErrPasswordRequired)
		}
		return nil, common.NewUserError("the PDF password is not correct", common.ErrPasswordRequired)
	}
	if encryptionUnsupported(err) {
		return nil, common.NewUserError(
			"the PDF uses an encryption this tool does not support (AES-256); save an unprotected copy and try again",
			fmt.Errorf("%w: %w: %v", common.ErrExtractionFailure, common.ErrEncryption, err))
	}
	return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailure, err)
}

// encryptionUnsupported reports whether the library refused the security
// handler itself: revisions above 4 or keys longer than 128 bits.
func encryptionUnsupported(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unsupported PDF: encryption") ||
		strings.HasSuffix(msg, "-bit encryption key")
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractByPagePlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

// minReadableChars is the least text a statement page set can carry.
const minReadableChars = 20

// textQuality returns the share of characters that belong in a Portuguese
// statement: ASCII printables, whitespace and Latin-1/Extended-A letters.
// Identity-encoded fonts without a ToUnicode map decode to symbols outside that range.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 0x20 && r < 0x7F) || unicode.IsSpace(r) || (r >= 0xC0 && r < 0x180) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func isReadableText(pages []string) bool {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n >= minReadableChars && textQuality(pages) > 0.6
}
