package csvimport

// reader.go turns an uploaded file into the text the importer works on.
//
// The importer is not streaming: the whole file is materialized before parsing.
// ReadText bounds that with a size limit, drops a UTF-8 BOM left by Windows
// tools and replaces invalid UTF-8 (e.g. Windows-1252 smart quotes) with U+FFFD.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	// ErrEmptyFile is returned when the input has no content at all.
	ErrEmptyFile = errors.New("empty file")
	// ErrFileTooLarge is returned when the input exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
)

// bomSkippingReader drops a leading UTF-8 BOM on first read.
type bomSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: bufio.NewReader(r)}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// ReadText reads r fully and returns its sanitized text.
// maxBytes <= 0 disables the size limit.
func ReadText(r io.Reader, maxBytes int64) (string, error) {
	src := io.Reader(newBOMSkippingReader(r))
	if maxBytes > 0 {
		src = io.LimitReader(src, maxBytes+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}

	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// StripBOM removes a leading byte-order mark from text.
func StripBOM(text string) string {
	return strings.TrimPrefix(text, "\uFEFF")
}

// splitLines splits text on \r\n, \n or lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
