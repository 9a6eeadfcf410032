// Package docconv extracts plain text from announcement attachments.
//
// PDF and plain-text files are handled locally. HWP/HWPX files go through an
// external conversion service reached over an authenticated session that is
// created lazily on first need, reused for the worker's remaining jobs, and
// torn down on shutdown. The pipeline treats all of this as an opaque
// text function: unreadable documents yield empty text, not an error.
package docconv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	rpdf "rsc.io/pdf"
)

// Converter implements pipeline.TextConverter over local parsing plus an
// optional HWP conversion session. One Converter per worker process.
type Converter struct {
	hwpEndpoint string

	mu      sync.Mutex
	session *Session
}

func New(hwpEndpoint string) *Converter {
	return &Converter{hwpEndpoint: hwpEndpoint}
}

// ExtractText returns the plain text of the attachment at path. Unsupported
// or unparseable formats return empty text with a nil error; only I/O
// problems reading the file surface as errors.
func (c *Converter) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := extractPDFText(data)
		if err != nil {
			return "", nil
		}
		return text, nil
	case ".hwp", ".hwpx":
		return c.convertHWP(ctx, filepath.Base(path), data)
	case ".txt", ".text":
		return string(data), nil
	default:
		return "", nil
	}
}

func (c *Converter) convertHWP(ctx context.Context, filename string, data []byte) (string, error) {
	if c.hwpEndpoint == "" {
		return "", nil
	}

	c.mu.Lock()
	if c.session == nil {
		c.session = NewSession(c.hwpEndpoint)
	}
	session := c.session
	c.mu.Unlock()

	text, err := session.Convert(ctx, filename, data)
	if err != nil {
		// conversion-service failures degrade to empty text
		return "", nil
	}
	return text, nil
}

// Close tears down the conversion session if one was ever created.
func (c *Converter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

// extractPDFText pulls text fragments from every page. The parser panics on
// some malformed files, so the recover turns that into an error.
func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}
