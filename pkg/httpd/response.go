// Copyright 2024 The pgexporter Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
package httpd

import (
	"fmt"
	"io"
	"time"
)

// WriteStatusLine writes "HTTP/1.1 <code> <text>\r\n".
func WriteStatusLine(w io.Writer, code int, text string) error {
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", code, text)
	return err
}

// WriteHeader writes one "Name: value\r\n" header line.
func WriteHeader(w io.Writer, name, value string) error {
	_, err := fmt.Fprintf(w, "%s: %s\r\n", name, value)
	return err
}

// WriteDateHeader writes the current time as an RFC 1123 Date header.
func WriteDateHeader(w io.Writer) error {
	return WriteHeader(w, "Date", time.Now().UTC().Format(time.RFC1123))
}

// EndHeaders writes the blank line that ends the header block.
func EndHeaders(w io.Writer) error {
	_, err := io.WriteString(w, "\r\n")
	return err
}

// ChunkedWriter wraps an io.Writer with HTTP/1.1 chunked
// transfer-encoding framing (spec §4.4: "%zX\r\n" length prefix,
// "\r\n" terminator per chunk, a final zero-length chunk to close).
type ChunkedWriter struct {
	w io.Writer
}

func NewChunkedWriter(w io.Writer) *ChunkedWriter {
	return &ChunkedWriter{w: w}
}

// WriteChunk frames and writes one chunk. An empty payload is a
// no-op — it must never be mistaken for the terminating chunk, which
// only Close emits.
func (c *ChunkedWriter) WriteChunk(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(c.w, "%X\r\n", len(payload)); err != nil {
		return err
	}
	if _, err := c.w.Write(payload); err != nil {
		return err
	}
	_, err := io.WriteString(c.w, "\r\n")
	return err
}

// Write implements io.Writer by framing p as one chunk.
func (c *ChunkedWriter) Write(p []byte) (int, error) {
	if err := c.WriteChunk(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close writes the terminating "0\r\n\r\n" chunk.
func (c *ChunkedWriter) Close() error {
	_, err := io.WriteString(c.w, "0\r\n\r\n")
	return err
}
