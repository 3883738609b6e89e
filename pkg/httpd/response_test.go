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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkedWriterFramesPayload(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)
	require.NoError(t, cw.WriteChunk([]byte("hello")))
	require.NoError(t, cw.Close())
	require.Equal(t, "5\r\nhello\r\n0\r\n\r\n", buf.String())
}

func TestChunkedWriterSkipsEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)
	require.NoError(t, cw.WriteChunk(nil))
	require.Equal(t, "", buf.String())
}

func TestWriteHeaderBlock(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatusLine(&buf, 200, "OK"))
	require.NoError(t, WriteHeader(&buf, "Content-Type", "text/plain"))
	require.NoError(t, EndHeaders(&buf))
	require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n", buf.String())
}
