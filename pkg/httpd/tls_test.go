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
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLooksLikeTLSDetectsHandshakeByte(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\x16\x03\x01\x00\x2f"))
	ok, err := LooksLikeTLS(r)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLooksLikeTLSDetectsSSLv2Hello(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\x80\x2e\x01\x00\x02"))
	ok, err := LooksLikeTLS(r)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLooksLikeTLSRejectsPlaintext(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("GET /metrics HTTP/1.1\r\n"))
	ok, err := LooksLikeTLS(r)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedirectLocationBuildsHTTPSURL(t *testing.T) {
	require.Equal(t, "https://localhost:9187/metrics", RedirectLocation(9187, "/metrics"))
}
