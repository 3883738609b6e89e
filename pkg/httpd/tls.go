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
	"strconv"
)

// peekLen is the number of leading bytes inspected to opportunistically
// tell a TLS ClientHello (or legacy SSLv2 hello) apart from plaintext
// HTTP, per spec §4.9: "the front door peeks 5 bytes off the
// connection before deciding how to handle it."
const peekLen = 5

// sslv2RecordMask marks the high bit set on an SSLv2 record's first
// length byte.
const sslv2RecordMask = 0x80

// tlsHandshakeByte is the first byte of a TLS record carrying a
// handshake message (ContentType = handshake).
const tlsHandshakeByte = 0x16

// LooksLikeTLS peeks at the front of a connection and reports whether
// it looks like a TLS handshake or an SSLv2 hello, without consuming
// the peeked bytes — the caller's bufio.Reader keeps them buffered for
// whichever path handles the connection next.
func LooksLikeTLS(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(peekLen)
	if err != nil {
		return false, err
	}
	if b[0] == tlsHandshakeByte {
		return true, nil
	}
	if b[0]&sslv2RecordMask != 0 {
		return true, nil
	}
	return false, nil
}

// RedirectLocation builds the Location header value for a plaintext
// request arriving on the TLS-only metrics port: a 301 bounce to the
// same path over https on localhost (spec §4.9).
func RedirectLocation(port int, path string) string {
	return "https://localhost:" + strconv.Itoa(port) + path
}
