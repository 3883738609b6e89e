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
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
)

// ErrBlockingTimeout is returned by a MetricsServer when it could not
// acquire the cache lock within the configured blocking_timeout — the
// caller responds 500 rather than hanging the connection open.
var ErrBlockingTimeout = errors.New("httpd: blocking timeout exceeded")

// MetricsServer runs the full scrape-and-serve algorithm for
// /metrics, including cache lookup, against conn. It is implemented
// by pkg/scrape.Coordinator; httpd only needs the narrow contract
// below so it does not import the coordinator's dependencies.
type MetricsServer interface {
	ServeMetrics(ctx context.Context, conn io.Writer) error
}

// Server is the accept loop: one goroutine per connection, modeling
// the original's process-per-request scheduling without the fork, per
// spec §5's REDESIGN note.
type Server struct {
	Listener    net.Listener
	TLSConfig   *tls.Config // non-nil marks this acceptor TLS-capable
	MetricsPort int
	AuthTimeout time.Duration
	Metrics     MetricsServer
	IndexHTML   []byte
	Logger      *zap.SugaredLogger
}

// Serve runs the accept loop until the listener closes or ctx is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Listener.Close()
	}()
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if s.AuthTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.AuthTimeout))
	}

	br := bufio.NewReader(conn)

	if s.TLSConfig != nil {
		isTLS, err := LooksLikeTLS(br)
		if err != nil {
			return
		}
		if isTLS {
			tconn := tls.Server(readerConn{Conn: conn, r: br}, s.TLSConfig)
			if err := tconn.HandshakeContext(ctx); err != nil {
				if s.Logger != nil {
					s.Logger.Warnw("tls handshake failed", "err", err)
				}
				return
			}
			s.serveConn(ctx, bufio.NewReader(tconn), tconn)
			return
		}
		// Plaintext on a TLS-only front door: bounce to https, per
		// spec §4.9.
		req, err := ParseRequest(br)
		if err != nil {
			return
		}
		_ = WriteStatusLine(conn, 301, "Moved Permanently")
		_ = WriteHeader(conn, "Location", RedirectLocation(s.MetricsPort, req.Path))
		_ = EndHeaders(conn)
		return
	}

	s.serveConn(ctx, br, conn)
}

func (s *Server) serveConn(ctx context.Context, br *bufio.Reader, w io.Writer) {
	req, err := ParseRequest(br)
	if err != nil {
		_ = WriteStatusLine(w, 400, "Bad Request")
		_ = EndHeaders(w)
		return
	}

	switch Classify(req) {
	case RouteBadMethod:
		_ = WriteStatusLine(w, 400, "Bad Request")
		_ = EndHeaders(w)
	case RouteForbidden:
		_ = WriteStatusLine(w, 403, "Forbidden")
		_ = EndHeaders(w)
	case RouteIndex:
		_ = WriteStatusLine(w, 200, "OK")
		_ = WriteHeader(w, "Content-Type", "text/html; charset=utf-8")
		_ = EndHeaders(w)
		_, _ = w.Write(s.IndexHTML)
	case RouteMetrics:
		if err := s.Metrics.ServeMetrics(ctx, w); err != nil {
			if errors.Is(err, ErrBlockingTimeout) {
				_ = WriteStatusLine(w, 500, "Internal Server Error")
				_ = EndHeaders(w)
			} else if s.Logger != nil {
				s.Logger.Warnw("scrape failed", "err", err)
			}
		}
	}
}

// readerConn adapts a net.Conn whose leading bytes have already been
// buffered into r back into something crypto/tls can read from
// without losing those bytes.
type readerConn struct {
	net.Conn
	r *bufio.Reader
}

func (c readerConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
