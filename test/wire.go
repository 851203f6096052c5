// Package test holds helpers for exercising a server over an in-memory
// connection and for building fixture trees.
package test

import (
	"bufio"
	"bytes"
	"io"
	"net"
	nethttp "net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freekieb7/reel/http"
)

// Do writes raw to srv over a pipe and decodes the single response.
func Do(t *testing.T, srv *http.Server, raw string) *nethttp.Response {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(serverConn)
	}()

	go func() { _, _ = clientConn.Write([]byte(raw)) }()

	res, err := nethttp.ReadResponse(bufio.NewReader(clientConn), nil)
	require.NoError(t, err)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body = io.NopCloser(bytes.NewReader(body))
	<-done
	return res
}

// Body returns the response body as a string.
func Body(t *testing.T, res *nethttp.Response) string {
	t.Helper()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}

// WriteFile creates path, and its parent directories, holding content.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}
