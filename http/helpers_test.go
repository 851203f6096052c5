package http

import (
	"bufio"
	"bytes"
	"io"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func readResponse(t *testing.T, raw []byte) *nethttp.Response {
	t.Helper()

	res, err := nethttp.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func readBody(t *testing.T, res *nethttp.Response) string {
	t.Helper()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(body)
}
