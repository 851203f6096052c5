package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/bytebufferpool"
)

const samplePost = "POST /api/history/7?from=player HTTP/1.1\r\n" +
	"Host: localhost\r\n" +
	"Content-Type: application/json\r\n" +
	"Content-Length: 16\r\n" +
	"\r\n" +
	`{"position":1.5}`

func parseString(t *testing.T, r io.Reader) *Request {
	t.Helper()

	req, err := Parse(r, &bytebufferpool.ByteBuffer{})
	require.NoError(t, err)
	return req
}

func TestParseRequest(t *testing.T) {
	req := parseString(t, strings.NewReader(samplePost))

	assert.Equal(t, MethodPost, req.Method)
	assert.Equal(t, "/api/history/7", req.Path)
	assert.Equal(t, "from=player", req.Query)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Len(t, req.Headers, 3)
	assert.Equal(t, `{"position":1.5}`, string(req.Body))
	assert.Equal(t, samplePost, string(req.Raw))

	v, found := req.HeaderValue("content-TYPE")
	require.True(t, found)
	assert.Equal(t, "application/json", v)
}

func TestParseIndependentOfFragmentation(t *testing.T) {
	readers := map[string]func() io.Reader{
		"whole":    func() io.Reader { return strings.NewReader(samplePost) },
		"one byte": func() io.Reader { return iotest.OneByteReader(strings.NewReader(samplePost)) },
		"half":     func() io.Reader { return iotest.HalfReader(strings.NewReader(samplePost)) },
		"data+eof": func() io.Reader { return iotest.DataErrReader(strings.NewReader(samplePost)) },
	}

	want := parseString(t, strings.NewReader(samplePost))
	for name, reader := range readers {
		t.Run(name, func(t *testing.T) {
			got := parseString(t, reader())

			assert.Equal(t, want.Method, got.Method)
			assert.Equal(t, want.Path, got.Path)
			assert.Equal(t, want.Query, got.Query)
			assert.Equal(t, want.Headers, got.Headers)
			assert.Equal(t, want.Body, got.Body)
		})
	}
}

func TestParseGrowsBuffer(t *testing.T) {
	long := strings.Repeat("x", 3*InitialBufferSize)
	msg := "GET / HTTP/1.1\r\nX-Long: " + long + "\r\n\r\n"

	buf := &bytebufferpool.ByteBuffer{}
	req, err := Parse(iotest.OneByteReader(strings.NewReader(msg)), buf)
	require.NoError(t, err)

	assert.Equal(t, long, req.Header("X-Long"))
	assert.GreaterOrEqual(t, cap(buf.B), 4*InitialBufferSize)
	assert.Equal(t, 0, cap(buf.B)&(cap(buf.B)-1), "capacity stays a power of two")
}

func TestParseBodyLargerThanInitialBuffer(t *testing.T) {
	body := bytes.Repeat([]byte("b"), 5*InitialBufferSize)
	msg := fmt.Sprintf("PUT /upload HTTP/1.1\r\nContent-Length: %d\r\n\r\n%s", len(body), body)

	req := parseString(t, iotest.HalfReader(strings.NewReader(msg)))
	assert.Equal(t, MethodPut, req.Method)
	assert.Equal(t, body, req.Body)
}

func TestParseCeilingFailsClosed(t *testing.T) {
	t.Run("header block", func(t *testing.T) {
		r := io.MultiReader(
			strings.NewReader("GET / HTTP/1.1\r\nX-Big: "),
			bytes.NewReader(bytes.Repeat([]byte("a"), MaxBufferSize)),
		)
		_, err := Parse(r, &bytebufferpool.ByteBuffer{})
		assert.ErrorIs(t, err, ErrMalformedOrTooLarge)
	})

	t.Run("content length", func(t *testing.T) {
		msg := fmt.Sprintf("POST / HTTP/1.1\r\nContent-Length: %d\r\n\r\n", MaxBufferSize+1)
		_, err := Parse(strings.NewReader(msg), &bytebufferpool.ByteBuffer{})
		assert.ErrorIs(t, err, ErrMalformedOrTooLarge)
	})
}

func TestParseMalformed(t *testing.T) {
	tests := map[string]string{
		"closed before headers end": "GET / HTTP/1.1\r\nHost: x\r\n",
		"short request line":        "GET /\r\n\r\n",
		"bad content length":        "POST / HTTP/1.1\r\nContent-Length: 1x\r\n\r\n",
		"truncated body":            "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc",
		"empty":                     "",
	}

	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(msg), &bytebufferpool.ByteBuffer{})
			assert.ErrorIs(t, err, ErrMalformedOrTooLarge)
		})
	}
}

func TestParseReadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Parse(iotest.ErrReader(boom), &bytebufferpool.ByteBuffer{})
	assert.ErrorIs(t, err, ErrMalformedOrTooLarge)
}

func TestParseBodyIgnoresExtraBytes(t *testing.T) {
	req := parseString(t, strings.NewReader("POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nabcdef"))
	assert.Equal(t, "abc", string(req.Body))

	req = parseString(t, strings.NewReader("POST / HTTP/1.1\r\n\r\ntrailing"))
	assert.Empty(t, req.Body)
}

func TestParseUnknownMethod(t *testing.T) {
	req := parseString(t, strings.NewReader("PATCH /api/videos HTTP/1.1\r\n\r\n"))
	assert.Equal(t, MethodUnknown, req.Method)
	assert.Equal(t, "UNKNOWN", req.Method.String())
}

func TestParseHeaders(t *testing.T) {
	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	b.WriteString("no colon here\r\n")
	b.WriteString("X-Dup:   first\r\n")
	b.WriteString("x-dup: second\r\n")
	for i := range MaxHeaders + 5 {
		fmt.Fprintf(&b, "X-Filler-%d: %d\r\n", i, i)
	}
	b.WriteString("\r\n")

	req := parseString(t, strings.NewReader(b.String()))

	assert.Equal(t, "first", req.Header("X-DUP"))
	assert.Len(t, req.Headers, MaxHeaders)
	assert.True(t, req.HeadersTruncated)

	_, found := req.HeaderValue("no colon here")
	assert.False(t, found)
}

func BenchmarkParse(b *testing.B) {
	msg := []byte(samplePost)
	reader := bytes.NewReader(msg)
	buf := &bytebufferpool.ByteBuffer{}

	for b.Loop() {
		reader.Reset(msg)
		if _, err := Parse(reader, buf); err != nil {
			b.Error(err)
		}
	}
}
