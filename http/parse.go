package http

import (
	"bytes"
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"
)

// Parse reads a single request from r. The message is accumulated in buf, which
// starts at InitialBufferSize and doubles on demand up to MaxBufferSize. Running
// out of room, a malformed request line, or the peer closing early all fail with
// ErrMalformedOrTooLarge.
func Parse(r io.Reader, buf *bytebufferpool.ByteBuffer) (*Request, error) {
	b := buf.B[:0]
	if cap(b) < InitialBufferSize {
		b = make([]byte, 0, InitialBufferSize)
	}
	defer func() { buf.B = b }()

	headerEnd := -1
	for headerEnd < 0 {
		if len(b) == cap(b) {
			grown, err := grow(b, len(b)+1)
			if err != nil {
				return nil, err
			}
			b = grown
		}

		n, err := r.Read(b[len(b):cap(b)])
		searchFrom := max(len(b)-len(crlfcrlf)+1, 0)
		b = b[:len(b)+n]

		if i := bytes.Index(b[searchFrom:], crlfcrlf); i >= 0 {
			headerEnd = searchFrom + i + len(crlfcrlf)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading headers: %v", ErrMalformedOrTooLarge, err)
		}
	}

	req := &Request{}
	lineEnd := bytes.Index(b, crlf)
	if err := parseRequestLine(req, b[:lineEnd]); err != nil {
		return nil, err
	}
	headerBlock := b[lineEnd+len(crlf) : headerEnd]
	parseHeaders(req, headerBlock)

	contentLength := 0
	if v, found := req.HeaderValue("Content-Length"); found {
		n, err := atoi(trimSpace([]byte(v)))
		if err != nil {
			return nil, fmt.Errorf("%w: content-length %q", ErrMalformedOrTooLarge, v)
		}
		contentLength = n
	}
	if contentLength > MaxBufferSize {
		return nil, fmt.Errorf("%w: content-length %d exceeds %d", ErrMalformedOrTooLarge, contentLength, MaxBufferSize)
	}

	required := headerEnd + contentLength
	if required > cap(b) {
		grown, err := grow(b, required)
		if err != nil {
			return nil, err
		}
		b = grown
	}
	for len(b) < required {
		n, err := r.Read(b[len(b):cap(b)])
		b = b[:len(b)+n]
		if len(b) >= required {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", ErrMalformedOrTooLarge, err)
		}
	}

	req.Body = b[headerEnd:required:required]
	req.Raw = b[:required:required]
	return req, nil
}

// grow doubles the capacity of b until it holds required bytes.
func grow(b []byte, required int) ([]byte, error) {
	newCap := max(cap(b), InitialBufferSize/2) * 2
	for newCap < required {
		newCap *= 2
	}
	if newCap > MaxBufferSize {
		return nil, fmt.Errorf("%w: message exceeds %d bytes", ErrMalformedOrTooLarge, MaxBufferSize)
	}

	grown := make([]byte, len(b), newCap)
	copy(grown, b)
	return grown, nil
}

func parseRequestLine(req *Request, line []byte) error {
	fields := bytes.Fields(line)
	if len(fields) < 3 {
		return fmt.Errorf("%w: request line %q", ErrMalformedOrTooLarge, line)
	}

	req.Method = ParseMethod(fields[0])

	target := fields[1]
	if q := bytes.IndexByte(target, '?'); q >= 0 {
		req.Query = string(target[q+1:])
		target = target[:q]
	}
	req.Path = string(target)
	req.Version = string(fields[2])
	return nil
}

func parseHeaders(req *Request, block []byte) {
	for len(block) > 0 {
		var line []byte
		if i := bytes.Index(block, crlf); i >= 0 {
			line, block = block[:i], block[i+len(crlf):]
		} else {
			line, block = block, nil
		}
		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		if len(req.Headers) >= MaxHeaders {
			req.HeadersTruncated = true
			continue
		}

		req.Headers = append(req.Headers, Header{
			Name:  string(line[:colon]),
			Value: string(trimLeftSpace(line[colon+1:])),
		})
	}
}
