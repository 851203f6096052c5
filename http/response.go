package http

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

// FileBody streams Length bytes of the file at Path starting at Offset. A zero
// Length means "up to the end of the file". The path must already be resolved.
type FileBody struct {
	Path     string
	Offset   int64
	Length   int64
	ZeroCopy bool
}

// Response carries either Body or File, never both. Reason defaults to the
// canonical status text and ContentType to application/octet-stream for files.
type Response struct {
	Status      int
	Reason      string
	ContentType string
	Headers     []Header

	Body []byte
	File *FileBody
}

func NewJSONResponse(status int, body []byte) *Response {
	return &Response{Status: status, ContentType: ContentTypeJSON, Body: body}
}

func NewFileResponse(status int, contentType string, file FileBody, headers ...Header) *Response {
	return &Response{Status: status, ContentType: contentType, File: &file, Headers: headers}
}

var headerBufferPool bytebufferpool.Pool

// WriteResponse serializes res onto w. The header block is built in full before
// anything is written, so ErrResponseTooLarge leaves the connection untouched.
func WriteResponse(w io.Writer, res *Response) error {
	if res.File != nil && res.Body != nil {
		return ErrAmbiguousBody
	}
	if res.File != nil {
		return writeFileResponse(w, res)
	}

	header := headerBufferPool.Get()
	defer headerBufferPool.Put(header)

	if err := appendHeaderBlock(header, res, res.ContentType, int64(len(res.Body))); err != nil {
		return err
	}
	if err := writeAll(w, header.B); err != nil {
		return err
	}
	return writeAll(w, res.Body)
}

func writeFileResponse(w io.Writer, res *Response) error {
	body := res.File

	file, err := os.Open(body.Path)
	if err != nil {
		return fmt.Errorf("http: opening file body: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("http: stat file body: %w", err)
	}
	size := info.Size()
	if body.Offset < 0 || body.Offset > size {
		return fmt.Errorf("http: offset %d outside file of %d bytes: %w", body.Offset, size, ErrInvalidRange)
	}

	length := body.Length
	if length <= 0 || length > size-body.Offset {
		length = size - body.Offset
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = ContentTypeOctetStream
	}

	header := headerBufferPool.Get()
	defer headerBufferPool.Put(header)

	if err := appendHeaderBlock(header, res, contentType, length); err != nil {
		return err
	}
	if err := writeAll(w, header.B); err != nil {
		return err
	}

	return transferFile(w, file, body.Offset, length, body.ZeroCopy)
}

func appendHeaderBlock(buf *bytebufferpool.ByteBuffer, res *Response, contentType string, contentLength int64) error {
	reason := res.Reason
	if reason == "" {
		reason = StatusText(res.Status)
	}

	b := buf.B[:0]
	b = append(b, protocolHttp11...)
	b = appendInt(b, int64(res.Status))
	b = append(b, ' ')
	b = append(b, reason...)
	b = append(b, crlf...)
	b = append(b, connectionClose...)
	b = append(b, contentLengthPrefix...)
	b = appendInt(b, contentLength)
	b = append(b, crlf...)
	if contentType != "" {
		b = append(b, contentTypePrefix...)
		b = append(b, contentType...)
		b = append(b, crlf...)
	}
	b = append(b, securityHeaders...)
	for _, h := range res.Headers {
		b = append(b, h.Name...)
		b = append(b, headerSeparator...)
		b = append(b, h.Value...)
		b = append(b, crlf...)
	}
	b = append(b, crlf...)
	buf.B = b

	if len(b) > MaxHeaderBlockSize {
		return fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, len(b))
	}
	return nil
}

// writeAll keeps writing until p is drained. A writer that makes no progress
// without an error is treated as a closed connection.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

func transferFile(w io.Writer, file *os.File, offset, length int64, zeroCopy bool) error {
	if length == 0 {
		return nil
	}

	if zeroCopy {
		written, handled, err := sendFile(w, file, offset, length)
		if err != nil {
			return err
		}
		if handled {
			if written < length {
				return ErrFileShrunk
			}
			return nil
		}
		// Nothing was sent, fall back to copying.
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("http: seeking file body: %w", err)
	}

	chunk := make([]byte, fileChunkSize)
	for remaining := length; remaining > 0; {
		n, err := file.Read(chunk[:min(remaining, int64(len(chunk)))])
		if n > 0 {
			if werr := writeAll(w, chunk[:n]); werr != nil {
				return werr
			}
			remaining -= int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && remaining > 0 {
				return ErrFileShrunk
			}
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("http: reading file body: %w", err)
			}
		}
	}
	return nil
}
