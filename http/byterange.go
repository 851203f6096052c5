package http

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteRange is an inclusive range of a resource, both ends in bytes.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range value for a resource of size bytes.
func (r ByteRange) ContentRange(size int64) string {
	b := make([]byte, 0, 48)
	b = append(b, "bytes "...)
	b = appendInt(b, r.Start)
	b = append(b, '-')
	b = appendInt(b, r.End)
	b = append(b, '/')
	b = appendInt(b, size)
	return string(b)
}

// ParseRange resolves a single "bytes=" range against a resource of size bytes.
// It accepts "start-end", "start-" and "-suffix". An end past the resource is
// clamped, as is a suffix longer than the resource. Everything else, including
// multi-range requests, fails with ErrInvalidRange.
func ParseRange(header string, size int64) (ByteRange, error) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return ByteRange{}, fmt.Errorf("%w: missing bytes unit in %q", ErrInvalidRange, header)
	}
	if size <= 0 {
		return ByteRange{}, fmt.Errorf("%w: empty resource", ErrInvalidRange)
	}

	first, last, found := strings.Cut(spec, "-")
	if !found {
		return ByteRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}

	if first == "" {
		suffix, ok := parseRangeInt(last)
		if !ok || suffix <= 0 {
			return ByteRange{}, fmt.Errorf("%w: suffix %q", ErrInvalidRange, last)
		}
		suffix = min(suffix, size)
		return ByteRange{Start: size - suffix, End: size - 1}, nil
	}

	start, ok := parseRangeInt(first)
	if !ok || start >= size {
		return ByteRange{}, fmt.Errorf("%w: start %q for %d bytes", ErrInvalidRange, first, size)
	}

	end := size - 1
	if last != "" {
		explicit, ok := parseRangeInt(last)
		if !ok || explicit < start {
			return ByteRange{}, fmt.Errorf("%w: end %q", ErrInvalidRange, last)
		}
		end = min(explicit, size-1)
	}

	return ByteRange{Start: start, End: end}, nil
}

func parseRangeInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
