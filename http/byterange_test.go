package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		header string
		size   int64
		want   ByteRange
	}{
		{"bytes=0-0", 1000, ByteRange{0, 0}},
		{"bytes=-1000", 1000, ByteRange{0, 999}},
		{"bytes=-5000", 1000, ByteRange{0, 999}},
		{"bytes=-1", 1000, ByteRange{999, 999}},
		{"bytes=900-", 1000, ByteRange{900, 999}},
		{"bytes=100-199", 1000, ByteRange{100, 199}},
		{"bytes=500-99999", 1000, ByteRange{500, 999}},
		{"bytes=999-999", 1000, ByteRange{999, 999}},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.End-tt.want.Start+1, got.Length())
		})
	}
}

func TestParseRangeInvalid(t *testing.T) {
	tests := []string{
		"bytes=1000-",
		"bytes=2000-3000",
		"bytes=-0",
		"bytes=500-100",
		"bytes=",
		"bytes=-",
		"bytes=abc-",
		"bytes=0-1,5-6",
		"items=0-1",
		"0-1",
		"",
	}

	for _, header := range tests {
		t.Run(header, func(t *testing.T) {
			_, err := ParseRange(header, 1000)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}
}

func TestParseRangeEmptyResource(t *testing.T) {
	_, err := ParseRange("bytes=0-", 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestContentRange(t *testing.T) {
	assert.Equal(t, "bytes 900-999/1000", ByteRange{900, 999}.ContentRange(1000))
	assert.Equal(t, "bytes 0-0/1", ByteRange{0, 0}.ContentRange(1))
}
