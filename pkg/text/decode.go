// Package text provides best-effort decoding of file contents into strings.
package text

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw file contents into text. Contents are treated as UTF-8
// unless a byte order mark indicates otherwise, in which case the mark selects
// the encoding and is stripped. Ill-formed sequences are replaced with the
// Unicode replacement character rather than failing the decode. If the
// transformation itself fails, the raw bytes are returned as a string.
func Decode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}
