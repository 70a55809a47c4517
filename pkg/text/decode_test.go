package text

import (
	"testing"
)

// TestDecode tests decoding of well-formed, byte-order-marked, and ill-formed
// contents.
func TestDecode(t *testing.T) {
	testCases := []struct {
		description string
		data        []byte
		expected    string
	}{
		{"empty", nil, ""},
		{"ascii", []byte("hi"), "hi"},
		{"multibyte", []byte("héllo"), "héllo"},
		{"utf8 bom", []byte("\xef\xbb\xbfbye"), "bye"},
		{"utf16le bom", []byte("\xff\xfeh\x00i\x00"), "hi"},
		{"ill-formed", []byte("a\xffb"), "a�b"},
	}
	for _, testCase := range testCases {
		if result := Decode(testCase.data); result != testCase.expected {
			t.Errorf("%s: decoded %q, expected %q", testCase.description, result, testCase.expected)
		}
	}
}
