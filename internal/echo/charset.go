package echo

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Unicode charsets a JSON body may be declared in. Only the "utf-" family is accepted; utf-8 needs no decoding.
var charsets = map[string]encoding.Encoding{
	"utf-8":    nil,
	"utf-16":   unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-32":   utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"utf-32le": utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"utf-32be": utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
}

func lookupCharset(charset string) (encoding.Encoding, error) {
	enc, found := charsets[strings.ToLower(charset)]
	if !found {
		return nil, &UnsupportedCharsetError{Charset: charset}
	}
	return enc, nil
}

// toUTF8 transcodes body with enc and strips a leading byte order mark. A nil enc means utf-8.
func toUTF8(body []byte, enc encoding.Encoding) ([]byte, error) {
	if enc != nil {
		decoded, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return nil, &ParseError{Cause: errors.Wrap(err, "failed to decode body")}
		}
		body = decoded
	}
	return bytes.TrimPrefix(body, utf8BOM), nil
}
