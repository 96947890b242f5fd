// Package docid implements the identifier codec for tree-backed collections.
//
// An identifier is an opaque, URL-safe token that decodes to a normalized
// path relative to the collection root:
//
//	"docs/report.pdf"  <->  "ZG9jcy9yZXBvcnQucGRm"
//	""  (root)         <->  ""
//
// Tokens are validated when an ID is constructed. Everything downstream
// assumes that an ID value is safe to join under a collection root.
//
// Parsing is tolerant and canonicalizing: trailing "=" padding is accepted,
// and a token whose path is not normalized ("a//b", "a/./b") is re-encoded
// from the normalized path. Tokens produced by Encode always round-trip
// unchanged.
package docid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalidIdentifier is returned when a token cannot be decoded or decodes
// to a path containing characters that are illegal on the host filesystem.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// invalidPath matches control characters and the reserved < > : " \ | ? * set.
var invalidPath = regexp.MustCompile(`[<>:"\\|?*\x00-\x1F]`)

var encoding = base64.RawURLEncoding

// ID identifies a document inside a collection.
//
// The zero value is the collection root. IDs are comparable and can be used
// as map keys.
type ID struct {
	token string
}

// Root is the identifier of the collection root (the encoding of "").
var Root = ID{}

// Normalize cleans p as if it were joined under a synthetic root and strips
// the leading separator. "..", "." and duplicate separators are resolved, so
// the result never escapes the root.
func Normalize(p string) string {
	return path.Join("/", p)[1:]
}

// Encode normalizes p and returns its token.
func Encode(p string) string {
	return encoding.EncodeToString([]byte(Normalize(p)))
}

// Decode returns the raw path carried by token, or "" if token is malformed.
func Decode(token string) string {
	raw, err := encoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return ""
	}
	return string(raw)
}

// Parse validates token and wraps it in an ID.
func Parse(token string) (ID, error) {
	if token == "" {
		return Root, nil
	}

	raw, err := encoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return Root, fmt.Errorf("%w: %q is not a valid token", ErrInvalidIdentifier, token)
	}
	if !utf8.Valid(raw) || invalidPath.Match(raw) {
		return Root, fmt.Errorf("%w: %q decodes to an unsafe path", ErrInvalidIdentifier, token)
	}

	// Re-encode so that equal paths always carry equal tokens.
	return ID{token: Encode(string(raw))}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(token string) ID {
	id, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return id
}

// FromPath builds the ID for a path relative to the collection root.
func FromPath(p string) (ID, error) {
	return Parse(Encode(p))
}

// Identifier is implemented by values that carry an ID, such as documents.
type Identifier interface {
	Identifier() ID
}

// FromIdentifierLike accepts a raw token, an ID (or pointer to one), a value
// exposing an Identifier, a decoded object carrying an "id" field, or nil.
// Nil and any other input yield the root.
func FromIdentifierLike(v any) (ID, error) {
	switch value := v.(type) {
	case nil:
		return Root, nil
	case string:
		return Parse(value)
	case ID:
		return value, nil
	case *ID:
		if value == nil {
			return Root, nil
		}
		return *value, nil
	case Identifier:
		return value.Identifier(), nil
	case map[string]any:
		return FromIdentifierLike(value["id"])
	case map[string]string:
		return Parse(value["id"])
	default:
		return Root, nil
	}
}

// String returns the encoded token.
func (id ID) String() string {
	return id.token
}

// Path returns the normalized relative path carried by the identifier.
func (id ID) Path() string {
	return Normalize(Decode(id.token))
}

// IsRoot reports whether the identifier addresses the collection root.
func (id ID) IsRoot() bool {
	return id.Path() == ""
}

// Name returns the last path element ("" for the root).
func (id ID) Name() string {
	p := id.Path()
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Parent returns the identifier of the containing directory.
// The parent of the root is the root.
func (id ID) Parent() ID {
	dir := path.Dir(id.Path())
	if dir == "." {
		dir = ""
	}
	return ID{token: Encode(dir)}
}

// Child returns the identifier of name inside id.
func (id ID) Child(name string) (ID, error) {
	return FromPath(path.Join(id.Path(), name))
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.token), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the token.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// GoString makes IDs readable in test failures.
func (id ID) GoString() string {
	return fmt.Sprintf("docid.ID(%q)", id.Path())
}
