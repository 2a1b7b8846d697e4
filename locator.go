package ufogfx

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
)

// Tag identifies the decoder a Locator is dispatched to.
type Tag int

const (
	TagPCX Tag = iota + 1
	TagRAW
	TagPCK
	TagPCKStrat
	TagPCKShadow
	TagLOFTemps
	TagImage
	numTags
)

var tagNames = [numTags]string{
	TagPCX:       "PCX",
	TagRAW:       "RAW",
	TagPCK:       "PCK",
	TagPCKStrat:  "PCKSTRAT",
	TagPCKShadow: "PCKSHADOW",
	TagLOFTemps:  "LOFTEMPS",
	TagImage:     "IMAGE",
}

// TagPCX and TagImage are never written in a locator, they are implied by
// the extension
var prefixes = map[string]Tag{
	"RAW":       TagRAW,
	"PCK":       TagPCK,
	"PCKSTRAT":  TagPCKStrat,
	"PCKSHADOW": TagPCKShadow,
	"LOFTEMPS":  TagLOFTemps,
}

func (t Tag) String() string {
	if t <= 0 || t >= numTags {
		return "Tag(" + strconv.Itoa(int(t)) + ")"
	}
	return tagNames[t]
}

type kind int

const (
	kindPath kind = iota
	kindInt
)

var schemas = [numTags][]kind{
	TagPCX:       {kindPath},
	TagRAW:       {kindPath, kindInt, kindInt, kindPath},
	TagPCK:       {kindPath, kindPath, kindInt, kindPath},
	TagPCKStrat:  {kindPath, kindPath, kindInt, kindPath},
	TagPCKShadow: {kindPath, kindPath, kindInt, kindPath},
	TagLOFTemps:  {kindPath, kindPath, kindInt},
	TagImage:     {kindPath},
}

// Bare paths are dispatched by extension
var extensions = map[string]Tag{
	".pcx": TagPCX,
	".png": TagImage,
	".bmp": TagImage,
}

// ErrInvalidLocator is matched by every error returned from Parse.
var ErrInvalidLocator = errors.New("invalid locator")

// ParseError describes why a locator string was rejected.
type ParseError struct {
	Locator string
	Token   string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid locator %q: %s", e.Locator, e.Reason)
	}
	return fmt.Sprintf("invalid locator %q: token %q: %s", e.Locator, e.Token, e.Reason)
}

// Unwrap returns ErrInvalidLocator
func (e *ParseError) Unwrap() error {
	return ErrInvalidLocator
}

// Locator is a parsed locator string. The zero value is not valid.
type Locator struct {
	tag    Tag
	params []string
	ints   []int
}

// Tag returns the decoder tag.
func (l Locator) Tag() Tag {
	return l.tag
}

// Params returns a copy of the parameters following the tag.
func (l Locator) Params() []string {
	return append([]string(nil), l.params...)
}

func (l Locator) file(i int) string {
	return l.params[i]
}

func (l Locator) number(i int) int {
	return l.ints[i]
}

// String returns the canonical form of the locator.
func (l Locator) String() string {
	if l.tag == TagPCX || l.tag == TagImage {
		return l.params[0]
	}
	return l.tag.String() + ":" + strings.Join(l.params, ":")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Parse parses a locator of the form TAG:param:param... or a bare path to a
// .pcx, .png or .bmp file. It does no I/O. Any error is a *ParseError.
func Parse(s string) (Locator, error) {
	if s == "" {
		return Locator{}, &ParseError{Locator: s, Reason: "empty locator"}
	}

	tokens := strings.Split(s, ":")

	tag, ok := prefixes[tokens[0]]
	params := tokens[1:]
	if !ok {
		if tag, ok = extensions[strings.ToLower(path.Ext(s))]; !ok {
			return Locator{}, &ParseError{Locator: s, Token: tokens[0], Reason: "unknown tag"}
		}
		params = []string{s}
	}

	schema := schemas[tag]
	if len(params) != len(schema) {
		return Locator{}, &ParseError{Locator: s, Reason: fmt.Sprintf("%s takes %d parameters, got %d", tag, len(schema), len(params))}
	}

	l := Locator{
		tag:    tag,
		params: make([]string, len(params)),
		ints:   make([]int, len(params)),
	}
	for i, p := range params {
		switch {
		case p == "":
			return Locator{}, &ParseError{Locator: s, Reason: fmt.Sprintf("parameter %d is empty", i+1)}
		case schema[i] == kindPath:
			if !fs.ValidPath(p) {
				return Locator{}, &ParseError{Locator: s, Token: p, Reason: "invalid path"}
			}
			l.params[i] = p
		case schema[i] == kindInt:
			if !isDigits(p) {
				return Locator{}, &ParseError{Locator: s, Token: p, Reason: "not a non-negative integer"}
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				return Locator{}, &ParseError{Locator: s, Token: p, Reason: "integer out of range"}
			}
			l.params[i], l.ints[i] = strconv.Itoa(n), n
		}
	}

	return l, nil
}
