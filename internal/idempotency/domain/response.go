package domain

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// HeaderPair is one response header. Value is kept as raw bytes so replay is byte exact.
type HeaderPair struct {
	Name  string
	Value []byte
}

// SavedResponse is the outcome of a protected action, stored for replay.
type SavedResponse struct {
	StatusCode int
	Headers    []HeaderPair
	Body       []byte
}

// HeadersFromHTTP flattens h into an ordered pair list. Names are sorted; repeated
// values keep their original order.
func HeadersFromHTTP(h http.Header) []HeaderPair {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]HeaderPair, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			pairs = append(pairs, HeaderPair{Name: name, Value: []byte(v)})
		}
	}
	return pairs
}

// Header rebuilds an http.Header from the stored pairs.
func (r *SavedResponse) Header() http.Header {
	h := make(http.Header, len(r.Headers))
	for _, p := range r.Headers {
		h.Add(p.Name, string(p.Value))
	}
	return h
}

// Wire layout: the header list is a sequence of length-delimited field 1 entries,
// each entry holding field 1 (name) and field 2 (value) as length-delimited bytes.
const (
	fieldHeader protowire.Number = 1
	fieldName   protowire.Number = 1
	fieldValue  protowire.Number = 2
)

// EncodeHeaders serializes the header list into its compact binary form.
func EncodeHeaders(headers []HeaderPair) []byte {
	var out []byte
	for _, h := range headers {
		var pair []byte
		pair = protowire.AppendTag(pair, fieldName, protowire.BytesType)
		pair = protowire.AppendString(pair, h.Name)
		pair = protowire.AppendTag(pair, fieldValue, protowire.BytesType)
		pair = protowire.AppendBytes(pair, h.Value)

		out = protowire.AppendTag(out, fieldHeader, protowire.BytesType)
		out = protowire.AppendBytes(out, pair)
	}
	return out
}

// DecodeHeaders parses the output of EncodeHeaders.
func DecodeHeaders(b []byte) ([]HeaderPair, error) {
	var headers []HeaderPair
	for len(b) > 0 {
		entry, rest, err := consumeField(b, fieldHeader)
		if err != nil {
			return nil, fmt.Errorf("decode header list: %w", err)
		}
		b = rest

		pair, err := decodePair(entry)
		if err != nil {
			return nil, fmt.Errorf("decode header %d: %w", len(headers), err)
		}
		headers = append(headers, pair)
	}
	return headers, nil
}

func decodePair(b []byte) (HeaderPair, error) {
	name, rest, err := consumeField(b, fieldName)
	if err != nil {
		return HeaderPair{}, err
	}
	value, rest, err := consumeField(rest, fieldValue)
	if err != nil {
		return HeaderPair{}, err
	}
	if len(rest) != 0 {
		return HeaderPair{}, fmt.Errorf("%d trailing bytes", len(rest))
	}
	return HeaderPair{Name: string(name), Value: bytes.Clone(value)}, nil
}

func consumeField(b []byte, want protowire.Number) (value, rest []byte, err error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return nil, nil, protowire.ParseError(n)
	}
	if num != want || typ != protowire.BytesType {
		return nil, nil, fmt.Errorf("unexpected field %d (wire type %d)", num, typ)
	}
	b = b[n:]

	value, n = protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, protowire.ParseError(n)
	}
	return value, b[n:], nil
}
