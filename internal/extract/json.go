package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Node is a parsed JSON value: *Object, *Array, Scalar or Null. Objects
// keep their members in document order so that pair sequence follows the
// input.
type Node interface {
	jsonNode()
}

// Object is a JSON object.
type Object struct {
	Members []Member
}

// Member is one key of an Object.
type Member struct {
	Key   string
	Value Node
}

// Array is a JSON array.
type Array struct {
	Items []Node
}

// Scalar is a string, number or boolean in its textual form.
type Scalar struct {
	Text string
}

// Null is JSON null.
type Null struct{}

func (*Object) jsonNode() {}
func (*Array) jsonNode()  {}
func (Scalar) jsonNode()  {}
func (Null) jsonNode()    {}

// Get returns the value of the first member named key.
func (o *Object) Get(key string) (Node, bool) {
	for _, m := range o.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// ParseJSON decodes a single JSON document into a Node tree.
func ParseJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := parseNode(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parsing json: trailing data after document")
	}
	return n, nil
}

func parseNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &Object{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				obj.Members = append(obj.Members, Member{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := &Array{}
			for dec.More() {
				v, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return Scalar{Text: t}, nil
	case json.Number:
		return Scalar{Text: t.String()}, nil
	case bool:
		return Scalar{Text: strconv.FormatBool(t)}, nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// FromJSON extracts pairs from a JSON document. Every object carrying
// scalar "q" and "a" fields yields a pair first; then every scalar leaf
// yields a pair keyed by its space-joined path. Leaves that are the q/a of
// an array element are skipped in the second pass.
func (e *Extractor) FromJSON(data []byte) ([]Pair, error) {
	root, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return e.FromNode(root), nil
}

// FromNode runs both JSON passes over an already parsed tree.
func (e *Extractor) FromNode(root Node) []Pair {
	var cands []candidate
	cands = collectQA(root, cands)
	cands = flatten(root, nil, cands)
	return e.finalize(cands)
}

func collectQA(n Node, out []candidate) []candidate {
	switch v := n.(type) {
	case *Object:
		q, qok := scalarMember(v, "q")
		a, aok := scalarMember(v, "a")
		if qok && aok {
			out = append(out, candidate{key: q, value: a})
		}
		for _, m := range v.Members {
			out = collectQA(m.Value, out)
		}
	case *Array:
		for _, item := range v.Items {
			out = collectQA(item, out)
		}
	}
	return out
}

func scalarMember(o *Object, key string) (string, bool) {
	n, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := n.(Scalar)
	return s.Text, ok
}

func flatten(n Node, path []string, out []candidate) []candidate {
	switch v := n.(type) {
	case *Object:
		for _, m := range v.Members {
			out = flatten(m.Value, appendPath(path, m.Key), out)
		}
	case *Array:
		for i, item := range v.Items {
			out = flatten(item, appendPath(path, strconv.Itoa(i)), out)
		}
	case Scalar:
		if len(path) == 0 || capturedQA(path) {
			return out
		}
		out = append(out, candidate{key: strings.Join(path, " "), value: v.Text})
	}
	return out
}

func appendPath(path []string, seg string) []string {
	p := make([]string, len(path), len(path)+1)
	copy(p, path)
	return append(p, seg)
}

// capturedQA reports whether path ends in <index>.q or <index>.a.
func capturedQA(path []string) bool {
	if len(path) < 2 {
		return false
	}
	last := path[len(path)-1]
	if last != "q" && last != "a" {
		return false
	}
	_, err := strconv.Atoi(path[len(path)-2])
	return err == nil
}
