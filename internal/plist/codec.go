// Package plist decodes and re-encodes Apple property lists as an ordered
// tree of typed nodes. Unlike map-based codecs, the tree keeps dictionary
// entries in document order, which lets a caller rewrite two leaf values
// and re-encode everything else exactly as it was read.
package plist

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	howett "howett.net/plist"
)

// Format is the serialization format a document was read from.
type Format int

const (
	FormatXML Format = iota
	FormatBinary
)

func (f Format) String() string {
	if f == FormatBinary {
		return "binary1"
	}
	return "xml1"
}

// Document is a decoded property list plus the format it arrived in, so it
// can be written back the same way.
type Document struct {
	Root   *Node
	Format Format
}

// FormatError wraps any parse failure of a malformed property list.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed property list: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

var binaryMagic = []byte("bplist00")

// Decode parses a property list in either XML or binary form. XML documents
// are parsed directly into the ordered node tree; binary documents are
// transcoded through the mapping codec, so their dictionary order is
// normalized (keys sorted) rather than preserved.
func Decode(data []byte) (*Document, error) {
	if bytes.HasPrefix(data, binaryMagic) {
		root, err := decodeBinary(data)
		if err != nil {
			return nil, &FormatError{Err: err}
		}
		return &Document{Root: root, Format: FormatBinary}, nil
	}
	root, err := decodeXML(data)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	return &Document{Root: root, Format: FormatXML}, nil
}

// Encode serializes the document back into the format it was decoded from.
// The output is always the canonical plutil form (tab indentation, fixed
// header, minimal escaping): decoding canonical XML and encoding it again
// reproduces the input byte for byte, while other well-formed XML is
// rewritten canonically.
func Encode(doc *Document) ([]byte, error) {
	return EncodeAs(doc, doc.Format)
}

// EncodeAs serializes the document in an explicit format. Encoding a
// document produced by Decode never fails for the XML form; the binary
// form can only fail on values the underlying codec rejects.
func EncodeAs(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatXML:
		return encodeXML(doc.Root), nil
	case FormatBinary:
		return howett.Marshal(toValue(doc.Root), howett.BinaryFormat)
	default:
		return nil, fmt.Errorf("unknown plist format %d", format)
	}
}

// MappingView decodes the same bytes into a plain nested map. It is the
// cheap flattened view used for existence checks; it must always be fed
// the identical byte slice as Decode so the two views cannot diverge.
func MappingView(data []byte) (map[string]any, error) {
	var m map[string]any
	if _, err := howett.Unmarshal(data, &m); err != nil {
		return nil, &FormatError{Err: err}
	}
	return m, nil
}

// JSONView renders the mapping view as indented JSON, the browser's
// diagnostic representation.
func JSONView(data []byte) ([]byte, error) {
	m, err := MappingView(data)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// XML parsing

func decodeXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no <plist> element")
			}
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "plist" {
				return nil, fmt.Errorf("unexpected root element <%s>", se.Name.Local)
			}
			break
		}
	}
	tok, err := nextElement(dec)
	if err != nil {
		return nil, err
	}
	se, ok := tok.(xml.StartElement)
	if !ok {
		return nil, errors.New("empty <plist> element")
	}
	return parseElement(dec, se)
}

// nextElement skips character data, comments, and directives up to the next
// start or end element.
func nextElement(dec *xml.Decoder) (xml.Token, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.StartElement, xml.EndElement:
			return tok, nil
		}
	}
}

func parseElement(dec *xml.Decoder, se xml.StartElement) (*Node, error) {
	switch se.Name.Local {
	case "dict":
		return parseDict(dec)
	case "array":
		return parseArray(dec)
	case "string":
		text, err := elementText(dec, se)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindString, Value: text}, nil
	case "integer", "real", "data", "date", "true", "false":
		text, err := elementText(dec, se)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindOther, Tag: se.Name.Local, Value: text}, nil
	default:
		return nil, fmt.Errorf("unsupported element <%s>", se.Name.Local)
	}
}

// elementText consumes the element's character data up to its end tag.
func elementText(dec *xml.Decoder, se xml.StartElement) (string, error) {
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			return sb.String(), nil
		case xml.StartElement:
			return "", fmt.Errorf("unexpected child <%s> in <%s>", t.Name.Local, se.Name.Local)
		}
	}
}

func parseDict(dec *xml.Decoder) (*Node, error) {
	n := &Node{Kind: KindDict}
	for {
		tok, err := nextElement(dec)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return n, nil
		case xml.StartElement:
			if t.Name.Local != "key" {
				return nil, fmt.Errorf("expected <key> in <dict>, got <%s>", t.Name.Local)
			}
			key, err := elementText(dec, t)
			if err != nil {
				return nil, err
			}
			vtok, err := nextElement(dec)
			if err != nil {
				return nil, err
			}
			vse, ok := vtok.(xml.StartElement)
			if !ok {
				return nil, fmt.Errorf("key %q has no value", key)
			}
			value, err := parseElement(dec, vse)
			if err != nil {
				return nil, err
			}
			n.Pairs = append(n.Pairs, Pair{Key: key, Value: value})
		}
	}
}

func parseArray(dec *xml.Decoder) (*Node, error) {
	n := &Node{Kind: KindArray}
	for {
		tok, err := nextElement(dec)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return n, nil
		case xml.StartElement:
			item, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, item)
		}
	}
}

// XML encoding

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

// Only the characters the plutil xml1 writer escapes; encoding/xml's
// EscapeText would also entity-encode newlines inside <data> payloads.
var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func encodeXML(root *Node) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	writeNode(&b, root, 0)
	b.WriteString("</plist>\n")
	return b.Bytes()
}

func writeNode(b *bytes.Buffer, n *Node, depth int) {
	indent := strings.Repeat("\t", depth)
	switch n.Kind {
	case KindDict:
		if len(n.Pairs) == 0 {
			b.WriteString(indent + "<dict/>\n")
			return
		}
		b.WriteString(indent + "<dict>\n")
		for _, p := range n.Pairs {
			b.WriteString(indent + "\t<key>" + xmlEscaper.Replace(p.Key) + "</key>\n")
			writeNode(b, p.Value, depth+1)
		}
		b.WriteString(indent + "</dict>\n")
	case KindArray:
		if len(n.Items) == 0 {
			b.WriteString(indent + "<array/>\n")
			return
		}
		b.WriteString(indent + "<array>\n")
		for _, item := range n.Items {
			writeNode(b, item, depth+1)
		}
		b.WriteString(indent + "</array>\n")
	case KindString:
		b.WriteString(indent + "<string>" + xmlEscaper.Replace(n.Value) + "</string>\n")
	case KindOther:
		if n.Tag == "true" || n.Tag == "false" {
			b.WriteString(indent + "<" + n.Tag + "/>\n")
			return
		}
		b.WriteString(indent + "<" + n.Tag + ">" + xmlEscaper.Replace(n.Value) + "</" + n.Tag + ">\n")
	}
}

// Binary transcoding

func decodeBinary(data []byte) (*Node, error) {
	var v any
	if _, err := howett.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromValue(v), nil
}

// fromValue converts a mapping-codec value into a node. Map keys are sorted
// so repeated decodes of the same binary document agree.
func fromValue(v any) *Node {
	switch t := v.(type) {
	case map[string]any:
		n := &Node{Kind: KindDict}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			n.Pairs = append(n.Pairs, Pair{Key: k, Value: fromValue(t[k])})
		}
		return n
	case []any:
		n := &Node{Kind: KindArray}
		for _, item := range t {
			n.Items = append(n.Items, fromValue(item))
		}
		return n
	case string:
		return &Node{Kind: KindString, Value: t}
	case bool:
		if t {
			return &Node{Kind: KindOther, Tag: "true"}
		}
		return &Node{Kind: KindOther, Tag: "false"}
	case uint64:
		return &Node{Kind: KindOther, Tag: "integer", Value: strconv.FormatUint(t, 10)}
	case int64:
		return &Node{Kind: KindOther, Tag: "integer", Value: strconv.FormatInt(t, 10)}
	case float64:
		return &Node{Kind: KindOther, Tag: "real", Value: strconv.FormatFloat(t, 'g', -1, 64)}
	case time.Time:
		return &Node{Kind: KindOther, Tag: "date", Value: t.UTC().Format("2006-01-02T15:04:05Z")}
	case []byte:
		return &Node{Kind: KindOther, Tag: "data", Value: base64.StdEncoding.EncodeToString(t)}
	default:
		return &Node{Kind: KindOther, Tag: "string", Value: fmt.Sprint(t)}
	}
}

// toValue converts a node back into a mapping-codec value for binary output.
func toValue(n *Node) any {
	switch n.Kind {
	case KindDict:
		m := make(map[string]any, len(n.Pairs))
		for _, p := range n.Pairs {
			m[p.Key] = toValue(p.Value)
		}
		return m
	case KindArray:
		items := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			items = append(items, toValue(item))
		}
		return items
	case KindString:
		return n.Value
	default:
		switch n.Tag {
		case "true":
			return true
		case "false":
			return false
		case "integer":
			if i, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
				return i
			}
			return n.Value
		case "real":
			if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
				return f
			}
			return n.Value
		case "date":
			if ts, err := time.Parse("2006-01-02T15:04:05Z", n.Value); err == nil {
				return ts
			}
			return n.Value
		case "data":
			if raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), "")); err == nil {
				return raw
			}
			return n.Value
		default:
			return n.Value
		}
	}
}
