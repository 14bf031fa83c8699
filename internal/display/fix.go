// Package display locates per-monitor configuration blocks inside a
// windowserver preferences document and flips the two color-encoding
// fields that indicate a monitor mis-detected as YPbPr.
package display

import (
	"fmt"

	"github.com/sudowork/rgbfix/internal/plist"
)

// Keys and values this package is allowed to touch. PixelEncoding=1 with
// Range=0 is the YPbPr signature; 0/1 forces RGB full range.
const (
	keyLinkDescription = "LinkDescription"
	keyUUID            = "UUID"
	keyPixelEncoding   = "PixelEncoding"
	keyRange           = "Range"

	encodingYPbPr = "1"
	rangeLimited  = "0"
	encodingRGB   = "0"
	rangeFull     = "1"
)

// StructuralError reports a per-display config whose LinkDescription dict
// is missing the expected nested leaves. It is fatal for that config only.
type StructuralError struct {
	UUID string
	Key  string
}

func (e *StructuralError) Error() string {
	uuid := e.UUID
	if uuid == "" {
		uuid = "<unknown>"
	}
	return fmt.Sprintf("display %s: LinkDescription missing %s", uuid, e.Key)
}

// FixResult summarizes one FixDocument pass.
type FixResult struct {
	Fixed   int
	UUIDs   []string           // displays actually rewritten
	Skipped []string           // displays inspected but already correct
	Errors  []*StructuralError // configs whose structure violated the contract
}

// HasAnyLinkDescription reports whether the raw document contains at least
// one LinkDescription field, via the flattened mapping view. The field only
// gets written on OS X 11.4 and higher; older documents must not be
// reported as fixed. A decode failure is an error, never a false: malformed
// bytes must not look like a clean document without the field.
func HasAnyLinkDescription(data []byte) (bool, error) {
	m, err := plist.MappingView(data)
	if err != nil {
		return false, err
	}
	sets, ok := m["DisplayAnyUserSets"].(map[string]any)
	if !ok {
		return false, nil
	}
	configs, ok := sets["Configs"].([]any)
	if !ok {
		return false, nil
	}
	for _, config := range configs {
		displays, ok := config.([]any)
		if !ok || len(displays) == 0 {
			continue
		}
		first, ok := displays[0].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := first[keyLinkDescription]; ok {
			return true, nil
		}
	}
	return false, nil
}

// FixDocument walks the decoded tree and rewrites every display config
// whose LinkDescription carries the YPbPr signature. Configs without a
// UUID are skipped uncounted; configs with a malformed LinkDescription are
// recorded as structural errors while the rest of the document is still
// evaluated. Running it a second time is a no-op because the guard no
// longer matches.
func FixDocument(doc *plist.Document) FixResult {
	var res FixResult
	doc.Root.Walk(func(n *plist.Node) {
		if n.Kind != plist.KindDict || !n.Has(keyLinkDescription) {
			return
		}
		uuid := n.Get(keyUUID).StringValue()
		if uuid == "" {
			return
		}

		link := n.Get(keyLinkDescription)
		if link == nil || link.Kind != plist.KindDict {
			res.Errors = append(res.Errors, &StructuralError{UUID: uuid, Key: keyLinkDescription})
			return
		}
		encoding := link.Get(keyPixelEncoding)
		if encoding == nil {
			res.Errors = append(res.Errors, &StructuralError{UUID: uuid, Key: keyPixelEncoding})
			return
		}
		rng := link.Get(keyRange)
		if rng == nil {
			res.Errors = append(res.Errors, &StructuralError{UUID: uuid, Key: keyRange})
			return
		}

		if leafText(encoding) != encodingYPbPr || leafText(rng) != rangeLimited {
			res.Skipped = append(res.Skipped, uuid)
			return
		}
		// Rewrite the leaf text in place; the node keeps its original
		// element type (string on some OS builds, integer on others).
		encoding.Value = encodingRGB
		rng.Value = rangeFull
		res.Fixed++
		res.UUIDs = append(res.UUIDs, uuid)
	})
	return res
}

// leafText is the comparable text of a leaf node; container nodes have
// none and never match the guard.
func leafText(n *plist.Node) string {
	switch n.Kind {
	case plist.KindString, plist.KindOther:
		return n.Value
	default:
		return ""
	}
}
