package display

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/sudowork/rgbfix/internal/plist"
)

func displayConfig(uuid, encoding, rng string) string {
	return fmt.Sprintf(`				<dict>
					<key>UUID</key>
					<string>%s</string>
					<key>LinkDescription</key>
					<dict>
						<key>PixelEncoding</key>
						<string>%s</string>
						<key>Range</key>
						<string>%s</string>
					</dict>
				</dict>
`, uuid, encoding, rng)
}

func documentWith(configs ...string) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>DisplayAnyUserSets</key>
	<dict>
		<key>Configs</key>
		<array>
			<array>
`)
	for _, c := range configs {
		b.WriteString(c)
	}
	b.WriteString(`			</array>
		</array>
	</dict>
</dict>
</plist>
`)
	return b.Bytes()
}

func mustDecode(t *testing.T, data []byte) *plist.Document {
	t.Helper()
	doc, err := plist.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc
}

func TestFixSingleYPbPrDisplay(t *testing.T) {
	const uuid = "37D8832A-2D66-02CA-B9F7-8F30A301B230"
	doc := mustDecode(t, documentWith(displayConfig(uuid, "1", "0")))

	res := FixDocument(doc)

	if res.Fixed != 1 {
		t.Fatalf("Fixed = %d, want 1", res.Fixed)
	}
	if !reflect.DeepEqual(res.UUIDs, []string{uuid}) {
		t.Errorf("UUIDs = %v, want [%s]", res.UUIDs, uuid)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}

	out, err := plist.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := documentWith(displayConfig(uuid, "0", "1"))
	if !bytes.Equal(out, want) {
		t.Errorf("encoded document:\n%s\nwant:\n%s", out, want)
	}
}

func TestFixIsSelective(t *testing.T) {
	const needsFix = "AAAA-1111"
	const alreadyRGB = "BBBB-2222"
	doc := mustDecode(t, documentWith(
		displayConfig(alreadyRGB, "0", "1"),
		displayConfig(needsFix, "1", "0"),
	))

	res := FixDocument(doc)

	if res.Fixed != 1 {
		t.Fatalf("Fixed = %d, want 1", res.Fixed)
	}
	if !reflect.DeepEqual(res.UUIDs, []string{needsFix}) {
		t.Errorf("UUIDs = %v, want [%s]", res.UUIDs, needsFix)
	}
	if !reflect.DeepEqual(res.Skipped, []string{alreadyRGB}) {
		t.Errorf("Skipped = %v, want [%s]", res.Skipped, alreadyRGB)
	}

	// The untouched subtree must re-encode byte-identically.
	out, err := plist.Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := documentWith(
		displayConfig(alreadyRGB, "0", "1"),
		displayConfig(needsFix, "0", "1"),
	)
	if !bytes.Equal(out, want) {
		t.Errorf("encoded document:\n%s\nwant:\n%s", out, want)
	}
}

func TestFixIsIdempotent(t *testing.T) {
	doc := mustDecode(t, documentWith(
		displayConfig("AAAA-1111", "1", "0"),
		displayConfig("BBBB-2222", "1", "0"),
	))

	first := FixDocument(doc)
	if first.Fixed != 2 {
		t.Fatalf("first pass Fixed = %d, want 2", first.Fixed)
	}

	second := FixDocument(doc)
	if second.Fixed != 0 {
		t.Errorf("second pass Fixed = %d, want 0", second.Fixed)
	}
	if len(second.UUIDs) != 0 {
		t.Errorf("second pass UUIDs = %v, want none", second.UUIDs)
	}
}

func TestFixNonMatchingUntouched(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		rng      string
	}{
		{"already rgb", "0", "1"},
		{"rgb limited", "0", "0"},
		{"ypbpr full", "1", "1"},
		{"unexpected value", "2", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := documentWith(displayConfig("CCCC-3333", tt.encoding, tt.rng))
			doc := mustDecode(t, input)

			res := FixDocument(doc)
			if res.Fixed != 0 {
				t.Fatalf("Fixed = %d, want 0", res.Fixed)
			}

			out, err := plist.Encode(doc)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(out, input) {
				t.Errorf("document mutated:\n%s\nwant:\n%s", out, input)
			}
		})
	}
}

func TestFixSkipsConfigWithoutUUID(t *testing.T) {
	const noUUID = `				<dict>
					<key>LinkDescription</key>
					<dict>
						<key>PixelEncoding</key>
						<string>1</string>
						<key>Range</key>
						<string>0</string>
					</dict>
				</dict>
`
	doc := mustDecode(t, documentWith(noUUID))

	res := FixDocument(doc)
	if res.Fixed != 0 {
		t.Errorf("Fixed = %d, want 0", res.Fixed)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none (missing UUID is an uncounted skip)", res.Errors)
	}
}

func TestFixReportsStructuralErrors(t *testing.T) {
	const broken = `				<dict>
					<key>UUID</key>
					<string>DDDD-4444</string>
					<key>LinkDescription</key>
					<dict>
						<key>PixelEncoding</key>
						<string>1</string>
					</dict>
				</dict>
`
	doc := mustDecode(t, documentWith(
		broken,
		displayConfig("EEEE-5555", "1", "0"),
	))

	res := FixDocument(doc)

	// The broken config is fatal for that entry only; the healthy one is
	// still fixed.
	if res.Fixed != 1 {
		t.Errorf("Fixed = %d, want 1", res.Fixed)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", res.Errors)
	}
	if res.Errors[0].UUID != "DDDD-4444" || res.Errors[0].Key != "Range" {
		t.Errorf("Errors[0] = %+v, want UUID DDDD-4444 missing Range", res.Errors[0])
	}
}

func TestHasAnyLinkDescription(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    bool
		wantErr bool
	}{
		{"present", documentWith(displayConfig("AAAA-1111", "1", "0")), true, false},
		{
			"absent",
			[]byte(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>DisplayAnyUserSets</key>
	<dict>
		<key>Configs</key>
		<array>
			<array>
				<dict>
					<key>UUID</key>
					<string>AAAA-1111</string>
				</dict>
			</array>
		</array>
	</dict>
</dict>
</plist>
`),
			false,
			false,
		},
		{"empty document", []byte(`<plist version="1.0"><dict/></plist>`), false, false},
		{"malformed", []byte("not a plist"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HasAnyLinkDescription(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HasAnyLinkDescription error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ferr *plist.FormatError
				if !errors.As(err, &ferr) {
					t.Errorf("error = %v, want a FormatError", err)
				}
			}
			if got != tt.want {
				t.Errorf("HasAnyLinkDescription = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntegerLeavesAlsoFixed(t *testing.T) {
	// Some OS builds store the two fields as <integer> rather than
	// <string>; the text comparison applies either way and the element
	// type is preserved.
	const intConfig = `				<dict>
					<key>UUID</key>
					<string>FFFF-6666</string>
					<key>LinkDescription</key>
					<dict>
						<key>PixelEncoding</key>
						<integer>1</integer>
						<key>Range</key>
						<integer>0</integer>
					</dict>
				</dict>
`
	doc := mustDecode(t, documentWith(intConfig))

	res := FixDocument(doc)
	if res.Fixed != 1 {
		t.Fatalf("Fixed = %d, want 1", res.Fixed)
	}

	link := doc.Root.Get("DisplayAnyUserSets").Get("Configs").Items[0].Items[0].Get("LinkDescription")
	enc := link.Get("PixelEncoding")
	if enc.Kind != plist.KindOther || enc.Tag != "integer" || enc.Value != "0" {
		t.Errorf("PixelEncoding = %+v, want integer 0", enc)
	}
}
