package client

import (
	"encoding/json"
	"testing"
)

func decodeBlock(t *testing.T, raw string) Block {
	t.Helper()
	var b Block
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	return b
}

func TestBlock_Decode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		kind     BlockKind
		text     string
		level    int
		children bool
	}{
		{
			name: "paragraph with several runs",
			raw:  `{"id":"b1","type":"paragraph","has_children":false,"paragraph":{"rich_text":[{"plain_text":"Hello "},{"plain_text":"world"}]}}`,
			kind: KindParagraph,
			text: "Hello world",
		},
		{
			name:  "heading_2",
			raw:   `{"id":"b2","type":"heading_2","heading_2":{"rich_text":[{"plain_text":"Setup"}]}}`,
			kind:  KindHeading,
			text:  "Setup",
			level: 2,
		},
		{
			name:     "toggle with children",
			raw:      `{"id":"b3","type":"toggle","has_children":true,"toggle":{"rich_text":[{"plain_text":"More"}]}}`,
			kind:     KindToggle,
			text:     "More",
			children: true,
		},
		{
			name: "missing payload reads empty",
			raw:  `{"id":"b4","type":"quote"}`,
			kind: KindQuote,
		},
		{
			name: "unknown type",
			raw:  `{"id":"b5","type":"synced_block","synced_block":{}}`,
			kind: KindOther,
		},
		{
			name: "rich_text of wrong shape",
			raw:  `{"id":"b6","type":"paragraph","paragraph":{"rich_text":"oops"}}`,
			kind: KindParagraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := decodeBlock(t, tt.raw)
			if b.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", b.Kind(), tt.kind)
			}
			if b.Text() != tt.text {
				t.Errorf("Text() = %q, want %q", b.Text(), tt.text)
			}
			if b.HeadingLevel() != tt.level {
				t.Errorf("HeadingLevel() = %d, want %d", b.HeadingLevel(), tt.level)
			}
			if b.HasChildren != tt.children {
				t.Errorf("HasChildren = %v, want %v", b.HasChildren, tt.children)
			}
		})
	}
}

func TestBlock_TypeSpecificFields(t *testing.T) {
	code := decodeBlock(t, `{"id":"c","type":"code","code":{"language":"go","rich_text":[{"plain_text":"x := 1"}]}}`)
	if code.Language() != "go" || code.Text() != "x := 1" {
		t.Errorf("code block = %q/%q", code.Language(), code.Text())
	}

	todo := decodeBlock(t, `{"id":"t","type":"to_do","to_do":{"checked":true,"rich_text":[]}}`)
	if !todo.Checked() {
		t.Error("Checked() = false, want true")
	}

	child := decodeBlock(t, `{"id":"p","type":"child_page","has_children":true,"child_page":{"title":"Appendix"}}`)
	if child.Kind() != KindChildPage || child.ChildTitle() != "Appendix" {
		t.Errorf("child page = %q/%q", child.Kind(), child.ChildTitle())
	}
}

func TestBlock_InvalidJSON(t *testing.T) {
	var b Block
	if err := b.UnmarshalJSON([]byte(`{"id":`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestBlock_MarshalKeepsPayload(t *testing.T) {
	raw := `{"id":"b1","type":"divider","divider":{}}`
	b := decodeBlock(t, raw)

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != raw {
		t.Errorf("Marshal() = %s, want %s", out, raw)
	}
}

func TestBlockList_Decode(t *testing.T) {
	raw := `{"object":"list","results":[{"id":"a","type":"divider","divider":{}},{"id":"b","type":"paragraph","paragraph":{"rich_text":[{"plain_text":"x"}]}}],"next_cursor":null,"has_more":false}`

	var list BlockList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(list.Results) != 2 || list.HasMore || list.NextCursor != "" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list.Results[1].Text() != "x" {
		t.Errorf("second block text = %q", list.Results[1].Text())
	}
}
