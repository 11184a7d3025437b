package client

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// BlockKind is the rendering-relevant classification of a block type.
type BlockKind string

const (
	KindParagraph    BlockKind = "paragraph"
	KindHeading      BlockKind = "heading"
	KindQuote        BlockKind = "quote"
	KindCallout      BlockKind = "callout"
	KindBulletedItem BlockKind = "bulleted_item"
	KindNumberedItem BlockKind = "numbered_item"
	KindToDo         BlockKind = "to_do"
	KindToggle       BlockKind = "toggle"
	KindCode         BlockKind = "code"
	KindDivider      BlockKind = "divider"
	KindChildPage    BlockKind = "child_page"
	KindOther        BlockKind = "other"
)

// Block is a node of a page's content tree. The type-specific payload is
// kept raw and read on demand; missing fields read as zero values.
type Block struct {
	ID          string
	Type        string
	HasChildren bool

	raw []byte
}

// UnmarshalJSON implements json.Unmarshaler. It only fails on invalid JSON.
func (b *Block) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("block: invalid json")
	}
	parsed := gjson.ParseBytes(data)
	b.ID = parsed.Get("id").String()
	b.Type = parsed.Get("type").String()
	b.HasChildren = parsed.Get("has_children").Bool()
	b.raw = append(b.raw[:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler by returning the original payload.
func (b Block) MarshalJSON() ([]byte, error) {
	if len(b.raw) > 0 {
		return b.raw, nil
	}
	return json.Marshal(map[string]any{
		"object":       "block",
		"id":           b.ID,
		"type":         b.Type,
		"has_children": b.HasChildren,
	})
}

// Kind classifies the block type.
func (b Block) Kind() BlockKind {
	switch b.Type {
	case "paragraph":
		return KindParagraph
	case "heading_1", "heading_2", "heading_3":
		return KindHeading
	case "quote":
		return KindQuote
	case "callout":
		return KindCallout
	case "bulleted_list_item":
		return KindBulletedItem
	case "numbered_list_item":
		return KindNumberedItem
	case "to_do":
		return KindToDo
	case "toggle":
		return KindToggle
	case "code":
		return KindCode
	case "divider":
		return KindDivider
	case "child_page":
		return KindChildPage
	default:
		return KindOther
	}
}

// HeadingLevel returns 1..3 for heading blocks and 0 otherwise.
func (b Block) HeadingLevel() int {
	switch b.Type {
	case "heading_1":
		return 1
	case "heading_2":
		return 2
	case "heading_3":
		return 3
	default:
		return 0
	}
}

// Text concatenates the plain text of the block's rich_text payload.
func (b Block) Text() string {
	if b.Type == "" {
		return ""
	}
	var sb strings.Builder
	for _, run := range b.field("rich_text").Array() {
		sb.WriteString(run.Get("plain_text").String())
	}
	return sb.String()
}

// Language returns the language tag of a code block.
func (b Block) Language() string {
	return b.field("language").String()
}

// Checked reports whether a to_do block is checked.
func (b Block) Checked() bool {
	return b.field("checked").Bool()
}

// ChildTitle returns the title of a child_page block.
func (b Block) ChildTitle() string {
	return b.field("title").String()
}

func (b Block) field(name string) gjson.Result {
	if len(b.raw) == 0 || b.Type == "" {
		return gjson.Result{}
	}
	return gjson.GetBytes(b.raw, b.Type+"."+name)
}
