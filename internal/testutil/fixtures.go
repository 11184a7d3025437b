package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/notion-export/pkg/client"
)

// JSON is a decoded Notion object used to build fixtures.
type JSON = map[string]any

func richText(text string) []JSON {
	if text == "" {
		return []JSON{}
	}
	return []JSON{{"type": "text", "plain_text": text, "text": JSON{"content": text}}}
}

// PageJSON builds a page object.
func PageJSON(id string, props JSON, edited time.Time) JSON {
	if props == nil {
		props = JSON{}
	}
	return JSON{
		"object":           "page",
		"id":               id,
		"created_time":     edited.Add(-time.Hour).UTC().Format(time.RFC3339),
		"last_edited_time": edited.UTC().Format(time.RFC3339),
		"url":              "https://www.notion.so/" + id,
		"archived":         false,
		"properties":       props,
	}
}

// TitleProp builds a title property value.
func TitleProp(text string) JSON {
	return JSON{"id": "title", "type": "title", "title": richText(text)}
}

// RichTextProp builds a rich_text property value.
func RichTextProp(text string) JSON {
	return JSON{"type": "rich_text", "rich_text": richText(text)}
}

// SelectProp builds a select property value.
func SelectProp(name string) JSON {
	if name == "" {
		return JSON{"type": "select", "select": nil}
	}
	return JSON{"type": "select", "select": JSON{"name": name}}
}

// MultiSelectProp builds a multi_select property value.
func MultiSelectProp(names ...string) JSON {
	opts := make([]JSON, 0, len(names))
	for _, n := range names {
		opts = append(opts, JSON{"name": n})
	}
	return JSON{"type": "multi_select", "multi_select": opts}
}

// CheckboxProp builds a checkbox property value.
func CheckboxProp(checked bool) JSON {
	return JSON{"type": "checkbox", "checkbox": checked}
}

// FormulaBoolProp builds a boolean formula property value.
func FormulaBoolProp(value bool) JSON {
	return JSON{"type": "formula", "formula": JSON{"type": "boolean", "boolean": value}}
}

// DatabaseJSON builds a database object. options maps a select property
// name to its declared option order.
func DatabaseJSON(id, title string, options map[string][]string) JSON {
	props := JSON{"Name": JSON{"id": "title", "name": "Name", "type": "title", "title": JSON{}}}
	for name, names := range options {
		opts := make([]JSON, 0, len(names))
		for _, n := range names {
			opts = append(opts, JSON{"name": n})
		}
		props[name] = JSON{"id": name, "name": name, "type": "select", "select": JSON{"options": opts}}
	}
	return JSON{
		"object":     "database",
		"id":         id,
		"title":      richText(title),
		"url":        "https://www.notion.so/" + id,
		"properties": props,
	}
}

func blockJSON(id, typ string, payload JSON) JSON {
	return JSON{
		"object":       "block",
		"id":           id,
		"type":         typ,
		"has_children": false,
		typ:            payload,
	}
}

// ParagraphJSON builds a paragraph block.
func ParagraphJSON(id, text string) JSON {
	return blockJSON(id, "paragraph", JSON{"rich_text": richText(text)})
}

// HeadingJSON builds a heading_1..3 block.
func HeadingJSON(id string, level int, text string) JSON {
	return blockJSON(id, fmt.Sprintf("heading_%d", level), JSON{"rich_text": richText(text)})
}

// QuoteJSON builds a quote block.
func QuoteJSON(id, text string) JSON {
	return blockJSON(id, "quote", JSON{"rich_text": richText(text)})
}

// CalloutJSON builds a callout block.
func CalloutJSON(id, text string) JSON {
	return blockJSON(id, "callout", JSON{"rich_text": richText(text), "icon": JSON{"type": "emoji", "emoji": "💡"}})
}

// BulletedJSON builds a bulleted_list_item block.
func BulletedJSON(id, text string) JSON {
	return blockJSON(id, "bulleted_list_item", JSON{"rich_text": richText(text)})
}

// NumberedJSON builds a numbered_list_item block.
func NumberedJSON(id, text string) JSON {
	return blockJSON(id, "numbered_list_item", JSON{"rich_text": richText(text)})
}

// ToDoJSON builds a to_do block.
func ToDoJSON(id, text string, checked bool) JSON {
	return blockJSON(id, "to_do", JSON{"rich_text": richText(text), "checked": checked})
}

// ToggleJSON builds a toggle block.
func ToggleJSON(id, text string) JSON {
	return blockJSON(id, "toggle", JSON{"rich_text": richText(text)})
}

// CodeJSON builds a code block.
func CodeJSON(id, language, text string) JSON {
	return blockJSON(id, "code", JSON{"rich_text": richText(text), "language": language})
}

// DividerJSON builds a divider block.
func DividerJSON(id string) JSON {
	return blockJSON(id, "divider", JSON{})
}

// ChildPageJSON builds a child_page block. Child pages always have children
// to fetch.
func ChildPageJSON(id, title string) JSON {
	b := blockJSON(id, "child_page", JSON{"title": title})
	b["has_children"] = true
	return b
}

// UnsupportedJSON builds a block of a type the renderer does not know.
func UnsupportedJSON(id, typ string) JSON {
	return blockJSON(id, typ, JSON{})
}

// WithChildren marks a block as having children.
func WithChildren(block JSON) JSON {
	block["has_children"] = true
	return block
}

// Block converts a fixture into a client.Block.
func Block(raw JSON) client.Block {
	var b client.Block
	mustRoundTrip(raw, &b)
	return b
}

// Blocks converts fixtures into client.Blocks.
func Blocks(raws ...JSON) []client.Block {
	out := make([]client.Block, 0, len(raws))
	for _, r := range raws {
		out = append(out, Block(r))
	}
	return out
}

// Page converts a fixture into a client.Page.
func Page(raw JSON) client.Page {
	var p client.Page
	mustRoundTrip(raw, &p)
	return p
}

// Database converts a fixture into a client.Database.
func Database(raw JSON) client.Database {
	var d client.Database
	mustRoundTrip(raw, &d)
	return d
}

func mustRoundTrip(in any, out any) {
	data, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
}

// Epoch is a fixed timestamp for fixtures that do not care about time.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
