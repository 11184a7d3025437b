package client

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// RichText is one run of a Notion rich text array. Only the plain text is kept.
type RichText struct {
	Type      string `json:"type,omitempty"`
	PlainText string `json:"plain_text"`
}

// PlainText concatenates the plain text of every run in order.
func PlainText(runs []RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

// SelectOption is a select / multi-select value or schema option.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// FormulaValue holds the evaluated result of a formula property.
type FormulaValue struct {
	Type    string  `json:"type"`
	Boolean *bool   `json:"boolean,omitempty"`
	String  *string `json:"string,omitempty"`
}

// PropertyValue is a page property value. Unexpected shapes never fail
// decoding; they degrade to a value carrying only its type.
type PropertyValue struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Checkbox    bool           `json:"checkbox,omitempty"`
	Formula     *FormulaValue  `json:"formula,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	type alias PropertyValue
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		parsed := gjson.ParseBytes(data)
		*p = PropertyValue{
			ID:   parsed.Get("id").String(),
			Type: parsed.Get("type").String(),
		}
		return nil
	}
	*p = PropertyValue(a)
	return nil
}

// IsTrue reports whether the property is a checked checkbox or a formula
// evaluating to boolean true.
func (p PropertyValue) IsTrue() bool {
	switch p.Type {
	case "checkbox":
		return p.Checkbox
	case "formula":
		return p.Formula != nil && p.Formula.Boolean != nil && *p.Formula.Boolean
	default:
		return false
	}
}

// Page is a Notion page object as returned by database queries and retrieval.
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	URL            string                   `json:"url"`
	Archived       bool                     `json:"archived"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// OptionList is the options array of a select-like schema property.
type OptionList struct {
	Options []SelectOption `json:"options"`
}

// PropertySchema describes one property of a database schema.
type PropertySchema struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Select      *OptionList `json:"select,omitempty"`
	MultiSelect *OptionList `json:"multi_select,omitempty"`
	Status      *OptionList `json:"status,omitempty"`
}

// Database is a Notion database object.
type Database struct {
	Object     string                    `json:"object"`
	ID         string                    `json:"id"`
	Title      []RichText                `json:"title"`
	URL        string                    `json:"url"`
	Properties map[string]PropertySchema `json:"properties"`
}

// OptionOrder returns the declared option order of the first property in
// candidates (matched case-insensitively) that is a select, multi-select or
// status property. It returns nil when none matches.
func (d *Database) OptionOrder(candidates []string) []string {
	if d == nil {
		return nil
	}
	for _, want := range candidates {
		for name, schema := range d.Properties {
			if !strings.EqualFold(name, want) {
				continue
			}
			var list *OptionList
			switch schema.Type {
			case "select":
				list = schema.Select
			case "multi_select":
				list = schema.MultiSelect
			case "status":
				list = schema.Status
			}
			if list == nil {
				continue
			}
			order := make([]string, 0, len(list.Options))
			for _, opt := range list.Options {
				order = append(order, opt.Name)
			}
			return order
		}
	}
	return nil
}

// Sort is one entry of a database query's sorts array.
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
	Sorts       []Sort `json:"sorts,omitempty"`
}

// QueryResponse is one page of database query results.
type QueryResponse struct {
	Results    []Page `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// BlockList is one page of block children.
type BlockList struct {
	Results    []Block `json:"results"`
	NextCursor string  `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}
