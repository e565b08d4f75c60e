package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"jxscout/internal/protocol"
	"jxscout/internal/tree"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *AnalyzeResponseCLI:
		return formatAnalyzeHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

// AnalyzeResponseCLI is the rendered view of one file
type AnalyzeResponseCLI struct {
	FilePath string   `json:"filePath"`
	State    string   `json:"state"`
	Title    string   `json:"title"`
	Rows     []RowCLI `json:"rows"`
}

// RowCLI is one visible tree row
type RowCLI struct {
	Depth       int                `json:"depth"`
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Placeholder bool               `json:"placeholder,omitempty"`
	Match       bool               `json:"match,omitempty"`
	Value       string             `json:"value,omitempty"`
	Start       *protocol.Position `json:"start,omitempty"`
	End         *protocol.Position `json:"end,omitempty"`
	Extra       *protocol.Extra    `json:"extra,omitempty"`
}

func newAnalyzeResponse(filePath string, model *tree.Model) *AnalyzeResponseCLI {
	resp := &AnalyzeResponseCLI{
		FilePath: filePath,
		State:    string(model.State()),
		Title:    model.Title(),
		Rows:     []RowCLI{},
	}
	for _, r := range model.Flatten() {
		row := RowCLI{
			Depth:       r.Depth,
			ID:          r.Item.ID,
			Label:       r.Item.Label,
			Description: r.Item.Description,
			Placeholder: r.Item.Placeholder,
		}
		if f := r.Item.Finding(); f != nil {
			start, end := f.Start, f.End
			row.Match = true
			row.Value = f.Value
			row.Start = &start
			row.End = &end
			if !f.Extra.IsZero() {
				row.Extra = f.Extra
			}
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp
}

func formatAnalyzeHuman(resp *AnalyzeResponseCLI) string {
	var b strings.Builder

	b.WriteString(resp.Title + "\n")
	if resp.FilePath != "" {
		b.WriteString(resp.FilePath + "\n")
	}
	b.WriteString(strings.Repeat("=", 60) + "\n")

	for _, row := range resp.Rows {
		b.WriteString(strings.Repeat("  ", row.Depth))
		b.WriteString(row.Label)
		if row.Description != "" {
			b.WriteString(" (" + row.Description + ")")
		}
		if row.Match && row.Start != nil {
			b.WriteString(fmt.Sprintf("  %d:%d  [%s]", row.Start.Line, row.Start.Column, row.ID))
		}
		b.WriteString("\n")
	}
	return b.String()
}
