package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes payload as JSON or YAML, or calls table for the default
// format.
func render(w io.Writer, format string, payload any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case formatYAML:
		// Round-trip through JSON so YAML keys follow the json tags.
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func preview(text string, limit int) string {
	runes := []rune(text)
	out := make([]rune, 0, min(len(runes), limit))
	for _, r := range runes {
		if len(out) == limit {
			return string(out) + "…"
		}
		if r == '\n' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
