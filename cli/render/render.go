// Package render provides output rendering for the packetstream CLI.
//
// Format selection:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format always overrides the default
//   - Invalid formats are errors
//
// Render writes one document. Stream writes one record per call, for
// decoded events: a JSON line, a YAML document, or a table row under a
// header printed once.
//
// --no-color affects table output only; TUI mode keeps its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/packetstream/cli/tui"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // caller picks the default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format Format
	out    io.Writer
	header lipgloss.Style

	streamed bool // Stream has written a record
}

// NewRenderer creates a renderer from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatJSON
		if isTTY(os.Stdout) {
			format = FormatTable
		}
	}
	var out io.Writer = os.Stdout
	if c.App != nil && c.App.Writer != nil {
		out = c.App.Writer
	}
	return NewRendererWithWriter(format, c.Bool("no-color"), out), nil
}

// NewRendererWithWriter creates a renderer with a custom writer.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	header := lipgloss.NewRenderer(out).NewStyle()
	if !noColor {
		header = header.Bold(true)
	}
	return &Renderer{
		format: format,
		out:    out,
		header: header,
	}
}

// Format returns the selected format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Stream outputs one record of a sequence. Records should share a type.
func (r *Renderer) Stream(record any) error {
	switch r.format {
	case FormatJSON:
		return json.NewEncoder(r.out).Encode(record)
	case FormatYAML:
		if r.streamed {
			if _, err := fmt.Fprintln(r.out, "---"); err != nil {
				return err
			}
		}
		r.streamed = true
		return r.renderYAML(record)
	case FormatTable:
		v := reflect.Indirect(reflect.ValueOf(record))
		if !r.streamed {
			r.streamed = true
			if _, err := fmt.Fprintln(r.out, r.headerRow(headers(v))); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(r.out, strings.Join(rowValues(v, nil), "\t"))
		return err
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI runs the TUI for the given view type. TUI mode is opt-in and
// only available for views the tui package supports.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

// renderYAML goes through JSON so documents use the json field names.
func (r *Renderer) renderYAML(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (r *Renderer) renderTable(data any) error {
	v := reflect.Indirect(reflect.ValueOf(data))

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			fmt.Fprintln(w, "(no results)")
			return nil
		}
		hs := headers(reflect.Indirect(v.Index(0)))
		fmt.Fprintln(w, r.headerRow(hs))
		for i := range v.Len() {
			fmt.Fprintln(w, strings.Join(rowValues(reflect.Indirect(v.Index(i)), hs), "\t"))
		}
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			if !t.Field(i).IsExported() {
				continue
			}
			fmt.Fprintf(w, "%s:\t%s\n", fieldName(t.Field(i)), formatValue(v.Field(i)))
		}
	case reflect.Map:
		for _, k := range sortedKeys(v) {
			fmt.Fprintf(w, "%s:\t%s\n", k, formatValue(mapIndex(v, k)))
		}
	default:
		fmt.Fprintf(w, "%v\n", data)
	}
	return nil
}

// headerRow styles each cell on its own; lipgloss expands tabs.
func (r *Renderer) headerRow(hs []string) string {
	cells := make([]string, len(hs))
	for i, h := range hs {
		cells[i] = r.header.Render(h)
	}
	return strings.Join(cells, "\t")
}

func headers(v reflect.Value) []string {
	var hs []string
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if t.Field(i).IsExported() {
				hs = append(hs, fieldName(t.Field(i)))
			}
		}
	case reflect.Map:
		hs = sortedKeys(v)
	}
	return hs
}

func rowValues(v reflect.Value, hs []string) []string {
	var values []string
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			if t.Field(i).IsExported() {
				values = append(values, formatValue(v.Field(i)))
			}
		}
	case reflect.Map:
		if hs == nil {
			hs = sortedKeys(v)
		}
		for _, h := range hs {
			values = append(values, formatValue(mapIndex(v, h)))
		}
	default:
		values = append(values, formatValue(v))
	}
	return values
}

// sortedKeys returns the formatted keys of a map in order.
func sortedKeys(v reflect.Value) []string {
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, fmt.Sprint(k.Interface()))
	}
	sort.Strings(keys)
	return keys
}

// mapIndex looks up a map entry by its formatted key. The zero Value is
// returned for a missing key.
func mapIndex(v reflect.Value, key string) reflect.Value {
	iter := v.MapRange()
	for iter.Next() {
		if fmt.Sprint(iter.Key().Interface()) == key {
			return iter.Value()
		}
	}
	return reflect.Value{}
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		if v.Type().Elem().Kind() == reflect.String {
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = v.Index(i).String()
			}
			return strings.Join(parts, ",")
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// isTTY returns true if the file is a terminal.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
