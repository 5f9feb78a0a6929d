// internal/adapters/output/console.go
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"reconbus/internal/core/domain"
	"reconbus/internal/platform/validator"
)

// Console formats.
const (
	FormatTab  = "tab"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ConsoleWriter prints events one per line as they arrive.
// The json format writes a single array that is closed by Close.
type ConsoleWriter struct {
	mu   sync.Mutex
	w    io.Writer
	opts ConsoleOptions

	csv     *csv.Writer
	written int
	closed  bool
}

// consoleRecord is the json representation of one printed event.
type consoleRecord struct {
	Generated int64  `json:"generated"`
	Type      string `json:"type"`
	Data      string `json:"data"`
	Module    string `json:"module"`
	Source    string `json:"source"`
}

// ConsoleOptions controls how events are printed.
type ConsoleOptions struct {
	// Format is tab, csv or json. Unknown values fall back to tab.
	Format string

	// DataSize truncates data to this many bytes; <= 0 disables truncation.
	DataSize int

	// ShowSource prints the data of the source event as well.
	ShowSource bool

	// StripNewlines removes CR and LF from printed data.
	StripNewlines bool
}

// NewConsoleWriter creates a writer on w.
func NewConsoleWriter(w io.Writer, opts ConsoleOptions) *ConsoleWriter {
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	switch opts.Format {
	case FormatTab, FormatCSV, FormatJSON:
	default:
		opts.Format = FormatTab
	}
	c := &ConsoleWriter{w: w, opts: opts}
	if opts.Format == FormatCSV {
		c.csv = csv.NewWriter(w)
	}
	return c
}

// Format returns the effective format.
func (c *ConsoleWriter) Format() string { return c.opts.Format }

// Write prints ev.
func (c *ConsoleWriter) Write(ev *domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("console writer closed")
	}

	data := c.truncate(ev.Data())
	source := ""
	if c.opts.ShowSource {
		source = c.truncate(ev.Source().Data())
	}
	module := ev.Module()
	if module == "" {
		module = "reconbus"
	}

	var err error
	switch c.opts.Format {
	case FormatCSV:
		err = c.writeCSV(module, ev.Type(), data, source)
	case FormatJSON:
		err = c.writeJSON(consoleRecord{
			Generated: ev.Created().Unix(),
			Type:      string(ev.Type()),
			Data:      data,
			Module:    module,
			Source:    source,
		})
	default:
		err = c.writeTab(module, ev.Type(), data, source)
	}
	if err == nil {
		c.written++
	}
	return err
}

func (c *ConsoleWriter) writeTab(module string, t domain.EventType, data, source string) error {
	if c.written == 0 {
		if _, err := fmt.Fprintf(c.w, "%-20s  %-30s  %s\n", "Source", "Type", "Data"); err != nil {
			return err
		}
	}
	line := fmt.Sprintf("%-20s  %-30s  %s", module, t.Description(), data)
	if c.opts.ShowSource {
		line += "  [" + source + "]"
	}
	_, err := fmt.Fprintln(c.w, line)
	return err
}

func (c *ConsoleWriter) writeCSV(module string, t domain.EventType, data, source string) error {
	if c.written == 0 {
		header := []string{"Source", "Type", "Data"}
		if c.opts.ShowSource {
			header = append(header, "Source Data")
		}
		if err := c.csv.Write(header); err != nil {
			return err
		}
	}
	row := []string{module, string(t), data}
	if c.opts.ShowSource {
		row = append(row, source)
	}
	if err := c.csv.Write(row); err != nil {
		return err
	}
	c.csv.Flush()
	return c.csv.Error()
}

func (c *ConsoleWriter) writeJSON(rec consoleRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	prefix := ","
	if c.written == 0 {
		prefix = "["
	}
	_, err = fmt.Fprintf(c.w, "%s%s\n", prefix, b)
	return err
}

func (c *ConsoleWriter) truncate(s string) string {
	if c.opts.StripNewlines {
		s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	}
	if c.opts.DataSize <= 0 || len(s) <= c.opts.DataSize {
		return s
	}
	return validator.Truncate(s, c.opts.DataSize) + "..."
}

// Close terminates the json array. The underlying writer stays open.
func (c *ConsoleWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.opts.Format != FormatJSON {
		return nil
	}
	if c.written == 0 {
		_, err := fmt.Fprintln(c.w, "[]")
		return err
	}
	_, err := fmt.Fprintln(c.w, "]")
	return err
}
