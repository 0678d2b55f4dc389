// Package catalog holds the static price list keyed by classifier label.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultDotLine is the leader printed between an item name and its price.
const DefaultDotLine = "........................."

// Sentinel errors for catalog validation.
var (
	ErrEmptyLabel     = errors.New("catalog: empty label")
	ErrDuplicateLabel = errors.New("catalog: duplicate label")
	ErrInvalidPrice   = errors.New("catalog: invalid price")
	ErrEmpty          = errors.New("catalog: no entries")
)

// Entry maps a classifier label to what the till shows and charges.
type Entry struct {
	Label       string          `json:"label"`
	DisplayName string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	DotLine     string          `json:"dot_line"`
}

// Catalog is an immutable label → Entry table. Iteration order is insertion order.
type Catalog struct {
	entries map[string]Entry
	order   []string
}

// New validates entries and builds a catalog.
func New(entries ...Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	c := &Catalog{
		entries: make(map[string]Entry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		e.Label = strings.TrimSpace(e.Label)
		if e.Label == "" {
			return nil, ErrEmptyLabel
		}
		if _, dup := c.entries[e.Label]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, e.Label)
		}
		if e.Price.IsNegative() || !e.Price.Equal(e.Price.Round(2)) {
			return nil, fmt.Errorf("%w: %s costs %s", ErrInvalidPrice, e.Label, e.Price)
		}
		if strings.TrimSpace(e.DisplayName) == "" {
			e.DisplayName = e.Label
		}
		if e.DotLine == "" {
			e.DotLine = DefaultDotLine
		}
		c.entries[e.Label] = e
		c.order = append(c.order, e.Label)
	}
	return c, nil
}

// Default returns the shop's built-in price list.
func Default() *Catalog {
	c, err := New(
		Entry{Label: "banana", DisplayName: "Banana", Price: decimal.RequireFromString("0.75")},
		Entry{Label: "apple", DisplayName: "Apple", Price: decimal.RequireFromString("1.25")},
		Entry{Label: "lemon", DisplayName: "Lemon", Price: decimal.RequireFromString("1.99")},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// fileEntry is the on-disk shape. Prices are read as text so that "0.10"
// never passes through a float.
type fileEntry struct {
	Label   string `yaml:"label"`
	Name    string `yaml:"name"`
	Price   string `yaml:"price"`
	DotLine string `yaml:"dot_line"`
}

type file struct {
	Items []fileEntry `yaml:"items"`
}

// Parse reads a YAML catalog:
//
//	items:
//	  - label: ppl
//	    name: Apple
//	    price: "1.25"
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([]Entry, 0, len(f.Items))
	for _, it := range f.Items {
		price, err := decimal.NewFromString(strings.TrimSpace(it.Price))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPrice, it.Label, err)
		}
		entries = append(entries, Entry{
			Label:       it.Label,
			DisplayName: it.Name,
			Price:       price,
			DotLine:     it.DotLine,
		})
	}
	return New(entries...)
}

// Load reads a YAML catalog file. An empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Lookup returns the entry for label.
func (c *Catalog) Lookup(label string) (Entry, bool) {
	e, ok := c.entries[label]
	return e, ok
}

// Entries returns a copy of all entries in insertion order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, l := range c.order {
		out = append(out, c.entries[l])
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.order)
}

// FormatPrice renders a price the way the till prints it: "$1.25".
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
