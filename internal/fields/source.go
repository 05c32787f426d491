// Package fields loads field configuration sources and merges them into
// per-market keyword indexes.
package fields

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/finsight/internal/models"
)

// ErrMalformedSource marks a source whose content lacks the required structure.
var ErrMalformedSource = errors.New("malformed field source")

// ConfigurationLoadError reports one source that failed to load. It is
// non-fatal: other sources still load.
type ConfigurationLoadError struct {
	Source string
	Err    error
}

func (e *ConfigurationLoadError) Error() string {
	return fmt.Sprintf("field source '%s': %v", e.Source, e.Err)
}

func (e *ConfigurationLoadError) Unwrap() error {
	return e.Err
}

// MarketFields is the content of one source: field definitions per market.
// A market present with no fields is valid.
type MarketFields map[models.Market][]models.FieldDefinition

// Source is a named, loadable field configuration.
type Source interface {
	Name() string
	Load() (MarketFields, error)
}

// sourceFile is the YAML layout of a field source:
//
//	markets:
//	  CN:
//	    fields:
//	      NET_PROFIT:
//	        display_name: 净利润
//	        unit: CNY
//	        priority: 2
//	        native_names: [净利润]
//	        aliases: [net profit, 归母净利润]
type sourceFile struct {
	Markets map[string]marketSection `yaml:"markets"`
}

type marketSection struct {
	Fields map[string]fieldEntry `yaml:"fields"`
}

type fieldEntry struct {
	DisplayName string   `yaml:"display_name"`
	Unit        string   `yaml:"unit"`
	Priority    int      `yaml:"priority"`
	Category    string   `yaml:"category"`
	NativeNames []string `yaml:"native_names"`
	Aliases     []string `yaml:"aliases"`
}

// Parse decodes YAML source content. Field order within a market follows
// field_id so parsing is deterministic.
func Parse(name string, data []byte) (MarketFields, error) {
	var doc sourceFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if doc.Markets == nil {
		return nil, fmt.Errorf("%w: missing 'markets' section", ErrMalformedSource)
	}

	out := make(MarketFields, len(doc.Markets))
	for key, section := range doc.Markets {
		market, err := models.ParseMarket(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
		}

		ids := make([]string, 0, len(section.Fields))
		for id := range section.Fields {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		defs := make([]models.FieldDefinition, 0, len(ids))
		for _, id := range ids {
			if strings.TrimSpace(id) == "" {
				return nil, fmt.Errorf("%w: blank field_id in market %s", ErrMalformedSource, market)
			}
			e := section.Fields[id]
			defs = append(defs, models.FieldDefinition{
				FieldID:     strings.TrimSpace(id),
				DisplayName: e.DisplayName,
				Unit:        e.Unit,
				Priority:    e.Priority,
				Category:    e.Category,
				NativeNames: e.NativeNames,
				Aliases:     e.Aliases,
				Sources:     []string{name},
			})
		}
		out[market] = append(out[market], defs...)
	}
	return out, nil
}

// FileSource reads a YAML source from disk on every Load.
type FileSource struct {
	Path string
}

// Name returns the file path
func (s FileSource) Name() string {
	return s.Path
}

// Load reads and parses the file
func (s FileSource) Load() (MarketFields, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Parse(s.Path, data)
}

// BytesSource parses in-memory YAML content.
type BytesSource struct {
	Label string
	Data  []byte
}

// Name returns the source label
func (s BytesSource) Name() string {
	return s.Label
}

// Load parses the content
func (s BytesSource) Load() (MarketFields, error) {
	return Parse(s.Label, s.Data)
}

// StaticSource serves already-built definitions, e.g. from tests or code.
type StaticSource struct {
	Label  string
	Fields MarketFields
}

// Name returns the source label
func (s StaticSource) Name() string {
	return s.Label
}

// Load returns copies of the definitions tagged with the source name.
func (s StaticSource) Load() (MarketFields, error) {
	if s.Fields == nil {
		return nil, fmt.Errorf("%w: no markets", ErrMalformedSource)
	}
	out := make(MarketFields, len(s.Fields))
	for m, defs := range s.Fields {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: unknown market '%s'", ErrMalformedSource, m)
		}
		copies := make([]models.FieldDefinition, 0, len(defs))
		for _, d := range defs {
			c := d.Clone()
			c.Sources = []string{s.Label}
			copies = append(copies, c)
		}
		out[m] = copies
	}
	return out, nil
}

//go:embed defaults/*.yaml
var defaultFS embed.FS

// DefaultSources returns the embedded field configuration: core.yaml holds
// the canonical fields, extended.yaml adds aliases and secondary fields.
func DefaultSources() []Source {
	names := []string{"core.yaml", "extended.yaml"}
	out := make([]Source, 0, len(names))
	for _, n := range names {
		data, err := defaultFS.ReadFile(path.Join("defaults", n))
		if err != nil {
			continue
		}
		out = append(out, BytesSource{Label: "embedded:" + n, Data: data})
	}
	return out
}

// FileSources wraps paths as FileSources, skipping blanks.
func FileSources(paths []string) []Source {
	var out []Source
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, FileSource{Path: p})
		}
	}
	return out
}
