package models

// FieldDefinition is one resolvable financial field within one market.
// Priority is ascending: 1 is the most commonly requested field.
type FieldDefinition struct {
	FieldID     string   `json:"field_id" yaml:"field_id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Unit        string   `json:"unit,omitempty" yaml:"unit"`
	Priority    int      `json:"priority" yaml:"priority"`
	Aliases     []string `json:"aliases" yaml:"aliases"`
	NativeNames []string `json:"native_names,omitempty" yaml:"native_names"`
	Category    string   `json:"category,omitempty" yaml:"category"`
	Sources     []string `json:"sources,omitempty" yaml:"-"` // configuration sources that defined the field
}

// Clone returns a deep copy so merged snapshots never share slices.
func (f FieldDefinition) Clone() FieldDefinition {
	c := f
	c.Aliases = append([]string(nil), f.Aliases...)
	c.NativeNames = append([]string(nil), f.NativeNames...)
	c.Sources = append([]string(nil), f.Sources...)
	return c
}

// Resolution strategy names.
const (
	StrategyDirect  = "direct"
	StrategyKeyword = "keyword"
	StrategyFuzzy   = "fuzzy"
	StrategyPartial = "partial" // suggestion only, below the fuzzy threshold
)

// Candidate is one ranked search hit for a query term.
type Candidate struct {
	FieldID    string          `json:"field_id"`
	Score      float64         `json:"score"`
	Strategy   string          `json:"strategy"`
	MatchedOn  string          `json:"matched_on,omitempty"` // alias, display name or id that produced the score
	Definition FieldDefinition `json:"-"`
}

// ResolutionResult is the outcome of resolving one requested term.
// On success FieldID/NativeName/Confidence/Strategy are set; on failure
// Suggestions and Reason explain what would have matched.
type ResolutionResult struct {
	Term        string           `json:"term"`
	Resolved    bool             `json:"resolved"`
	FieldID     string           `json:"field_id,omitempty"`
	NativeName  string           `json:"native_name,omitempty"`
	Field       *FieldDefinition `json:"field,omitempty"`
	Confidence  float64          `json:"confidence"`
	Strategy    string           `json:"strategy,omitempty"`
	Suggestions []Candidate      `json:"suggestions,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// FieldResolution is the per-field side-channel metadata attached to
// projected records.
type FieldResolution struct {
	Term       string  `json:"term"`
	FieldID    string  `json:"field_id,omitempty"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// ConfigSummary reports what the field configuration store holds.
type ConfigSummary struct {
	SourceCount         int            `json:"source_count"`
	Sources             []string       `json:"sources"`
	PerMarketFieldCount map[Market]int `json:"per_market_field_count"`
	TotalFieldCount     int            `json:"total_field_count"`
	MarketCount         int            `json:"market_count"`
}
