package entities

import (
	"encoding/json"
	"fmt"
)

// FlexStrings holds a value that callers may supply as a single string or a
// list of strings. The extractor emits `"year": "2024"` for point queries and
// `"year": ["2024","2025"]` for temporal comparisons; both decode into this
// type with the original shape preserved.
type FlexStrings struct {
	Values []string
	List   bool
}

// Flex builds a scalar FlexStrings.
func Flex(v string) FlexStrings {
	return FlexStrings{Values: []string{v}}
}

// FlexList builds a list FlexStrings.
func FlexList(vs ...string) FlexStrings {
	return FlexStrings{Values: vs, List: true}
}

// Empty reports whether no value was supplied.
func (f FlexStrings) Empty() bool { return len(f.Values) == 0 }

// One returns the single (or first) value, or "" when empty.
func (f FlexStrings) One() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// Many reports whether the caller supplied a list shape.
func (f FlexStrings) Many() bool { return f.List || len(f.Values) > 1 }

func (f FlexStrings) MarshalJSON() ([]byte, error) {
	if f.Empty() {
		return []byte("null"), nil
	}
	if f.Many() {
		return json.Marshal(f.Values)
	}
	return json.Marshal(f.Values[0])
}

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = FlexStrings{}
			return nil
		}
		*f = FlexStrings{Values: []string{s}}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = FlexStrings{Values: list, List: true}
		return nil
	}

	// Extractors occasionally return bare numbers for years.
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexStrings{Values: []string{n.String()}}
		return nil
	}

	var null interface{}
	if err := json.Unmarshal(data, &null); err == nil && null == nil {
		*f = FlexStrings{}
		return nil
	}

	return fmt.Errorf("expected string or list of strings, got %s", string(data))
}

// SubQuery is one independently-specified question inside a fan-out request.
type SubQuery struct {
	RawQuery string `json:"raw_query"`
	Entities Bag    `json:"entities"`
}

// Bag is the parameter set threaded through the pipeline. Stages never
// mutate a Bag they received; they work on a Clone and return the new value.
// Fields the bag does not model are preserved verbatim in Extra so that no
// stage can silently drop information it does not understand.
type Bag struct {
	Properties []string    `json:"properties,omitempty"`
	Tenants    []string    `json:"tenants,omitempty"`
	Year       FlexStrings `json:"year,omitempty"`
	Quarter    FlexStrings `json:"quarter,omitempty"`
	Month      FlexStrings `json:"month,omitempty"`
	Periods    []string    `json:"periods,omitempty"`
	Operation  string      `json:"operation,omitempty"`
	Metric     string      `json:"metric,omitempty"`
	SubQueries []SubQuery  `json:"sub_queries,omitempty"`
	RawQuery   string      `json:"raw_query,omitempty"`

	// IsPortfolio marks a portfolio-level request (alias matched); it means
	// "no property filter" downstream.
	IsPortfolio bool `json:"is_portfolio,omitempty"`

	// Notes accumulates non-fatal remarks such as silent auto-corrections.
	Notes []string `json:"notes,omitempty"`

	// Extra holds fields from the extractor the bag has no typed slot for.
	Extra map[string]json.RawMessage `json:"-"`
}

// bagAlias prevents UnmarshalJSON recursion.
type bagAlias Bag

var bagKnownKeys = []string{
	"properties", "property", "tenants", "tenant",
	"year", "years", "quarter", "quarters", "month", "months",
	"periods", "operation", "metric", "sub_queries", "raw_query",
	"is_portfolio", "notes",
}

// UnmarshalJSON accepts the loosely-typed extractor shape: singular keys
// ("property", "tenant") fold into the plural lists, scalars fold into
// single-element lists, and unknown keys land in Extra.
func (b *Bag) UnmarshalJSON(data []byte) error {
	var alias bagAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// Singular and plural-alias keys.
	if alias.Properties == nil {
		alias.Properties = flexToSlice(raw, "property")
	}
	if alias.Tenants == nil {
		alias.Tenants = flexToSlice(raw, "tenant")
	}
	if alias.Year.Empty() {
		alias.Year = flexFromRaw(raw, "years")
	}
	if alias.Quarter.Empty() {
		alias.Quarter = flexFromRaw(raw, "quarters")
	}
	if alias.Month.Empty() {
		alias.Month = flexFromRaw(raw, "months")
	}

	for _, k := range bagKnownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		alias.Extra = raw
	}

	*b = Bag(alias)
	return nil
}

func (b Bag) MarshalJSON() ([]byte, error) {
	type out bagAlias
	data, err := json.Marshal(out(b))
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range b.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func flexToSlice(raw map[string]json.RawMessage, key string) []string {
	f := flexFromRaw(raw, key)
	if f.Empty() {
		return nil
	}
	return f.Values
}

func flexFromRaw(raw map[string]json.RawMessage, key string) FlexStrings {
	data, ok := raw[key]
	if !ok {
		return FlexStrings{}
	}
	var f FlexStrings
	if err := f.UnmarshalJSON(data); err != nil {
		return FlexStrings{}
	}
	return f
}

// Clone returns a deep copy. Every stage works on a clone so that earlier
// stages' bags stay valid for trace records and tests.
func (b Bag) Clone() Bag {
	out := b
	out.Properties = cloneSlice(b.Properties)
	out.Tenants = cloneSlice(b.Tenants)
	out.Year = FlexStrings{Values: cloneSlice(b.Year.Values), List: b.Year.List}
	out.Quarter = FlexStrings{Values: cloneSlice(b.Quarter.Values), List: b.Quarter.List}
	out.Month = FlexStrings{Values: cloneSlice(b.Month.Values), List: b.Month.List}
	out.Periods = cloneSlice(b.Periods)
	out.Notes = cloneSlice(b.Notes)
	if b.SubQueries != nil {
		out.SubQueries = make([]SubQuery, len(b.SubQueries))
		for i, sq := range b.SubQueries {
			out.SubQueries[i] = SubQuery{RawQuery: sq.RawQuery, Entities: sq.Entities.Clone()}
		}
	}
	if b.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(b.Extra))
		for k, v := range b.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// WithNote returns a clone carrying one more note.
func (b Bag) WithNote(note string) Bag {
	out := b.Clone()
	out.Notes = append(out.Notes, note)
	return out
}

// HasTimeFilter reports whether any year/quarter/month filter is present.
func (b Bag) HasTimeFilter() bool {
	return !b.Year.Empty() || !b.Quarter.Empty() || !b.Month.Empty()
}

// FirstProperty returns the first property reference, or "".
func (b Bag) FirstProperty() string {
	if len(b.Properties) == 0 {
		return ""
	}
	return b.Properties[0]
}

// FirstTenant returns the first tenant reference, or "".
func (b Bag) FirstTenant() string {
	if len(b.Tenants) == 0 {
		return ""
	}
	return b.Tenants[0]
}

// ClearTimeframes returns a clone with every temporal field removed. Used
// when a follow-up asks for "overall" figures.
func (b Bag) ClearTimeframes() Bag {
	out := b.Clone()
	out.Year = FlexStrings{}
	out.Quarter = FlexStrings{}
	out.Month = FlexStrings{}
	out.Periods = nil
	return out
}

func cloneSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
