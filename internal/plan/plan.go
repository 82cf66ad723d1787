// Package plan defines the subscription tiers and the numeric limits each
// tier grants to the document pipeline. Limits are plain data passed into
// the stages that need them, so deployments can swap the table without
// touching stage code.
package plan

import "strings"

const (
	TierFree = "free"
	TierPlus = "plus"
	TierPro  = "pro"
)

// Limits parameterizes every plan-gated knob in the pipeline.
type Limits struct {
	Tier string

	// Extraction.
	MaxPages      int
	PageStructure bool // request a page-indexed breakdown alongside full text

	// Summarization.
	SummaryInputChars int // extracted text is truncated to this before the model call
	SummaryMinWords   int
	SummaryMaxWords   int
	MinPrompts        int
	MaxPrompts        int

	// TTS.
	TTSMaxChars  int
	TTSMaxChunks int
}

// Table is a versioned plan-limit table. Version changes whenever a tier's
// numbers change, so usage rows can be correlated with the limits in force.
type Table struct {
	Version string
	Tiers   map[string]Limits
}

// Default returns the limit table shipped with this deployment.
func Default() Table {
	return Table{
		Version: "2025-08",
		Tiers: map[string]Limits{
			TierFree: {
				Tier:              TierFree,
				MaxPages:          20,
				PageStructure:     false,
				SummaryInputChars: 12000,
				SummaryMinWords:   200,
				SummaryMaxWords:   350,
				MinPrompts:        3,
				MaxPrompts:        5,
				TTSMaxChars:       4000,
				TTSMaxChunks:      2,
			},
			TierPlus: {
				Tier:              TierPlus,
				MaxPages:          80,
				PageStructure:     true,
				SummaryInputChars: 40000,
				SummaryMinWords:   450,
				SummaryMaxWords:   700,
				MinPrompts:        5,
				MaxPrompts:        8,
				TTSMaxChars:       10000,
				TTSMaxChunks:      5,
			},
			TierPro: {
				Tier:              TierPro,
				MaxPages:          300,
				PageStructure:     true,
				SummaryInputChars: 120000,
				SummaryMinWords:   800,
				SummaryMaxWords:   1200,
				MinPrompts:        8,
				MaxPrompts:        12,
				TTSMaxChars:       24000,
				TTSMaxChunks:      10,
			},
		},
	}
}

// Resolve returns the limits for the given tier name, falling back to the
// free tier for unknown or empty values so a corrupt profile row never
// grants unbounded budgets.
func (t Table) Resolve(tier string) Limits {
	if l, ok := t.Tiers[strings.ToLower(strings.TrimSpace(tier))]; ok {
		return l
	}
	return t.Tiers[TierFree]
}
