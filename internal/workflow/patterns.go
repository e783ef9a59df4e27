package workflow

import "github.com/markomanninen/srrd-builder-sub000/internal/storage"

// Pattern classifies the short-term shape of recent tool usage.
type Pattern string

const (
	PatternRepetitive         Pattern = "repetitive"
	PatternLogicalProgression Pattern = "logical_progression"
	PatternExploratory        Pattern = "exploratory"
	PatternNoHistory          Pattern = "no_history"
)

// knownSequences are ordered tool pairs that reflect a sound workflow step.
var knownSequences = [][2]string{
	{"clarify_research_goals", "suggest_methodology"},
	{"clarify_research_goals", "generate_critical_questions"},
	{"identify_research_gaps", "develop_alternative_framework"},
	{"initialize_project", "define_research_scope"},
	{"suggest_methodology", "validate_design"},
	{"validate_design", "ensure_ethics"},
	{"semantic_search", "extract_key_concepts"},
	{"semantic_search", "store_bibliographic_reference"},
	{"extract_key_concepts", "build_knowledge_graph"},
	{"discover_patterns", "generate_research_summary"},
	{"simulate_peer_review", "enhance_quality"},
	{"check_quality_gates", "generate_latex_document"},
	{"generate_latex_document", "compile_latex"},
}

// PatternAnalysis is the classification of a recent-call window.
type PatternAnalysis struct {
	Pattern     Pattern  `json:"pattern"`
	RecentTools []string `json:"recent_tools"`
	Diversity   float64  `json:"diversity"`
	Sequence    []string `json:"sequence,omitempty"`
}

// classifyPattern inspects an oldest-first window of usage records.
func classifyPattern(window []storage.ToolUsage) PatternAnalysis {
	pa := PatternAnalysis{Pattern: PatternNoHistory, RecentTools: make([]string, 0, len(window))}
	if len(window) == 0 {
		return pa
	}

	first := make(map[string]int)
	last := make(map[string]int)
	for i, h := range window {
		pa.RecentTools = append(pa.RecentTools, h.ToolName)
		if _, ok := first[h.ToolName]; !ok {
			first[h.ToolName] = i
		}
		last[h.ToolName] = i
	}
	pa.Diversity = round2(float64(len(first)) / float64(len(window)))

	if len(window) >= 2 && len(first) == 1 {
		pa.Pattern = PatternRepetitive
		return pa
	}

	for _, seq := range knownSequences {
		i, ok1 := first[seq[0]]
		j, ok2 := last[seq[1]]
		if ok1 && ok2 && i < j {
			pa.Pattern = PatternLogicalProgression
			pa.Sequence = []string{seq[0], seq[1]}
			return pa
		}
	}

	pa.Pattern = PatternExploratory
	return pa
}
