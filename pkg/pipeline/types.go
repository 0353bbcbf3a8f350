package pipeline

// ProcessRequest represents a request to run one pipeline job
type ProcessRequest struct {
	Job string `json:"job"` // variants, hero_recompress
}

// ProcessResponse represents the outcome of a pipeline job
type ProcessResponse struct {
	Job      string `json:"job"`
	RunID    string `json:"run_id"`
	Success  bool   `json:"success"`
	Failures int    `json:"failures"`
}

// JobType constants
const (
	JobVariants       = "variants"
	JobHeroRecompress = "hero_recompress"
)

// Output kinds
const (
	KindTier = "tier"
	KindFull = "full"
)

// ExtWebP is the target extension for every generated variant
const ExtWebP = "webp"
