package verdict

const (
	DefaultMinBodySize         = 2
	DefaultTemplateTolerance   = 8
	DefaultSimilarityThreshold = 0.8
)

type Config struct {
	// MinBodySize is the smallest trimmed body, in bytes, that counts as
	// data.
	MinBodySize int `conf:"min_body_size"`

	// TemplateTolerance is how many bytes a body may differ in size from a
	// denied template and still be considered the template.
	TemplateTolerance int `conf:"template_tolerance"`

	// SimilarityThreshold is the fraction of matching bytes required for a
	// body to be considered equal to the baseline.
	SimilarityThreshold float64 `conf:"similarity_threshold"`

	// Markers are extra case-insensitive denial phrases.
	Markers []string `conf:"markers"`

	// Templates are known bodies an API returns on a denied request with a
	// 2xx status.
	Templates []string `conf:"templates"`
}

func DefaultConfig() Config {
	return Config{
		MinBodySize:         DefaultMinBodySize,
		TemplateTolerance:   DefaultTemplateTolerance,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

func (c Config) withDefaults() Config {
	if c.MinBodySize <= 0 {
		c.MinBodySize = DefaultMinBodySize
	}
	if c.TemplateTolerance < 0 {
		c.TemplateTolerance = 0
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return c
}
