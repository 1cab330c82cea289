package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "astro-facts/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on HTTP 429 and 5xx responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond caps the request rate per client (0 = unlimited).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// CacheSize is the number of response bodies kept in memory (0 disables).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// CacheTTL is how long a cached response body stays valid.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// BoringPolicyName selects how fact-poor inputs are recognized.
type BoringPolicyName string

const (
	// BoringMentions keeps inputs with at least one "mentions" predicate.
	BoringMentions BoringPolicyName = "mentions"

	// BoringCount keeps inputs with at least BoringMinFacts facts.
	BoringCount BoringPolicyName = "count"
)

// OutputMode selects the representation the serializer produces.
type OutputMode string

const (
	OutputList OutputMode = "list"
	OutputDict OutputMode = "dict"
	OutputN3   OutputMode = "n3"
)

// LearnConfig holds settings for the learn stage (discovery, dispatch, filter).
type LearnConfig struct {
	// Workers is the number of concurrent dispatch workers (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// MaxInputs caps the number of discovered inputs (0 = unlimited).
	MaxInputs int `json:"max_inputs" yaml:"max_inputs"`

	// ItemTimeout bounds the dispatch of a single input (0 = no timeout).
	ItemTimeout time.Duration `json:"item_timeout" yaml:"item_timeout"`

	// BoringPolicy selects "mentions" (default) or "count".
	BoringPolicy BoringPolicyName `json:"boring_policy" yaml:"boring_policy"`

	// BoringMinFacts is the threshold for the count policy (default 5).
	BoringMinFacts int `json:"boring_min_facts" yaml:"boring_min_facts"`

	// Output selects list, dict or n3 output.
	Output OutputMode `json:"output" yaml:"output"`

	// OutFile is where the rendered knowledge is written (default knowledge.n3).
	OutFile string `json:"out_file" yaml:"out_file"`
}

// SourcesConfig locates the on-disk inputs of each source and whether
// extractors may reach the network.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline"`

	// GCNDir holds circulars as <number>.gcn3 files (default "gcn3").
	GCNDir string `json:"gcn_dir" yaml:"gcn_dir"`

	// PapersDir holds papers-*.json arXiv feeds (default ".").
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// ATelIndex is the telegram index file (default "atels.json").
	ATelIndex string `json:"atel_index" yaml:"atel_index"`

	// ATelCacheDir holds cached telegram e-mails (default ~/.cache/atels).
	ATelCacheDir string `json:"atel_cache_dir" yaml:"atel_cache_dir"`

	// AllowNet lets producers and extractors fetch supplementary documents.
	AllowNet bool `json:"allow_net" yaml:"allow_net"`
}

// KnowledgeBaseConfig holds settings for the knowledge base stage.
type KnowledgeBaseConfig struct {
	// KnowledgeDir is the base directory for knowledge (contains index/).
	KnowledgeDir string `json:"knowledge_dir" yaml:"knowledge_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// JSON switches to structured JSON output.
	JSON bool `json:"json" yaml:"json"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Learn         LearnConfig         `json:"learn" yaml:"learn"`
	Sources       SourcesConfig       `json:"sources" yaml:"sources"`
	KnowledgeBase KnowledgeBaseConfig `json:"knowledge_base" yaml:"knowledge_base"`
	Log           LogConfig           `json:"log" yaml:"log"`
}
