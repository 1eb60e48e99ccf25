package types

import "time"

// DefaultCategories is the arXiv subject filter used for recent-paper scans
// and for the citation-ranked discovery query.
const DefaultCategories = "cat:cs.AI OR cat:cs.LG OR cat:cs.CL OR cat:cs.CV " +
	"OR cat:stat.ML OR cat:cs.IR OR cat:cs.NE OR cat:cs.RO"

// DefaultCuratedURLs are the curated reading lists mined for classic papers.
var DefaultCuratedURLs = []string{
	"https://raw.githubusercontent.com/terryum/awesome-deep-learning-papers/master/README.md",
	"https://raw.githubusercontent.com/ChristosChristofidis/awesome-deep-learning/master/README.md",
	"https://raw.githubusercontent.com/ashishpatel26/500-AI-Machine-learning-Deep-learning-Computer-vision-NLP-Projects-with-code/master/README.md",
	"https://raw.githubusercontent.com/keon/awesome-nlp/master/README.md",
	"https://raw.githubusercontent.com/jtoy/awesome-tensorflow/master/README.md",
	"https://raw.githubusercontent.com/kjw0612/awesome-deep-vision/master/README.md",
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CorpusConfig bounds the corpus and the ingestion run.
type CorpusConfig struct {
	// MaxItems is the hard cap on total documents (default 30000).
	MaxItems int `json:"max_items" yaml:"max_items" mapstructure:"max_items"`

	// ClassicTarget is the number of classic papers a run tries to add (default 3000).
	ClassicTarget int `json:"classic_target" yaml:"classic_target" mapstructure:"classic_target"`

	// RecentTarget is the number of recent papers a run tries to add (default 27000).
	RecentTarget int `json:"recent_target" yaml:"recent_target" mapstructure:"recent_target"`

	// BatchSize is the staged-write flush threshold (default 200).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// DeleteBatchSize caps ids per vector-index delete call (default 1000).
	DeleteBatchSize int `json:"delete_batch_size" yaml:"delete_batch_size" mapstructure:"delete_batch_size"`

	// Categories is the arXiv category filter.
	Categories string `json:"categories" yaml:"categories" mapstructure:"categories"`
}

// DiscoveryConfig holds settings for classic candidate discovery.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// CuratedURLs lists plain-text documents mined for arXiv links.
	CuratedURLs []string `json:"curated_urls" yaml:"curated_urls" mapstructure:"curated_urls"`

	// CuratedTimeout is the per-document GET timeout (default 10s).
	CuratedTimeout time.Duration `json:"curated_timeout" yaml:"curated_timeout" mapstructure:"curated_timeout"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key" mapstructure:"semantic_scholar_api_key"`

	// PageSize is the Semantic Scholar page size (default 100).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// MaxOffset stops paging once exceeded (default 9900).
	MaxOffset int `json:"max_offset" yaml:"max_offset" mapstructure:"max_offset"`

	// MaxRetries bounds attempts per page (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RateLimitCooldown is slept after an HTTP 429 (default 60s).
	RateLimitCooldown time.Duration `json:"rate_limit_cooldown" yaml:"rate_limit_cooldown" mapstructure:"rate_limit_cooldown"`

	// RetryDelay is slept after a transient error (default 5s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// PageDelay is the polite delay between pages (default 2s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// EnableOpenAlex adds OpenAlex citation ranking as a third source.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// OpenAlexEmail is sent as mailto for OpenAlex polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email" mapstructure:"openalex_email"`
}

// ArxivConfig holds settings for the arXiv paper repository client.
type ArxivConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PageSize is the number of entries requested per API page (default 500).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// PageDelay is the delay between consecutive API calls (default 5s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`

	// MaxRetries bounds attempts per API page (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxResultsPerWindow caps entries read from one weekly window (default 5000).
	MaxResultsPerWindow int `json:"max_results_per_window" yaml:"max_results_per_window" mapstructure:"max_results_per_window"`

	// WindowDays is the width of a recent-paper window (default 7).
	WindowDays int `json:"window_days" yaml:"window_days" mapstructure:"window_days"`

	// MaxWindows is how many windows a run may walk back (default 156, about 3 years).
	MaxWindows int `json:"max_windows" yaml:"max_windows" mapstructure:"max_windows"`
}

// EmbeddingConfig selects the embedding service.
type EmbeddingConfig struct {
	// URL is the Ollama API base URL.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Model is the embedding model name (default all-minilm:l6-v2).
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Dimensions is the corpus-wide vector dimension (default 384).
	Dimensions int `json:"dimensions" yaml:"dimensions" mapstructure:"dimensions"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// CacheSize bounds the query-path embedding cache (0 disables it).
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// VectorConfig locates the vector index.
type VectorConfig struct {
	// Path is the veclite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Collection is the collection name inside the database (default "papers").
	Collection string `json:"collection" yaml:"collection" mapstructure:"collection"`
}

// StoreConfig locates the metadata store.
type StoreConfig struct {
	// Driver is "sqlite3" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the database path or connection string. Empty selects
	// data/papers.db for sqlite3; postgres requires one.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// RedisConfig enables the optional query result cache.
type RedisConfig struct {
	// URL is a redis:// URL. Empty disables caching.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// TTL is how long cached results live (default 5m).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// SearchConfig holds query engine settings.
type SearchConfig struct {
	// TopK is the number of nearest vectors fetched per sub-query (default 15).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`

	// MaxResults is the merged result budget (default 25).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Separator splits a raw input into sub-queries (default ";").
	Separator string `json:"separator" yaml:"separator" mapstructure:"separator"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all stage configurations.
type Config struct {
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
	Arxiv     ArxivConfig     `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Vector    VectorConfig    `json:"vector" yaml:"vector" mapstructure:"vector"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Redis     RedisConfig     `json:"redis" yaml:"redis" mapstructure:"redis"`
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	const userAgent = "srchive/0.1 (mailto:srchive@users.noreply.github.com)"
	return Config{
		Corpus: CorpusConfig{
			MaxItems:        30000,
			ClassicTarget:   3000,
			RecentTarget:    27000,
			BatchSize:       200,
			DeleteBatchSize: 1000,
			Categories:      DefaultCategories,
		},
		Discovery: DiscoveryConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: userAgent},
			CuratedURLs:       append([]string(nil), DefaultCuratedURLs...),
			CuratedTimeout:    10 * time.Second,
			PageSize:          100,
			MaxOffset:         9900,
			MaxRetries:        3,
			RateLimitCooldown: 60 * time.Second,
			RetryDelay:        5 * time.Second,
			PageDelay:         2 * time.Second,
		},
		Arxiv: ArxivConfig{
			HTTPConfig:          HTTPConfig{Timeout: 60 * time.Second, UserAgent: userAgent},
			PageSize:            500,
			PageDelay:           5 * time.Second,
			MaxRetries:          5,
			MaxResultsPerWindow: 5000,
			WindowDays:          7,
			MaxWindows:          156,
		},
		Embedding: EmbeddingConfig{
			URL:        "http://localhost:11434",
			Model:      "all-minilm:l6-v2",
			Dimensions: 384,
			Timeout:    30 * time.Second,
			CacheSize:  1000,
		},
		Vector: VectorConfig{
			Path:       "data/vectors.veclite",
			Collection: "papers",
		},
		Store: StoreConfig{
			Driver: "sqlite3",
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Search: SearchConfig{
			TopK:       15,
			MaxResults: 25,
			Separator:  ";",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}
