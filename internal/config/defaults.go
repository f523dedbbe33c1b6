package config

// Provider names accepted by embedding.provider and generation.provider.
const (
	ProviderCohere = "cohere"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

const (
	MetricInnerProduct = "ip"

	DefaultSeed         = 40
	DefaultChatModel    = "command-r"
	DefaultEmbedModel   = "embed-multilingual-v3.0"
	DefaultEmbedDims    = 1024
	DefaultCollection   = "document_collection"
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 50
	DefaultTopK         = 3

	// Used when the openai provider names no embedding model.
	DefaultOpenAIEmbedModel = "text-embedding-3-small"
	DefaultOpenAIEmbedDims  = 1536
)

// DefaultSeparators are tried in order: paragraph, line, then a hard cut.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ""}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/db/kotae.db"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/kotae/data/indices/keyword"
	}
	if cfg.Collection.Name == "" {
		cfg.Collection.Name = DefaultCollection
	}
	if cfg.Collection.Metric == "" {
		cfg.Collection.Metric = MetricInnerProduct
	}
	if cfg.Document.Path == "" {
		cfg.Document.Path = "/usr/local/var/kotae/documents/documento.docx"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.Chunking.Separators == nil {
		cfg.Chunking.Separators = DefaultSeparators()
	}
	applyProviderDefaults(&cfg.Embedding.ProviderConfig, 30)
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbedModel
		if cfg.Embedding.Provider == ProviderOpenAI {
			cfg.Embedding.Model = DefaultOpenAIEmbedModel
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = DefaultEmbedDims
		if cfg.Embedding.Model == DefaultOpenAIEmbedModel {
			cfg.Embedding.Dimensions = DefaultOpenAIEmbedDims
		}
	}
	applyProviderDefaults(&cfg.Generation.ProviderConfig, 60)
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultChatModel
	}
	if cfg.Generation.Seed == nil {
		seed := DefaultSeed
		cfg.Generation.Seed = &seed
	}
	if cfg.Generation.TopK == 0 {
		cfg.Generation.TopK = DefaultTopK
	}
}

func applyProviderDefaults(p *ProviderConfig, timeoutSecs int) {
	if p.Provider == "" {
		p.Provider = ProviderCohere
	}
	if p.APIKeyEnv == "" {
		switch p.Provider {
		case ProviderOpenAI:
			p.APIKeyEnv = "OPENAI_API_KEY"
		case ProviderCohere:
			p.APIKeyEnv = "COHERE_API_KEY"
		}
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = timeoutSecs
	}
}
