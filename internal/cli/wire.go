package cli

import (
	"fmt"
	"os"

	"repologic/config"
	"repologic/internal/adapter/cache"
	"repologic/internal/adapter/chunker"
	"repologic/internal/adapter/embedding"
	"repologic/internal/adapter/fs"
	"repologic/internal/adapter/llm"
	"repologic/internal/adapter/resilience"
	"repologic/internal/adapter/retriever"
	"repologic/internal/adapter/store"
	"repologic/internal/domain"
	"repologic/internal/port"
	"repologic/internal/usecase"
)

// loadedIndexCacheSize bounds how many repository indexes stay in memory.
const loadedIndexCacheSize = 8

// app holds the services of one command invocation. Stores are opened
// eagerly; remote clients are built on first use so commands that never
// call out do not need API keys.
type app struct {
	cfg    *config.Config
	chunks *store.BoltChunkStore
	index  *store.BoltVectorIndex
	locks  *usecase.RepoLocks

	embedder  port.Embedder
	generator port.Generator
}

// openApp opens the stores. A read-only app shares the segment database
// with other readers; chunk and embed open it for writing.
func openApp(readOnly bool) (*app, error) {
	dataDir := cfg.ResolveDataDir(rootDir)
	if err := config.EnsureDataDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	openChunks := store.NewBoltChunkStore
	if readOnly {
		openChunks = store.NewReadOnlyBoltChunkStore
	}
	chunks, err := openChunks(config.ChunkDBPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open segment store: %w", err)
	}
	index, err := store.NewBoltVectorIndex(config.IndexDir(dataDir), loadedIndexCacheSize)
	if err != nil {
		chunks.Close()
		return nil, fmt.Errorf("failed to open vector indexes: %w", err)
	}

	return &app{
		cfg:    cfg,
		chunks: chunks,
		index:  index,
		locks:  usecase.NewRepoLocks(),
	}, nil
}

func (a *app) Close() error {
	return a.chunks.Close()
}

func (a *app) Embedder() (port.Embedder, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}
	ec := a.cfg.Embedding

	var base port.Embedder
	var err error
	switch ec.Provider {
	case "openai":
		base, err = embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL)
	case "deepseek":
		base, err = embedding.NewDeepSeekEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL)
	case "jina":
		base, err = embedding.NewJinaEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL)
	case "ollama":
		base = embedding.NewOllamaEmbedder(ec.BaseURL, ec.Model, envOrEmpty(ec.APIKeyEnv), nil)
	case "mock":
		base = embedding.NewMockEmbedder(ec.Dimension)
	default:
		err = fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, ec.Provider)
	}
	if err != nil {
		return nil, err
	}

	policy := resilience.NewPolicy(resilience.Config{
		Timeout:           ec.Timeout(),
		MaxRetries:        ec.MaxRetries,
		RequestsPerSecond: ec.RequestsPerSecond,
		Burst:             ec.Burst,
	}, logger.With("component", "embedder"))

	var e port.Embedder = embedding.WithPolicy(base, policy)
	if ec.CacheSize > 0 {
		e = embedding.NewCachedEmbedder(e, cache.NewEmbeddingCache(ec.CacheSize, ec.CacheTTL()))
	}
	a.embedder = e
	return e, nil
}

func (a *app) Generator() (port.Generator, error) {
	if a.generator != nil {
		return a.generator, nil
	}
	gc := a.cfg.Generation

	var base port.Generator
	switch gc.Provider {
	case "openai", "deepseek":
		client, err := llm.NewChatClient(gc.Provider, gc.Model, gc.BaseURL, gc.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		base = client
	case "ollama":
		base = llm.NewOllamaGenerator(gc.BaseURL, gc.Model, envOrEmpty(gc.APIKeyEnv), nil)
	case "mock":
		base = llm.NewMockGenerator("")
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", domain.ErrConfiguration, gc.Provider)
	}

	policy := resilience.NewPolicy(resilience.Config{
		Timeout:           gc.Timeout(),
		MaxRetries:        gc.MaxRetries,
		RequestsPerSecond: gc.RequestsPerSecond,
	}, logger.With("component", "generator"))

	a.generator = llm.WithPolicy(base, policy)
	return a.generator, nil
}

func (a *app) SegmentUseCase() (*usecase.SegmentUseCase, error) {
	segmenter, err := chunker.NewLineChunker(a.cfg.Chunk.Size, a.cfg.Chunk.Overlap, a.cfg.Chunk.MaxSegmentChars)
	if err != nil {
		return nil, err
	}
	walker := fs.NewWalker(a.cfg.Index.Includes, a.cfg.Index.Excludes)
	return usecase.NewSegmentUseCase(walker, segmenter, a.chunks, a.locks, a.cfg.Index.MaxFileBytes, logger), nil
}

func (a *app) IndexUseCase() (*usecase.IndexUseCase, error) {
	embedder, err := a.Embedder()
	if err != nil {
		return nil, err
	}
	ec := a.cfg.Embedding
	return usecase.NewIndexUseCase(a.chunks, a.index, embedder, a.locks, ec.BatchSize, ec.Concurrency, logger), nil
}

func (a *app) Retriever() (*retriever.HybridRetriever, error) {
	embedder, err := a.Embedder()
	if err != nil {
		return nil, err
	}
	return retriever.NewHybridRetriever(a.chunks, a.index, embedder, logger), nil
}

func (a *app) ExplainUseCase() (*usecase.ExplainUseCase, error) {
	r, err := a.Retriever()
	if err != nil {
		return nil, err
	}
	g, err := a.Generator()
	if err != nil {
		return nil, err
	}
	return usecase.NewExplainUseCase(r, g, a.cfg.Retrieve.ExtraK, logger), nil
}

func (a *app) AskUseCase() (*usecase.AskUseCase, error) {
	r, err := a.Retriever()
	if err != nil {
		return nil, err
	}
	g, err := a.Generator()
	if err != nil {
		return nil, err
	}
	return usecase.NewAskUseCase(r, g, a.cfg.Retrieve.TopK, logger), nil
}

func (a *app) StatusUseCase() *usecase.StatusUseCase {
	return usecase.NewStatusUseCase(a.chunks, a.index)
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// withApp opens the stores for writing, runs fn and closes them again.
func withApp(fn func(a *app) error) error {
	return runApp(false, fn)
}

// withReadOnlyApp is withApp for commands that never save segments.
func withReadOnlyApp(fn func(a *app) error) error {
	return runApp(true, fn)
}

func runApp(readOnly bool, fn func(a *app) error) error {
	a, err := openApp(readOnly)
	if err != nil {
		return hint(err)
	}
	defer a.Close()
	return hint(fn(a))
}
