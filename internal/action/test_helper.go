package action

import (
	"context"

	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/blob"
	"github.com/Zereker/cvstore/pkg/extract"
	pkggenkit "github.com/Zereker/cvstore/pkg/genkit"
	"github.com/Zereker/cvstore/pkg/journal"
	"github.com/Zereker/cvstore/pkg/mq"
	"github.com/Zereker/cvstore/pkg/vector"
)

const (
	testCollection  = "cvs_test"
	testContainer   = "cvs-test"
	testEventsTopic = "cvstore-events-test"
	testChatModel   = "test-chat"
	testEmbedder    = "test-embedding"
)

// TestHelper provides utilities for testing Files with MockPlugin and in-memory backends
type TestHelper struct {
	MockPlugin *pkggenkit.MockPlugin
	Engine     *vector.MemoryEngine
	Vectors    *vector.Store[domain.DocumentPayload]
	Blobs      *blob.MemoryStore
	Journal    *journal.Memory
	Queue      *mq.InMemoryQueue
	Extractor  *extract.Registry
	Chat       *pkggenkit.Chat
}

// NewTestHelper creates a new test helper with MockPlugin initialized
// Must be called BEFORE creating Files
func NewTestHelper(ctx context.Context) *TestHelper {
	cfg := pkggenkit.DefaultMockConfig()
	mockPlugin := pkggenkit.InitForTest(ctx, cfg)

	dim := 0
	for _, m := range cfg.Models {
		if m.Type == pkggenkit.ModelTypeEmbedding {
			dim = m.Dim
		}
	}

	registry, err := extract.NewRegistry(extract.NewTextStrategy(), extract.NewDocxStrategy())
	if err != nil {
		panic(err)
	}

	engine := vector.NewMemoryEngine()
	return &TestHelper{
		MockPlugin: mockPlugin,
		Engine:     engine,
		Vectors:    vector.NewStore[domain.DocumentPayload](engine, pkggenkit.NewEmbedder("mock/"+testEmbedder), dim),
		Blobs:      blob.NewMemoryStore(),
		Journal:    journal.NewMemory(),
		Queue:      mq.NewInMemoryQueue(),
		Extractor:  registry,
		Chat:       pkggenkit.NewChat("mock/" + testChatModel),
	}
}

// Config returns a files config pointing at the test collection and container
func (h *TestHelper) Config() Config {
	return Config{
		Collection:      testCollection,
		Container:       testContainer,
		EventsTopic:     testEventsTopic,
		DefaultLanguage: extract.English,
	}
}

// NewFiles creates Files wired to the helper's backends, without a summarizer
func (h *TestHelper) NewFiles(cfg Config) *Files {
	f, err := newFiles(cfg)
	if err != nil {
		panic(err)
	}

	return f.WithVectorStore(h.Vectors).
		WithBlobStore(h.Blobs).
		WithExtractor(h.Extractor).
		WithJournal(h.Journal).
		WithQueue(h.Queue)
}

// SetSummary sets the text returned by the chat model
func (h *TestHelper) SetSummary(text string) {
	h.MockPlugin.SetModelTextResponse(testChatModel, text)
}
