package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	rag "github.com/yanqian/ai-helloworld/internal/domain/rag"
)

// Options configures one retrieval call; these are populated from the
// Worker's environment-driven config for every graph run.
type Options struct {
	RetrievalK            int
	UseHybrid             bool
	UseParentChild        bool
	UseReranker           bool
	RerankTopN            int
	RerankScoreThreshold  float64
	HasRerankThreshold    bool
}

// Retriever is the hybrid dense+BM25 search layer with parent
// projection and cross-encoder reranking.
type Retriever struct {
	vectors  rag.VectorStore
	parents  rag.ParentBlockRepository
	embedder rag.Embedder
	reranker rag.Reranker
	logger   *slog.Logger

	bm25WarnedOnce bool
}

// NewRetriever constructs the retrieval layer.
func NewRetriever(vectors rag.VectorStore, parents rag.ParentBlockRepository, embedder rag.Embedder, reranker rag.Reranker, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{vectors: vectors, parents: parents, embedder: embedder, reranker: reranker, logger: logger.With("component", "rag.retrieval")}
}

// candidate is a parent block carrying the score it will be shown
// under before final formatting.
type candidate struct {
	block      rag.ParentBlock
	rerankable bool
	score      float64
}

// Retrieve runs the full pipeline for one query and formats the
// result as the tool message content the grader and answerer both
// consume. The second result lists the surviving candidates as scored
// chunks and is nil when none survived.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, opts Options) (string, []rag.ScoredChunk, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil || len(embeddings) == 0 {
		return "", nil, fmt.Errorf("embed query: %w", err)
	}

	k := opts.RetrievalK
	if k <= 0 {
		k = 10
	}
	dense, err := r.vectors.SimilaritySearch(ctx, userID, embeddings[0], k)
	if err != nil {
		return "", nil, fmt.Errorf("dense search: %w", err)
	}

	fusedOrder := denseOrder(dense)
	if opts.UseHybrid {
		if bm25Order, ok := r.bm25Rank(ctx, userID, query, k); ok {
			fusedOrder = Fuse(fusedOrder, bm25Order)
		} else if !r.bm25WarnedOnce {
			r.logger.Warn("bm25 unavailable for this tenant, falling back to pure dense retrieval")
			r.bm25WarnedOnce = true
		}
	}
	if len(fusedOrder) > k {
		fusedOrder = fusedOrder[:k]
	}

	chunksByID := make(map[string]rag.ScoredChunk, len(dense))
	for _, sc := range dense {
		chunksByID[sc.Chunk.ChunkID] = sc
	}

	var candidates []candidate
	if opts.UseParentChild {
		candidates, err = r.projectToParents(ctx, userID, fusedOrder, chunksByID)
		if err != nil {
			return "", nil, err
		}
	} else {
		for _, id := range fusedOrder {
			sc, ok := chunksByID[id]
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{
				block: rag.ParentBlock{ID: sc.Chunk.ChunkID, DocumentID: sc.Chunk.DocumentID, Content: ""},
				score: sc.Score,
			})
		}
	}

	if opts.UseReranker && len(candidates) > 0 && r.reranker != nil {
		candidates, err = r.rerank(ctx, query, candidates, opts)
		if err != nil {
			return "", nil, err
		}
	}

	if len(candidates) == 0 {
		return rag.NoRelevantDocuments, nil, nil
	}

	var retrieved []rag.ScoredChunk
	for _, c := range candidates {
		retrieved = append(retrieved, rag.ScoredChunk{
			Chunk: rag.ScoredChunkRef{ParentID: c.block.ID, DocumentID: c.block.DocumentID},
			Score: c.score,
		})
	}
	return formatCandidates(candidates, opts.UseParentChild), retrieved, nil
}

func denseOrder(scored []rag.ScoredChunk) []string {
	ids := make([]string, len(scored))
	for i, sc := range scored {
		ids[i] = sc.Chunk.ChunkID
	}
	return ids
}

// bm25Rank builds a fresh per-tenant BM25 index from the full corpus.
// It reports false when the corpus can't be locally enumerated (empty
// or the metadata layer errors), signalling the caller to fall back
// to pure dense retrieval rather than failing the request.
func (r *Retriever) bm25Rank(ctx context.Context, userID, query string, k int) ([]string, bool) {
	corpus, err := r.parents.FullCorpus(ctx, userID)
	if err != nil || len(corpus) == 0 {
		return nil, false
	}
	docs := make([]BM25Doc, len(corpus))
	for i, c := range corpus {
		docs[i] = BM25Doc{ChunkID: c.ID, ParentID: c.ParentID, Tokens: Tokenize(c.Content)}
	}
	idx := NewBM25Index(docs)
	order := idx.Search(Tokenize(query), k)
	ids := make([]string, len(order))
	for i, pos := range order {
		ids[i] = docs[pos].ChunkID
	}
	return ids, true
}

func (r *Retriever) projectToParents(ctx context.Context, userID string, order []string, chunksByID map[string]rag.ScoredChunk) ([]candidate, error) {
	seenParents := make(map[string]bool)
	var parentIDs []string
	bestScore := make(map[string]float64)
	for _, id := range order {
		sc, ok := chunksByID[id]
		if !ok {
			continue
		}
		pid := sc.Chunk.ParentID
		if pid == "" {
			continue
		}
		if cur, exists := bestScore[pid]; !exists || sc.Score > cur {
			bestScore[pid] = sc.Score
		}
		if !seenParents[pid] {
			seenParents[pid] = true
			parentIDs = append(parentIDs, pid)
		}
	}
	if len(parentIDs) == 0 {
		return nil, nil
	}
	blocks, err := r.parents.GetByIDs(ctx, userID, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch parent blocks: %w", err)
	}
	byID := make(map[string]rag.ParentBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}
	var out []candidate
	for _, pid := range parentIDs {
		b, ok := byID[pid]
		if !ok {
			continue
		}
		out = append(out, candidate{block: b, score: bestScore[pid], rerankable: true})
	}
	return out, nil
}

func (r *Retriever) rerank(ctx context.Context, query string, candidates []candidate, opts Options) ([]candidate, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.block.Content
	}
	scores, err := r.reranker.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	for i := range candidates {
		if i < len(scores) {
			candidates[i].score = scores[i]
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if opts.HasRerankThreshold {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if c.score >= opts.RerankScoreThreshold {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	topN := opts.RerankTopN
	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

// formatCandidates renders the tool message content: one block per
// candidate with populated metadata keys only, joined by a blank
// line, matching the exact field order the grader and answerer
// prompts were written against.
func formatCandidates(candidates []candidate, parentChild bool) string {
	var blocks []string
	for i, c := range candidates {
		var meta []string
		if c.block.Source != "" {
			meta = append(meta, "Source: "+c.block.Source)
		}
		if c.block.Title != "" {
			meta = append(meta, "Title: "+c.block.Title)
		}
		if c.block.Author != "" {
			meta = append(meta, "Author: "+c.block.Author)
		}
		if c.block.Page > 0 {
			meta = append(meta, fmt.Sprintf("Page: %d", c.block.Page))
		}
		if c.rerankable {
			meta = append(meta, fmt.Sprintf("Rerank_score: %.4f", c.score))
		}
		if parentChild {
			meta = append(meta, "Type: Parent (完整上下文)")
		}
		header := fmt.Sprintf("[Document %d]", i+1)
		if len(meta) > 0 {
			header += " (" + strings.Join(meta, ", ") + ")"
		}
		blocks = append(blocks, header+"\n"+c.block.Content)
	}
	return strings.Join(blocks, "\n\n")
}
