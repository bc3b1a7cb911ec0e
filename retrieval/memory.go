package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/orchestrator"
)

// Document 知识库中的一条文档。Vertical 为空表示通用文档，
// 对所有行业检索可见。
type Document struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Vertical string `json:"vertical,omitempty"`
	Title    string `json:"title,omitempty"`
}

// MemoryProvider 基于关键词重叠打分的内存检索提供器。
// 不依赖外部向量库，通过文档内容与查询的词面匹配来排序，
// 适用于本地开发、测试和不需要向量检索的场景。
type MemoryProvider struct {
	mu       sync.RWMutex
	docs     []Document
	minScore float64
	logger   *zap.Logger
}

// ProviderOption 配置 MemoryProvider。
type ProviderOption func(*MemoryProvider)

// WithMinScore sets the relevance floor below which documents are dropped.
func WithMinScore(score float64) ProviderOption {
	return func(p *MemoryProvider) { p.minScore = score }
}

// NewMemoryProvider 创建内存检索提供器。
func NewMemoryProvider(logger *zap.Logger, opts ...ProviderOption) *MemoryProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &MemoryProvider{
		minScore: 0.05,
		logger:   logger.With(zap.String("component", "retrieval_memory")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddDocuments 添加文档。内容为空的文档被跳过。
func (p *MemoryProvider) AddDocuments(docs ...Document) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		p.docs = append(p.docs, doc)
		added++
	}

	p.logger.Info("documents added to knowledge base",
		zap.Int("count", added),
		zap.Int("total", len(p.docs)))
	return added
}

// Count 返回当前文档总数。
func (p *MemoryProvider) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.docs)
}

type scoredDoc struct {
	doc   Document
	score float64
}

// RetrieveWithContext 按查询与文档的词面重叠度检索前 n 条文档。
// 行业不匹配的文档被过滤，没有相关内容时返回 found=false。
func (p *MemoryProvider) RetrieveWithContext(ctx context.Context, query, vertical string, n int) (*orchestrator.RetrievedContext, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if n <= 0 {
		n = 3
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, false, nil
	}

	p.mu.RLock()
	candidates := make([]scoredDoc, 0, len(p.docs))
	for _, doc := range p.docs {
		if doc.Vertical != "" && vertical != "" && doc.Vertical != vertical {
			continue
		}
		score := overlapScore(terms, doc)
		if score >= p.minScore {
			candidates = append(candidates, scoredDoc{doc: doc, score: score})
		}
	}
	p.mu.RUnlock()

	if len(candidates) == 0 {
		p.logger.Debug("no relevant documents",
			zap.String("vertical", vertical),
			zap.Int("query_terms", len(terms)))
		return nil, false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	rc := &orchestrator.RetrievedContext{Vertical: vertical}
	var parts []string
	for _, c := range candidates {
		rc.Documents = append(rc.Documents, c.doc.Content)
		rc.SourceIDs = append(rc.SourceIDs, c.doc.ID)
		rc.Scores = append(rc.Scores, c.score)
		parts = append(parts, c.doc.Content)
	}
	rc.ContextText = strings.Join(parts, "\n\n")

	p.logger.Debug("context retrieved",
		zap.String("vertical", vertical),
		zap.Int("documents", len(candidates)),
		zap.Float64("top_score", candidates[0].score))
	return rc, true, nil
}

// tokenize 将文本拆为小写词条，过滤过短的词。
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '_')
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// overlapScore 计算查询词条在文档中命中的比例。标题命中加权。
func overlapScore(terms []string, doc Document) float64 {
	content := strings.ToLower(doc.Content)
	title := strings.ToLower(doc.Title)

	var hits float64
	for _, t := range terms {
		if strings.Contains(content, t) {
			hits++
		} else if title != "" && strings.Contains(title, t) {
			hits += 0.5
		}
	}
	return hits / float64(len(terms))
}
