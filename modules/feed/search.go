package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// SearchResult is one post hit from the search index.
type SearchResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// Searcher queries the posts index.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type opensearchSearcher struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchSearcher returns a Searcher over the given posts index.
func NewOpenSearchSearcher(client *opensearch.Client, index string) Searcher {
	return &opensearchSearcher{client: client, index: index}
}

func (s *opensearchSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	body, err := json.Marshal(map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "body"},
			},
		},
		"_source": []string{"title", "snippet"},
	})
	if err != nil {
		return nil, err
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
	}
	resp, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("search returned %s", resp.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Title   string `json:"title"`
					Snippet string `json:"snippet"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]SearchResult, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		results = append(results, SearchResult{
			ID:      hit.ID,
			Title:   hit.Source.Title,
			Snippet: hit.Source.Snippet,
			Score:   hit.Score,
		})
	}
	return results, nil
}
