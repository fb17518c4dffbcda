package gemini

import (
	"context"
	"fmt"
)

type embedContent struct {
	Content content `json:"content"`
}

type embedValues struct {
	Values []float32 `json:"values"`
}

// Embed builds vectors for a batch of texts via batchEmbedContents.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type batchItem struct {
		Model   string  `json:"model"`
		Content content `json:"content"`
	}
	request := struct {
		Requests []batchItem `json:"requests"`
	}{}
	for _, text := range texts {
		request.Requests = append(request.Requests, batchItem{
			Model:   "models/" + c.embedModel,
			Content: content{Parts: []part{{Text: text}}},
		})
	}

	var response struct {
		Embeddings []embedValues `json:"embeddings"`
	}
	path := fmt.Sprintf("/v1beta/models/%s:batchEmbedContents", c.embedModel)
	if err := c.call(ctx, "embed", path, request, &response); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(response.Embeddings))
	for _, emb := range response.Embeddings {
		out = append(out, emb.Values)
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := embedContent{Content: content{Parts: []part{{Text: text}}}}

	var response struct {
		Embedding embedValues `json:"embedding"`
	}
	path := fmt.Sprintf("/v1beta/models/%s:embedContent", c.embedModel)
	if err := c.call(ctx, "embed_query", path, request, &response); err != nil {
		return nil, err
	}
	if len(response.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embedding.Values, nil
}
