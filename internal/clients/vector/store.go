package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/utils"
)

const maxErrorBodyBytes = 1024

// Store answers nearest-neighbor queries over the question embedding
// index, scoped to one exam. Callers must treat an empty result as
// "this source contributes nothing" rather than an error.
type Store interface {
	NearestQuestions(ctx context.Context, vector []float32, topK int, examID uuid.UUID) ([]uuid.UUID, error)
}

type store struct {
	log        *logger.Logger
	baseURL    string
	collection string
	apiKey     string
	http       *http.Client
}

// NewStore reads VECTOR_URL / VECTOR_COLLECTION / VECTOR_API_KEY. When
// no URL is configured the returned store is a no-op that contributes
// nothing, so generation still works without a vector index.
func NewStore(log *logger.Logger) Store {
	storeLog := log.With("service", "VectorStore")

	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("VECTOR_URL", "", log)), "/")
	if baseURL == "" {
		storeLog.Warn("VECTOR_URL not set, semantic similarity pooling disabled")
		return &noopStore{}
	}
	collection := utils.GetEnv("VECTOR_COLLECTION", "questions", log)

	return &store{
		log:        storeLog,
		baseURL:    baseURL,
		collection: collection,
		apiKey:     utils.GetEnv("VECTOR_API_KEY", "", log),
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type searchRequest struct {
	Vector []float32      `json:"vector"`
	Limit  int            `json:"limit"`
	Filter map[string]any `json:"filter,omitempty"`
}

type searchEnvelope struct {
	Result []struct {
		ID    json.RawMessage `json:"id"`
		Score float64         `json:"score"`
	} `json:"result"`
}

func (s *store) NearestQuestions(ctx context.Context, vector []float32, topK int, examID uuid.UUID) ([]uuid.UUID, error) {
	if len(vector) == 0 || topK <= 0 {
		return []uuid.UUID{}, nil
	}

	reqBody := searchRequest{
		Vector: vector,
		Limit:  topK,
		Filter: map[string]any{
			"must": []map[string]any{
				{"key": "exam_id", "match": map[string]any{"value": examID.String()}},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("vector search http %d: %s", resp.StatusCode, string(raw))
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(envelope.Result))
	for _, item := range envelope.Result {
		var idStr string
		if err := json.Unmarshal(item.ID, &idStr); err != nil {
			continue
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			s.log.Warn("Vector point id is not a uuid, skipping", "id", idStr)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type noopStore struct{}

func (*noopStore) NearestQuestions(ctx context.Context, vector []float32, topK int, examID uuid.UUID) ([]uuid.UUID, error) {
	return []uuid.UUID{}, nil
}
