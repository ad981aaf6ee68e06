package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sysmentor/sysmentor-backend/internal/llm"
)

// Extractor classifies a single incoming message into topics, query
// type, complexity and sentiment by asking the external model.
type Extractor struct {
	client llm.Client
	prompt string
	log    *logrus.Logger
}

// NewExtractor creates a metadata extractor
func NewExtractor(client llm.Client, prompt string, log *logrus.Logger) *Extractor {
	return &Extractor{
		client: client,
		prompt: prompt,
		log:    log,
	}
}

// Extract analyzes a user message. A malformed model response degrades
// to empty metadata; only transport failure of the call itself is
// returned as an error.
func (e *Extractor) Extract(ctx context.Context, message string) (ExtractedMetadata, error) {
	raw, err := e.client.Generate(ctx, fmt.Sprintf(e.prompt, message))
	if err != nil {
		return ExtractedMetadata{}, err
	}

	return e.parse(raw), nil
}

// parse pulls the first {...} span out of the raw response; the model
// may wrap the JSON in prose.
func (e *Extractor) parse(raw string) ExtractedMetadata {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	if start < 0 || end <= start {
		e.log.Warn("no JSON object found in analysis response")
		return ExtractedMetadata{}
	}

	var metadata ExtractedMetadata
	if err := json.Unmarshal([]byte(raw[start:end+1]), &metadata); err != nil {
		e.log.WithError(err).Warn("failed to decode analysis response")
		return ExtractedMetadata{}
	}

	return metadata
}
