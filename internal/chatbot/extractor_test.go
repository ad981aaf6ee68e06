package chatbot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysmentor/sysmentor-backend/internal/llm"
)

func newTestExtractor(client *fakeLLM) *Extractor {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewExtractor(client, defaultAnalysisPrompt, log)
}

func TestExtractorParsesJSONSurroundedByProse(t *testing.T) {
	client := &fakeLLM{generate: func(string) (string, error) {
		return `Claro, aquí está el análisis:
{"temas_detectados": ["listas enlazadas", "estructuras de datos"], "tipo_consulta": "conceptual", "nivel_complejidad": "básico", "sentimiento": "neutral"}
Espero que sea útil.`, nil
	}}

	metadata, err := newTestExtractor(client).Extract(context.Background(), "¿Qué es una lista enlazada?")
	require.NoError(t, err)

	assert.Equal(t, []string{"listas enlazadas", "estructuras de datos"}, metadata.TemasDetectados)
	assert.Equal(t, TipoConceptual, metadata.TipoConsulta)
	assert.Equal(t, NivelBasico, metadata.NivelComplejidad)
	assert.Equal(t, SentimientoNeutral, metadata.Sentimiento)
}

func TestExtractorNoJSONReturnsEmpty(t *testing.T) {
	client := &fakeLLM{generate: func(string) (string, error) {
		return "No puedo analizar este mensaje.", nil
	}}

	metadata, err := newTestExtractor(client).Extract(context.Background(), "hola")
	require.NoError(t, err)
	assert.True(t, metadata.IsEmpty())
}

func TestExtractorMalformedJSONReturnsEmpty(t *testing.T) {
	client := &fakeLLM{generate: func(string) (string, error) {
		return `{"temas_detectados": [truncated`, nil
	}}

	metadata, err := newTestExtractor(client).Extract(context.Background(), "hola")
	require.NoError(t, err)
	assert.True(t, metadata.IsEmpty())
}

func TestExtractorPropagatesUpstreamError(t *testing.T) {
	upstream := fmt.Errorf("%w: connection refused", llm.ErrUpstream)
	client := &fakeLLM{generate: func(string) (string, error) {
		return "", upstream
	}}

	_, err := newTestExtractor(client).Extract(context.Background(), "hola")
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrUpstream))
}

func TestExtractorSendsMessageInPrompt(t *testing.T) {
	client := &fakeLLM{generate: func(string) (string, error) {
		return "{}", nil
	}}

	_, err := newTestExtractor(client).Extract(context.Background(), "¿Qué es un semáforo?")
	require.NoError(t, err)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "¿Qué es un semáforo?")
}
