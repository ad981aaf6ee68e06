package chatbot

import "github.com/sysmentor/sysmentor-backend/internal/config"

// Default prompt templates. They are configuration-level strings so the
// wording can evolve without touching control flow; config values
// override them when present.
const (
	defaultSystemPrompt = `Eres un asistente académico especializado en Ingeniería en Sistemas y Tecnologías de la Información.
Tu objetivo es ayudar a los estudiantes a comprender conceptos, resolver dudas y proporcionar orientación académica.
Debes ser claro, preciso y educativo en tus respuestas.`

	defaultGuidelines = `
Directrices importantes:
1. Proporciona explicaciones claras y ejemplos prácticos cuando sea posible
2. Si no conoces la respuesta, indícalo claramente en lugar de inventar información
3. Cuando sea relevante, menciona recursos adicionales que el estudiante pueda consultar
4. Adapta tu nivel de explicación al contexto de la conversación
5. Mantén un tono profesional pero amigable`

	defaultAnalysisPrompt = `Analiza el siguiente mensaje de un estudiante de Ingeniería en Sistemas:

"%s"

Extrae y devuelve SOLO un objeto JSON con la siguiente estructura:
{
  "temas_detectados": ["tema1", "tema2"],
  "tipo_consulta": "conceptual" | "práctica" | "duda" | "proyecto",
  "nivel_complejidad": "básico" | "intermedio" | "avanzado",
  "sentimiento": "positivo" | "neutral" | "negativo" | "confundido"
}
`

	defaultTitlePrompt = `Basado en este mensaje de un estudiante: "%s"

Genera un título corto y descriptivo para esta conversación (máximo 5 palabras).
Responde SOLO con el título, sin comillas ni puntuación adicional.`

	defaultSummaryPrompt = `Basado en esta conversación:

%s

Genera un resumen conciso (máximo 2 frases) que capture los puntos principales discutidos.`

	summaryContextPrefix = "Resumen de la conversación anterior: %s\n\n"
	exchangeBlock        = "Usuario: %s\nChatbot: %s\n\n"
)

// Prompts holds the resolved template set used by the subsystem
type Prompts struct {
	System   string
	Analysis string
	Title    string
	Summary  string
}

// ResolvePrompts applies config overrides on top of the defaults
func ResolvePrompts(cfg config.ChatbotConfig) Prompts {
	p := Prompts{
		System:   defaultSystemPrompt,
		Analysis: defaultAnalysisPrompt,
		Title:    defaultTitlePrompt,
		Summary:  defaultSummaryPrompt,
	}
	if cfg.SystemPrompt != "" {
		p.System = cfg.SystemPrompt
	}
	if cfg.AnalysisPrompt != "" {
		p.Analysis = cfg.AnalysisPrompt
	}
	if cfg.TitlePrompt != "" {
		p.Title = cfg.TitlePrompt
	}
	if cfg.SummaryPrompt != "" {
		p.Summary = cfg.SummaryPrompt
	}
	return p
}
