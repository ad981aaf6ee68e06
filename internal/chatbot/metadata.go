package chatbot

// Values the extractor is instructed to choose from. The model does not
// always comply; unknown values are stored as-is rather than rejected.
const (
	TipoConceptual = "conceptual"
	TipoPractica   = "práctica"
	TipoDuda       = "duda"
	TipoProyecto   = "proyecto"

	NivelBasico     = "básico"
	NivelIntermedio = "intermedio"
	NivelAvanzado   = "avanzado"

	SentimientoPositivo   = "positivo"
	SentimientoNeutral    = "neutral"
	SentimientoNegativo   = "negativo"
	SentimientoConfundido = "confundido"
)

// ExtractedMetadata is what the analysis call yields for one user
// message. Every field is independently optional: extraction failure
// leaves all of them empty.
type ExtractedMetadata struct {
	TemasDetectados  []string `json:"temas_detectados,omitempty"`
	TipoConsulta     string   `json:"tipo_consulta,omitempty"`
	NivelComplejidad string   `json:"nivel_complejidad,omitempty"`
	Sentimiento      string   `json:"sentimiento,omitempty"`
}

// IsEmpty reports whether extraction produced nothing
func (m ExtractedMetadata) IsEmpty() bool {
	return len(m.TemasDetectados) == 0 && m.TipoConsulta == "" &&
		m.NivelComplejidad == "" && m.Sentimiento == ""
}

// TurnMetadata is the per-message metadata persisted alongside the turn
type TurnMetadata struct {
	ExtractedMetadata
	LongitudRespuesta int `json:"longitud_respuesta"`
	LongitudContexto  int `json:"longitud_contexto"`
}

// ContextMetadata aggregates what is known about a session when its
// context window is assembled.
type ContextMetadata struct {
	NumMensajes             int      `json:"num_mensajes"`
	TemasDetectados         []string `json:"temas_detectados"`
	TieneConversacionPrevia bool     `json:"tiene_conversacion_previa"`
	TituloConversacion      string   `json:"titulo_conversacion,omitempty"`
	Temas                   []string `json:"temas,omitempty"`
}
