package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// MsgBodyRequired é a mensagem de DecodeJSON para corpo ausente.
const MsgBodyRequired = "request body is required"

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// SetCORS aplica os cabeçalhos CORS permissivos usados em todas as respostas.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
	h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
}

// WriteSuccess escreve {"success": true, ...data}.
func WriteSuccess(w http.ResponseWriter, status int, data map[string]any) {
	body := make(map[string]any, len(data)+1)
	for k, v := range data {
		body[k] = v
	}
	body["success"] = true
	writeJSON(w, status, body)
}

// WriteAPIError escreve o envelope de erro para um erro já classificado.
func WriteAPIError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.Status, errorEnvelope{
		Success: false,
		Error:   errorBody{Code: e.Code, Message: e.Message},
	})
}

// RouteNotFound e RouteMethodNotAllowed respondem no envelope as rotas que
// o roteador não conhece.
func RouteNotFound(w http.ResponseWriter, _ *http.Request) {
	WriteAPIError(w, NotFound("route not found"))
}

func RouteMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteAPIError(w, MethodNotAllowed("method not allowed"))
}

// WriteError classifica err e escreve o envelope. Erros não classificados são
// logados com o texto real e respondidos como 500 genérico.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	apiErr, known := AsError(err)
	if !known && logger != nil {
		logger.Error("unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err))
	}
	WriteAPIError(w, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	SetCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON lê o corpo em dst rejeitando campos desconhecidos e corpos extras.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return Validation(MsgBodyRequired)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return Validation(MsgBodyRequired)
		}
		return Validation("invalid request body: " + sanitizeDecodeError(err))
	}
	if dec.More() {
		return Validation("request body must contain a single JSON object")
	}
	return nil
}

// sanitizeDecodeError mantém só a parte útil da mensagem do encoding/json.
func sanitizeDecodeError(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "json: ")
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
