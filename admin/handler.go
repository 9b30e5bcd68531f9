// Package admin expõe a moderação administrativa sobre HTTP: decisões de KYC
// de hosts, suspensão e aprovação em lote de anúncios, e planos de assinatura.
package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rental-backend/admin/application"
	"rental-backend/admin/domain"
	"rental-backend/auth"
	"rental-backend/httpx"
)

// Handler concentra os endpoints. Os serviços já carregam notificação,
// auditoria e relógio.
type Handler struct {
	hosts    *application.HostService
	listings *application.ListingService
	plans    *application.PlanService
	logger   *zap.Logger
}

func NewHandler(hosts *application.HostService, listings *application.ListingService, plans *application.PlanService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{hosts: hosts, listings: listings, plans: plans, logger: logger}
}

// fail traduz erros de domínio para o envelope. O que não for reconhecido
// vira 500 genérico e só o log guarda o texto real.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, toAPIError(err))
}

func toAPIError(err error) error {
	var apiErr *httpx.Error
	var ve *domain.ValidationError
	var te *domain.TransitionError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &ve):
		return httpx.Validation(ve.Message)
	case errors.As(err, &te):
		return httpx.InvalidTransition(te.Error())
	case errors.Is(err, domain.ErrHostNotFound),
		errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrPlanNotFound):
		return httpx.NotFound(notFoundMessage(err))
	case errors.Is(err, domain.ErrPlanExists):
		return httpx.Conflict(domain.ErrPlanExists.Error())
	case errors.Is(err, domain.ErrPlanInactive):
		return httpx.AlreadyInactive(domain.ErrPlanInactive.Error())
	}
	return err
}

func notFoundMessage(err error) string {
	for _, s := range []error{domain.ErrHostNotFound, domain.ErrListingNotFound, domain.ErrPlanNotFound} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "not found"
}

// actor lê o usuário posto no contexto pelo gate.
func actor(r *http.Request) (application.Actor, bool) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		return application.Actor{}, false
	}
	return application.Actor{ID: u.SubjectID, Email: u.Email}, true
}

// requireActor escreve 401 quando a rota foi montada sem gate.
func requireActor(w http.ResponseWriter, r *http.Request) (application.Actor, bool) {
	a, ok := actor(r)
	if !ok {
		httpx.WriteAPIError(w, httpx.Unauthorized("authentication required"))
	}
	return a, ok
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 1000 {
		return 0, httpx.Validation("limit must be an integer between 1 and 1000")
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, httpx.Validation(name + " must be true or false")
	}
	return v, nil
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}
