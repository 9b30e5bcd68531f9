package application

import (
	"context"

	"rental-backend/admin/domain"
	"rental-backend/admin/infra"
)

type PlanService struct {
	plans *infra.PlanRepository
	deps  Deps
}

func NewPlanService(plans *infra.PlanRepository, deps Deps) *PlanService {
	return &PlanService{plans: plans, deps: deps.withDefaults()}
}

// Create grava um plano novo, sempre ativo.
func (s *PlanService) Create(ctx context.Context, actor Actor, p domain.Plan) (domain.Plan, error) {
	if err := p.Validate(); err != nil {
		return domain.Plan{}, err
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	now := s.deps.now()
	p.IsActive = true
	p.CreatedAt, p.UpdatedAt = now, now
	p.DeactivatedAt = nil
	p.CreatedBy, p.UpdatedBy = actor.ID, actor.ID

	if err := s.plans.Create(ctx, p); err != nil {
		return domain.Plan{}, err
	}
	s.deps.record(ctx, actor, domain.AuditPlanCreated, "plan", p.PlanID, map[string]any{"name": p.Name})
	return p, nil
}

func (s *PlanService) Get(ctx context.Context, id string) (domain.Plan, error) {
	return s.plans.Get(ctx, id)
}

func (s *PlanService) List(ctx context.Context, includeInactive bool) ([]domain.Plan, error) {
	return s.plans.List(ctx, includeInactive)
}

// Update aplica o patch; planos inativos também podem ser editados.
func (s *PlanService) Update(ctx context.Context, actor Actor, id string, patch domain.PlanPatch) (domain.Plan, error) {
	if patch.Empty() {
		return domain.Plan{}, domain.Invalid("at least one field must be provided")
	}
	cur, err := s.plans.Get(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}
	next, err := patch.ApplyTo(cur)
	if err != nil {
		return domain.Plan{}, err
	}
	p, err := s.plans.Update(ctx, next, patch, actor.ID, s.deps.now())
	if err != nil {
		return domain.Plan{}, err
	}
	s.deps.record(ctx, actor, domain.AuditPlanUpdated, "plan", id, nil)
	return p, nil
}

// Deactivate faz a exclusão lógica. Plano já inativo devolve ErrPlanInactive sem escrever.
func (s *PlanService) Deactivate(ctx context.Context, actor Actor, id string) (domain.Plan, error) {
	cur, err := s.plans.Get(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}
	if !cur.IsActive {
		return domain.Plan{}, domain.ErrPlanInactive
	}
	p, err := s.plans.Deactivate(ctx, id, actor.ID, s.deps.now())
	if err != nil {
		return domain.Plan{}, err
	}
	s.deps.record(ctx, actor, domain.AuditPlanDeactivated, "plan", id, nil)
	return p, nil
}
