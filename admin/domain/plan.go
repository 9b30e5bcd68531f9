package domain

import (
	"regexp"
	"strings"
	"time"
)

type BillingInterval string

const (
	IntervalMonthly BillingInterval = "MONTHLY"
	IntervalYearly  BillingInterval = "YEARLY"
)

func (i BillingInterval) Valid() bool {
	return i == IntervalMonthly || i == IntervalYearly
}

type Plan struct {
	PlanID        string          `json:"planId"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	PriceCents    int64           `json:"priceCents"`
	Currency      string          `json:"currency"`
	Interval      BillingInterval `json:"interval"`
	MaxListings   int             `json:"maxListings"`
	Features      []string        `json:"features"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeactivatedAt *time.Time      `json:"deactivatedAt,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	UpdatedBy     string          `json:"updatedBy,omitempty"`
}

// PlanPatch é uma atualização parcial; campos nil não mudam.
type PlanPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	PriceCents  *int64           `json:"priceCents"`
	Currency    *string          `json:"currency"`
	Interval    *BillingInterval `json:"interval"`
	MaxListings *int             `json:"maxListings"`
	Features    *[]string        `json:"features"`
}

var (
	planIDRE   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
	currencyRE = regexp.MustCompile(`^[A-Z]{3}$`)
)

const (
	maxPlanName        = 100
	maxPlanDescription = 1000
	maxPlanFeatures    = 50
)

// Validate confere um plano novo. Normaliza moeda e espaços.
func (p *Plan) Validate() error {
	p.PlanID = strings.TrimSpace(p.PlanID)
	if !planIDRE.MatchString(p.PlanID) {
		return Invalid("planId must be 1-64 lowercase letters, digits, '-' or '_'")
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	return validatePlanFields(p.Name, p.Description, p.PriceCents, p.Currency, p.Interval, p.MaxListings, p.Features)
}

func (p PlanPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.PriceCents == nil && p.Currency == nil &&
		p.Interval == nil && p.MaxListings == nil && p.Features == nil
}

// ApplyTo devolve o plano com o patch aplicado, validado por inteiro.
func (p PlanPatch) ApplyTo(plan Plan) (Plan, error) {
	if p.Empty() {
		return Plan{}, Invalid("at least one field must be provided")
	}
	if p.Name != nil {
		plan.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		plan.Description = *p.Description
	}
	if p.PriceCents != nil {
		plan.PriceCents = *p.PriceCents
	}
	if p.Currency != nil {
		plan.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.Interval != nil {
		plan.Interval = *p.Interval
	}
	if p.MaxListings != nil {
		plan.MaxListings = *p.MaxListings
	}
	if p.Features != nil {
		plan.Features = append(make([]string, 0, len(*p.Features)), (*p.Features)...)
	}
	if err := validatePlanFields(plan.Name, plan.Description, plan.PriceCents, plan.Currency, plan.Interval, plan.MaxListings, plan.Features); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func validatePlanFields(name, description string, price int64, currency string, interval BillingInterval, maxListings int, features []string) error {
	switch {
	case name == "" || len(name) > maxPlanName:
		return Invalid("name must be 1-%d characters", maxPlanName)
	case len(description) > maxPlanDescription:
		return Invalid("description must be at most %d characters", maxPlanDescription)
	case price < 0:
		return Invalid("priceCents must be >= 0")
	case !currencyRE.MatchString(currency):
		return Invalid("currency must be a 3-letter ISO code")
	case !interval.Valid():
		return Invalid("interval must be MONTHLY or YEARLY")
	case maxListings < 1:
		return Invalid("maxListings must be >= 1")
	case len(features) > maxPlanFeatures:
		return Invalid("at most %d features are allowed", maxPlanFeatures)
	}
	for _, f := range features {
		if strings.TrimSpace(f) == "" {
			return Invalid("features must not contain empty values")
		}
	}
	return nil
}
