package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
)

// Querier captures the storage methods required by the settings service.
type Querier interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Upsert(ctx context.Context, key string, value []byte) error
}

// Service reads and writes the pricing configuration blobs. Reads resolve to
// fallbacks when no row exists: pricing never blocks on settings absence.
// Reads are deliberately uncached; every calculation sees current settings.
type Service struct {
	Q                Querier
	FallbackTax      Tax
	FallbackShipping Shipping
	Validate         *validator.Validate
}

// NewService constructs a settings service with the documented defaults as
// fallbacks.
func NewService(q Querier) *Service {
	return &Service{
		Q:                q,
		FallbackTax:      DefaultTax(),
		FallbackShipping: DefaultShipping(),
		Validate:         validator.New(),
	}
}

// Tax returns the current tax settings. A missing or unreadable row resolves
// to the fallback; the returned value is always usable even when err is set.
func (s *Service) Tax(ctx context.Context) (Tax, error) {
	fallback := s.FallbackTax
	if s == nil || s.Q == nil {
		return fallback, errors.New("settings service not configured")
	}
	raw, err := s.Q.Get(ctx, KeyTax)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return fallback, err
	}
	var cfg Tax
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fallback, fmt.Errorf("decode tax settings: %w", err)
	}
	return cfg, nil
}

// Shipping returns the current shipping settings with the same fallback
// semantics as Tax.
func (s *Service) Shipping(ctx context.Context) (Shipping, error) {
	fallback := s.FallbackShipping
	if s == nil || s.Q == nil {
		return fallback, errors.New("settings service not configured")
	}
	raw, err := s.Q.Get(ctx, KeyShipping)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return fallback, err
	}
	var cfg Shipping
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fallback, fmt.Errorf("decode shipping settings: %w", err)
	}
	return cfg, nil
}

// UpdateTax validates and persists new tax settings.
func (s *Service) UpdateTax(ctx context.Context, cfg Tax) error {
	if s == nil || s.Q == nil {
		return errors.New("settings service not configured")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.Validate != nil && len(cfg.Rules) > 0 {
		if err := s.Validate.Var(cfg.Rules, "dive"); err != nil {
			return err
		}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.Q.Upsert(ctx, KeyTax, raw)
}

// UpdateShipping validates and persists new shipping settings.
func (s *Service) UpdateShipping(ctx context.Context, cfg Shipping) error {
	if s == nil || s.Q == nil {
		return errors.New("settings service not configured")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(cfg); err != nil {
			return err
		}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.Q.Upsert(ctx, KeyShipping, raw)
}
