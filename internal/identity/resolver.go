// Package identity resolves the acting doctor or patient profile for a
// request. Two credential paths exist side by side — a demo/local path
// keyed on a cached doctor code, and the backend-session path keyed on
// the token's email — so resolution walks an ordered provider list and
// takes the first match. Store failures are treated as "no profile",
// never as errors: the caller's fallback is a no-profile UI state.
package identity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/repository"
	"github.com/careloop/portal-api/pkg/kv"
)

type Resolver struct {
	providers []DoctorProvider
	patients  repository.PatientRepository
	store     kv.Store
	logger    *zerolog.Logger
}

// NewResolver builds a resolver over the given provider order. The
// provider list is configuration, not hardcoded, so the demo path can
// be dropped cleanly.
func NewResolver(providers []DoctorProvider, patients repository.PatientRepository, store kv.Store, logger *zerolog.Logger) *Resolver {
	return &Resolver{
		providers: providers,
		patients:  patients,
		store:     store,
		logger:    logger,
	}
}

// CurrentDoctor returns the acting doctor's profile, or (nil, nil) when
// no provider produced a match. It never returns an error for a missing
// profile.
func (r *Resolver) CurrentDoctor(ctx context.Context) (*model.Doctor, error) {
	for _, p := range r.providers {
		doctor, err := p.Resolve(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Str("provider", p.Name()).Msg("doctor resolution failed")
			continue
		}
		if doctor != nil {
			return doctor, nil
		}
	}
	return nil, nil
}

// CurrentPatient returns the patient profile owned by the session user,
// or (nil, nil) when absent. At most one row exists per user.
func (r *Resolver) CurrentPatient(ctx context.Context) (*model.Patient, error) {
	session := SessionFrom(ctx)
	if session == nil {
		return nil, nil
	}

	patient, err := r.patients.GetByUserID(ctx, session.UserID)
	if err != nil {
		return nil, nil
	}
	return patient, nil
}

// RememberDoctorCode stores the demo doctor code for subsequent
// resolution.
func (r *Resolver) RememberDoctorCode(ctx context.Context, code string, ttl time.Duration) error {
	return r.store.Set(ctx, KeyDemoDoctorCode, code, ttl)
}

// RememberEmail stores the remembered email; ttl zero means no expiry.
func (r *Resolver) RememberEmail(ctx context.Context, email string, ttl time.Duration) error {
	return r.store.Set(ctx, KeyRememberedEmail, email, ttl)
}

// RememberedEmail returns the stored email, or "" when none is set.
func (r *Resolver) RememberedEmail(ctx context.Context) string {
	email, err := r.store.Get(ctx, KeyRememberedEmail)
	if err != nil {
		return ""
	}
	return email
}

// Forget clears all locally remembered credentials.
func (r *Resolver) Forget(ctx context.Context) {
	if err := r.store.Delete(ctx, KeyDemoDoctorCode); err != nil {
		r.logger.Warn().Err(err).Msg("failed to clear demo doctor code")
	}
	if err := r.store.Delete(ctx, KeyRememberedEmail); err != nil {
		r.logger.Warn().Err(err).Msg("failed to clear remembered email")
	}
}
