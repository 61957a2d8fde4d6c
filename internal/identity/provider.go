package identity

import (
	"context"

	"github.com/careloop/portal-api/internal/model"
	"github.com/careloop/portal-api/internal/repository"
	"github.com/careloop/portal-api/pkg/kv"
)

// Keys in the injected credential store. The demo sign-in path writes
// these; Forget clears them.
const (
	KeyDemoDoctorCode  = "demo:doctor_code"
	KeyRememberedEmail = "demo:remembered_email"
)

// DoctorProvider attempts to resolve the acting doctor from one
// credential source. A (nil, nil) return means "no match here, try the
// next provider".
type DoctorProvider interface {
	Name() string
	Resolve(ctx context.Context) (*model.Doctor, error)
}

// DemoCodeProvider resolves via the locally cached external doctor code
// (e.g. "DOC001") left behind by the demo sign-in path.
type DemoCodeProvider struct {
	store kv.Store
	repo  repository.DoctorRepository
}

func NewDemoCodeProvider(store kv.Store, repo repository.DoctorRepository) *DemoCodeProvider {
	return &DemoCodeProvider{store: store, repo: repo}
}

func (p *DemoCodeProvider) Name() string { return "demo-code" }

func (p *DemoCodeProvider) Resolve(ctx context.Context) (*model.Doctor, error) {
	code, err := p.store.Get(ctx, KeyDemoDoctorCode)
	if err != nil || code == "" {
		return nil, nil
	}
	doctor, err := p.repo.GetByCode(ctx, code)
	if err != nil {
		// A stale or unknown code falls through to the next provider.
		return nil, nil
	}
	return doctor, nil
}

// SessionEmailProvider resolves via the authenticated identity's email.
type SessionEmailProvider struct {
	repo repository.DoctorRepository
}

func NewSessionEmailProvider(repo repository.DoctorRepository) *SessionEmailProvider {
	return &SessionEmailProvider{repo: repo}
}

func (p *SessionEmailProvider) Name() string { return "session-email" }

func (p *SessionEmailProvider) Resolve(ctx context.Context) (*model.Doctor, error) {
	session := SessionFrom(ctx)
	if session == nil || session.Email == "" {
		return nil, nil
	}
	doctor, err := p.repo.GetByEmail(ctx, session.Email)
	if err != nil {
		return nil, nil
	}
	return doctor, nil
}
