package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// ApplicationService manages application forms and submissions. Reviews are delegated to
// the lifecycle engine.
type ApplicationService struct {
	types        repository.ApplicationTypeRepository
	applications repository.ApplicationRepository
	lifecycle    *LifecycleService
	outbox       outbox
}

// ApplicationTypeInput describes a form definition.
type ApplicationTypeInput struct {
	Name        string
	Description string
	Kind        domain.ApplicationKind
	Questions   []string
	Active      *bool
}

// ApplicationListFilter describes listing parameters.
type ApplicationListFilter struct {
	TypeID *string
	Status *domain.ApplicationStatus
	Search *string
	Limit  int
	Offset int
}

// NewApplicationService builds the service.
func NewApplicationService(repos *repository.Repositories, lifecycle *LifecycleService, out outbox) *ApplicationService {
	return &ApplicationService{
		types:        repos.ApplicationTypes,
		applications: repos.Applications,
		lifecycle:    lifecycle,
		outbox:       out,
	}
}

func (in *ApplicationTypeInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if in.Kind == "" {
		in.Kind = domain.ApplicationKindStaff
	}
	if in.Kind != domain.ApplicationKindStaff && in.Kind != domain.ApplicationKindWhitelist {
		return apperrors.NewValidationError("invalid application kind", map[string]any{"kind": in.Kind})
	}
	questions := make([]string, 0, len(in.Questions))
	for _, q := range in.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return apperrors.NewValidationError("at least one question is required", nil)
	}
	in.Questions = questions
	return nil
}

// CreateType adds a form.
func (s *ApplicationService) CreateType(ctx context.Context, actor *domain.Account, input ApplicationTypeInput) (*domain.ApplicationType, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}
	appType := &domain.ApplicationType{
		Name:        input.Name,
		Description: input.Description,
		Kind:        input.Kind,
		Questions:   input.Questions,
		Active:      input.Active == nil || *input.Active,
	}
	if err := s.types.Create(ctx, appType); err != nil {
		return nil, apperrors.MapError(err)
	}
	return appType, nil
}

// UpdateType replaces a form definition.
func (s *ApplicationService) UpdateType(ctx context.Context, actor *domain.Account, id string, input ApplicationTypeInput) (*domain.ApplicationType, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}
	appType, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "application type")
	}
	appType.Name = input.Name
	appType.Description = input.Description
	appType.Kind = input.Kind
	appType.Questions = input.Questions
	if input.Active != nil {
		appType.Active = *input.Active
	}
	if err := s.types.Update(ctx, appType); err != nil {
		return nil, mapRepoErr(err, "application type")
	}
	return appType, nil
}

// DeleteType deactivates a form. Existing applications keep their snapshot.
func (s *ApplicationService) DeleteType(ctx context.Context, actor *domain.Account, id string) error {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return err
	}
	return mapRepoErr(s.types.Deactivate(ctx, id), "application type")
}

// ListTypes returns forms; inactive ones only when includeInactive.
func (s *ApplicationService) ListTypes(ctx context.Context, includeInactive bool) ([]domain.ApplicationType, error) {
	return s.types.List(ctx, includeInactive)
}

// GetType returns one form.
func (s *ApplicationService) GetType(ctx context.Context, id string) (*domain.ApplicationType, error) {
	appType, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "application type")
	}
	return appType, nil
}

// Create submits an application for the actor.
func (s *ApplicationService) Create(ctx context.Context, actor *domain.Account, typeID string, answers map[string]string) (*domain.Application, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	appType, err := s.types.GetByID(ctx, typeID)
	if err != nil {
		return nil, mapRepoErr(err, "application type")
	}
	if !appType.Active {
		return nil, apperrors.NewValidationError("application type is not accepting applications", map[string]any{"type_id": typeID})
	}

	var missing []string
	clean := make(map[string]string, len(appType.Questions))
	for _, q := range appType.Questions {
		answer := strings.TrimSpace(answers[q])
		if answer == "" {
			missing = append(missing, q)
			continue
		}
		clean[q] = answer
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("every question must be answered", map[string]any{"missing": missing})
	}

	app := &domain.Application{
		ApplicantID:   actor.DiscordID,
		ApplicantName: actor.Username,
		TypeID:        appType.ID,
		TypeName:      appType.Name,
		TypeKind:      appType.Kind,
		Status:        domain.ApplicationStatusPending,
		Answers:       clean,
	}
	if err := s.applications.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, apperrors.NewConflict("you already have a pending application of this type", map[string]any{"type_id": typeID})
		}
		return nil, apperrors.MapError(err)
	}
	return app, nil
}

// List returns every application to staff admins and only their own to everyone else.
func (s *ApplicationService) List(ctx context.Context, actor *domain.Account, filter ApplicationListFilter) ([]domain.Application, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	query := repository.ApplicationFilter{
		TypeID: filter.TypeID,
		Status: filter.Status,
		Search: filter.Search,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if !actor.Authority.AtLeast(domain.AuthorityStaffAdmin) {
		own := actor.DiscordID
		query.ApplicantID = &own
		query.Search = nil
	}
	return s.applications.List(ctx, query)
}

// Get returns an application the actor owns, or any application to staff admins.
func (s *ApplicationService) Get(ctx context.Context, actor *domain.Account, id string) (*domain.Application, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("not authenticated")
	}
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "application")
	}
	if app.ApplicantID != actor.DiscordID && !actor.Authority.AtLeast(domain.AuthorityStaffAdmin) {
		return nil, apperrors.NewForbidden("not your application")
	}
	return app, nil
}

// Review approves or rejects an application.
func (s *ApplicationService) Review(ctx context.Context, actor *domain.Account, id string, status domain.ApplicationStatus, teamID *string) (*domain.Application, error) {
	return s.lifecycle.ReviewApplication(ctx, actor, id, status, teamID)
}
