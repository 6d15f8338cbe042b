package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

type appTypeRepo struct{ s *Store }

func (r *appTypeRepo) Create(_ context.Context, appType *domain.ApplicationType) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	appType.ID = uuid.NewString()
	appType.CreatedAt = now
	appType.UpdatedAt = now
	s.appTypes[appType.ID] = cloneAppType(appType)
	return nil
}

func (r *appTypeRepo) Update(_ context.Context, appType *domain.ApplicationType) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.appTypes[appType.ID]
	if !ok {
		return repository.ErrNotFound
	}
	appType.CreatedAt = stored.CreatedAt
	appType.UpdatedAt = s.stamp()
	s.appTypes[appType.ID] = cloneAppType(appType)
	return nil
}

func (r *appTypeRepo) GetByID(_ context.Context, id string) (*domain.ApplicationType, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	appType, ok := s.appTypes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAppType(appType), nil
}

func (r *appTypeRepo) List(_ context.Context, includeInactive bool) ([]domain.ApplicationType, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.ApplicationType
	for _, appType := range s.appTypes {
		if appType.Active || includeInactive {
			result = append(result, *cloneAppType(appType))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *appTypeRepo) Deactivate(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	appType, ok := s.appTypes[id]
	if !ok {
		return repository.ErrNotFound
	}
	appType.Active = false
	appType.UpdatedAt = s.stamp()
	return nil
}

func cloneAppType(t *domain.ApplicationType) *domain.ApplicationType {
	out := *t
	out.Questions = append([]string{}, t.Questions...)
	return &out
}

type applicationRepo struct{ s *Store }

func (r *applicationRepo) Create(_ context.Context, app *domain.Application) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apps {
		if existing.ApplicantID == app.ApplicantID && existing.TypeID == app.TypeID &&
			existing.Status == domain.ApplicationStatusPending {
			return repository.ErrDuplicatePending
		}
	}
	app.ID = uuid.NewString()
	app.Status = domain.ApplicationStatusPending
	app.SubmittedAt = s.stamp()
	s.apps[app.ID] = cloneApplication(app)
	return nil
}

func (r *applicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneApplication(app), nil
}

func (r *applicationRepo) List(_ context.Context, filter repository.ApplicationFilter) ([]domain.Application, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Application
	for _, app := range s.apps {
		if filter.ApplicantID != nil && app.ApplicantID != *filter.ApplicantID {
			continue
		}
		if filter.TypeID != nil && app.TypeID != *filter.TypeID {
			continue
		}
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		if filter.Search != nil && *filter.Search != "" &&
			!containsFold(app.ApplicantName, *filter.Search) && !containsFold(app.ApplicantID, *filter.Search) {
			continue
		}
		result = append(result, *cloneApplication(app))
	}
	sortByTime(result, func(a domain.Application) time.Time { return a.SubmittedAt }, true)
	return page(result, filter.Limit, filter.Offset, 50), nil
}

func (r *applicationRepo) Review(_ context.Context, id string, review repository.ApplicationReview) (*domain.Application, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	app, err := s.pendingApplication(id)
	if err != nil {
		return nil, err
	}
	applyReview(app, review)
	return cloneApplication(app), nil
}

func (r *applicationRepo) ApproveAndEnroll(_ context.Context, id string, review repository.ApplicationReview, enrollment domain.Enrollment) (*domain.Application, *domain.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	app, err := s.pendingApplication(id)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.enrollable(enrollment)
	if err != nil {
		return nil, nil, err
	}

	review.Status = domain.ApplicationStatusApproved
	review.AssignedTeamID = enrollment.TeamID
	applyReview(app, review)
	s.enroll(account, enrollment)
	return cloneApplication(app), cloneAccount(account), nil
}

// pendingApplication must be called with the lock held.
func (s *Store) pendingApplication(id string) (*domain.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, repository.ErrStateConflict
	}
	return app, nil
}

func applyReview(app *domain.Application, review repository.ApplicationReview) {
	app.Status = review.Status
	app.ReviewedBy = strPtr(review.ReviewerID)
	app.ReviewedAt = timePtr(review.ReviewedAt)
	app.AssignedTeamID = cloneString(review.AssignedTeamID)
}

func cloneApplication(a *domain.Application) *domain.Application {
	out := *a
	out.Answers = make(map[string]string, len(a.Answers))
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	out.ReviewedBy = cloneString(a.ReviewedBy)
	out.ReviewedAt = cloneTime(a.ReviewedAt)
	out.AssignedTeamID = cloneString(a.AssignedTeamID)
	return &out
}
