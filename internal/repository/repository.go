package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = pgx.ErrNoRows
	// ErrStateConflict is returned when a conditional update matched no row because the
	// record is not in the required state.
	ErrStateConflict = errors.New("record not in required state")
	// ErrDuplicatePending is returned when a pending record already exists for the key.
	ErrDuplicatePending = errors.New("pending record already exists")
	// ErrTeamNotFound is returned when a roster move targets a team that no longer exists.
	ErrTeamNotFound = fmt.Errorf("team: %w", ErrNotFound)
	// ErrAlreadyStaff is returned when enrolling an account that already holds a staff position.
	ErrAlreadyStaff = fmt.Errorf("account already staff: %w", ErrStateConflict)
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// validID reports whether id can address a UUID keyed row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func page(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// AccountFilter defines query params for account listing.
type AccountFilter struct {
	StaffStatus *domain.StaffStatus
	TeamID      *string
	Probation   *bool
	Limit       int
	Offset      int
}

// AccountRepository persists accounts. Every mutation is a single conditional statement or
// a single transaction so concurrent writers never lose updates.
type AccountRepository interface {
	UpsertLogin(ctx context.Context, identity domain.Identity, authority domain.Authority) (*domain.Account, error)
	EnsureAccount(ctx context.Context, discordID, username string) (*domain.Account, error)
	GetByID(ctx context.Context, discordID string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)

	// Enroll makes a player account a probationary trainee and moves it onto the roster of
	// enrollment.TeamID (or no team) in one transaction. It returns ErrAlreadyStaff when the
	// account is already staff and ErrTeamNotFound when the team is gone.
	Enroll(ctx context.Context, enrollment domain.Enrollment) (*domain.Account, error)
	// SetAuthority overrides the stored authority until the next login recomputes it.
	// Staff members cannot be set below staff_member (ErrStateConflict).
	SetAuthority(ctx context.Context, discordID string, authority domain.Authority) (*domain.Account, error)
	// Reset returns a staff member to player defaults and removes them from every roster.
	// It returns the account as it was before the reset.
	Reset(ctx context.Context, discordID string) (*domain.Account, error)
	AddStrike(ctx context.Context, discordID, teamID string, note domain.Note) (*domain.Account, error)
	RemoveStrike(ctx context.Context, discordID string, note domain.Note) (*domain.Account, error)
	AppendNote(ctx context.Context, discordID string, note domain.Note) (*domain.Account, error)
	SetRank(ctx context.Context, discordID string, rank domain.Rank, note domain.Note) (*domain.Account, error)
	TransferTeam(ctx context.Context, discordID, teamID string, note domain.Note) (*domain.Account, error)
	ListProbationDue(ctx context.Context, now time.Time) ([]domain.Account, error)
	// CompleteProbation clears probation if it is still due. It reports whether a row changed.
	CompleteProbation(ctx context.Context, discordID string, now time.Time) (bool, error)
}

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByHeadAdmin(ctx context.Context, accountID string) (*domain.Team, error)
	// List returns teams in stable order: creation time, then id.
	List(ctx context.Context) ([]domain.Team, error)
	// Delete removes the team and clears the team reference of its members.
	Delete(ctx context.Context, id string) error
}

// ApplicationTypeRepository manages application forms.
type ApplicationTypeRepository interface {
	Create(ctx context.Context, appType *domain.ApplicationType) error
	Update(ctx context.Context, appType *domain.ApplicationType) error
	GetByID(ctx context.Context, id string) (*domain.ApplicationType, error)
	List(ctx context.Context, includeInactive bool) ([]domain.ApplicationType, error)
	Deactivate(ctx context.Context, id string) error
}

// ApplicationFilter captures listing parameters.
type ApplicationFilter struct {
	ApplicantID *string
	TypeID      *string
	Status      *domain.ApplicationStatus
	Search      *string
	Limit       int
	Offset      int
}

// ApplicationReview is the one-shot terminal transition of an application.
type ApplicationReview struct {
	Status         domain.ApplicationStatus
	ReviewerID     string
	ReviewedAt     time.Time
	AssignedTeamID *string
}

// ApplicationRepository persists submitted applications.
type ApplicationRepository interface {
	// Create returns ErrDuplicatePending if the applicant already has a pending
	// application of the same type.
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error)
	// Review transitions a pending application; it returns ErrStateConflict when the
	// application was already reviewed.
	Review(ctx context.Context, id string, review ApplicationReview) (*domain.Application, error)
	// ApproveAndEnroll approves a pending staff application and enrolls its applicant in
	// one transaction. Either both happen or neither does; errors are those of Review
	// and AccountRepository.Enroll.
	ApproveAndEnroll(ctx context.Context, id string, review ApplicationReview, enrollment domain.Enrollment) (*domain.Application, *domain.Account, error)
}

// ReportFilter captures listing parameters.
type ReportFilter struct {
	ReporterID *string
	Status     *domain.ReportStatus
	Limit      int
	Offset     int
}

// ReportUpdate lists the fields an admin may change.
type ReportUpdate struct {
	Status     *domain.ReportStatus
	AdminNotes *string
	Punishment *domain.Punishment
	HandledBy  string
	HandledAt  time.Time
}

// ReportRepository persists player reports.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, error)
	Update(ctx context.Context, id string, update ReportUpdate) (*domain.Report, error)
	SetPunishmentStatus(ctx context.Context, id string, status domain.RequestStatus) error
}

// ApprovalFilter captures listing parameters.
type ApprovalFilter struct {
	Kind   *domain.RequestKind
	Status *domain.RequestStatus
	Limit  int
	Offset int
}

// ApprovalRepository persists resolve-once approval requests.
type ApprovalRepository interface {
	// Create inserts a pending request; it returns ErrDuplicatePending when a firing
	// request is already pending for the same target or a punishment request for the
	// same report.
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	FindPending(ctx context.Context, kind domain.RequestKind, targetID string) (*domain.ApprovalRequest, error)
	List(ctx context.Context, filter ApprovalFilter) ([]domain.ApprovalRequest, error)
	// Claim atomically moves a pending request to status. It returns ErrStateConflict
	// when the request is no longer pending.
	Claim(ctx context.Context, id string, status domain.RequestStatus, reviewerID string, at time.Time) (*domain.ApprovalRequest, error)
	SetMessageRef(ctx context.Context, id, ref string) error
}

// StatsRepository computes dashboard counters.
type StatsRepository interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

// Repositories bundles every repository used by the services.
type Repositories struct {
	Accounts         AccountRepository
	Teams            TeamRepository
	ApplicationTypes ApplicationTypeRepository
	Applications     ApplicationRepository
	Reports          ReportRepository
	Approvals        ApprovalRepository
	Stats            StatsRepository
}

// NewPostgres wires every repository against the pool.
func NewPostgres(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Accounts:         NewAccountRepository(pool),
		Teams:            NewTeamRepository(pool),
		ApplicationTypes: NewApplicationTypeRepository(pool),
		Applications:     NewApplicationRepository(pool),
		Reports:          NewReportRepository(pool),
		Approvals:        NewApprovalRepository(pool),
		Stats:            NewStatsRepository(pool),
	}
}
