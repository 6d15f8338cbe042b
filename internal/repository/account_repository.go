package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-service/internal/domain"
)

const accountColumns = `discord_id, username, avatar, authority, staff_status, team_id, rank,
                        strikes, notes, probation, probation_end, created_at, updated_at`

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository instantiates the repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

// UpsertLogin records a login. The stored authority is overwritten; when it falls below
// head_admin the account is also cleared as head admin of any team.
func (r *accountRepository) UpsertLogin(ctx context.Context, identity domain.Identity, authority domain.Authority) (*domain.Account, error) {
	const upsert = `
        INSERT INTO accounts (discord_id, username, avatar, authority)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (discord_id) DO UPDATE
        SET username=EXCLUDED.username, avatar=EXCLUDED.avatar, authority=EXCLUDED.authority, updated_at=NOW()
        RETURNING ` + accountColumns

	var account *domain.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		account, err = scanAccount(tx.QueryRow(ctx, upsert, identity.ExternalID, identity.Username, identity.Avatar, authority))
		if err != nil {
			return err
		}
		if authority.AtLeast(domain.AuthorityHeadAdmin) {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE teams SET head_admin_id=NULL, updated_at=NOW() WHERE head_admin_id=$1`, identity.ExternalID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) EnsureAccount(ctx context.Context, discordID, username string) (*domain.Account, error) {
	const query = `
        INSERT INTO accounts (discord_id, username)
        VALUES ($1,$2)
        ON CONFLICT (discord_id) DO UPDATE
        SET username=COALESCE(NULLIF(EXCLUDED.username, ''), accounts.username)
        RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, discordID, username))
}

func (r *accountRepository) GetByID(ctx context.Context, discordID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE discord_id=$1`
	return scanAccount(r.pool.QueryRow(ctx, query, discordID))
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StaffStatus != nil {
		args = append(args, *filter.StaffStatus)
		clauses = append(clauses, fmt.Sprintf("staff_status=$%d", len(args)))
	}
	if filter.TeamID != nil {
		if !validID(*filter.TeamID) {
			return nil, nil
		}
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if filter.Probation != nil {
		args = append(args, *filter.Probation)
		clauses = append(clauses, fmt.Sprintf("probation=$%d", len(args)))
	}

	limit, offset := page(filter.Limit, filter.Offset, 100)
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY created_at, discord_id LIMIT %d OFFSET %d`,
		accountColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) Enroll(ctx context.Context, enrollment domain.Enrollment) (*domain.Account, error) {
	var account *domain.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		account, err = enrollTx(ctx, tx, enrollment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) SetAuthority(ctx context.Context, discordID string, authority domain.Authority) (*domain.Account, error) {
	const query = `
        UPDATE accounts
        SET authority=$2, updated_at=NOW()
        WHERE discord_id=$1 AND (staff_status='player' OR $2 <> 'player')
        RETURNING ` + accountColumns

	var account *domain.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		account, err = scanAccount(tx.QueryRow(ctx, query, discordID, authority))
		if err != nil {
			return err
		}
		if authority.AtLeast(domain.AuthorityHeadAdmin) {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE teams SET head_admin_id=NULL, updated_at=NOW() WHERE head_admin_id=$1`, discordID)
		return err
	})
	return r.conditional(ctx, discordID, account, err)
}

func (r *accountRepository) Reset(ctx context.Context, discordID string) (*domain.Account, error) {
	const reset = `
        UPDATE accounts
        SET staff_status='player', team_id=NULL, rank=NULL, strikes=0, notes='[]'::jsonb,
            probation=FALSE, probation_end=NULL,
            authority=CASE WHEN authority='staff_member' THEN 'player' ELSE authority END,
            updated_at=NOW()
        WHERE discord_id=$1`

	var prior *domain.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		prior, err = scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE discord_id=$1 FOR UPDATE`, discordID))
		if err != nil {
			return err
		}
		if !prior.IsStaff() {
			return ErrStateConflict
		}
		if err := moveOnRoster(ctx, tx, discordID, nil); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, reset, discordID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prior, nil
}

func (r *accountRepository) AddStrike(ctx context.Context, discordID, teamID string, note domain.Note) (*domain.Account, error) {
	if !validID(teamID) {
		return nil, ErrStateConflict
	}
	const query = `
        UPDATE accounts
        SET strikes=strikes+1, notes=notes || jsonb_build_array($3::jsonb), updated_at=NOW()
        WHERE discord_id=$1 AND staff_status='staff_member' AND team_id=$2
        RETURNING ` + accountColumns
	account, err := scanAccount(r.pool.QueryRow(ctx, query, discordID, teamID, note))
	return r.conditional(ctx, discordID, account, err)
}

func (r *accountRepository) RemoveStrike(ctx context.Context, discordID string, note domain.Note) (*domain.Account, error) {
	const query = `
        UPDATE accounts
        SET strikes=strikes-1, notes=notes || jsonb_build_array($2::jsonb), updated_at=NOW()
        WHERE discord_id=$1 AND staff_status='staff_member' AND strikes > 0
        RETURNING ` + accountColumns
	account, err := scanAccount(r.pool.QueryRow(ctx, query, discordID, note))
	return r.conditional(ctx, discordID, account, err)
}

func (r *accountRepository) AppendNote(ctx context.Context, discordID string, note domain.Note) (*domain.Account, error) {
	const query = `
        UPDATE accounts
        SET notes=notes || jsonb_build_array($2::jsonb), updated_at=NOW()
        WHERE discord_id=$1 AND staff_status='staff_member'
        RETURNING ` + accountColumns
	account, err := scanAccount(r.pool.QueryRow(ctx, query, discordID, note))
	return r.conditional(ctx, discordID, account, err)
}

func (r *accountRepository) SetRank(ctx context.Context, discordID string, rank domain.Rank, note domain.Note) (*domain.Account, error) {
	const query = `
        UPDATE accounts
        SET rank=$2, notes=notes || jsonb_build_array($3::jsonb), updated_at=NOW()
        WHERE discord_id=$1 AND staff_status='staff_member'
        RETURNING ` + accountColumns
	account, err := scanAccount(r.pool.QueryRow(ctx, query, discordID, rank, note))
	return r.conditional(ctx, discordID, account, err)
}

func (r *accountRepository) TransferTeam(ctx context.Context, discordID, teamID string, note domain.Note) (*domain.Account, error) {
	if !validID(teamID) {
		return nil, ErrNotFound
	}
	const transfer = `
        UPDATE accounts
        SET team_id=$2, notes=notes || jsonb_build_array($3::jsonb), updated_at=NOW()
        WHERE discord_id=$1
        RETURNING ` + accountColumns

	var account *domain.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var status domain.StaffStatus
		if err := tx.QueryRow(ctx, `SELECT staff_status FROM accounts WHERE discord_id=$1 FOR UPDATE`, discordID).Scan(&status); err != nil {
			return err
		}
		if status != domain.StaffStatusMember {
			return ErrStateConflict
		}
		if err := moveOnRoster(ctx, tx, discordID, &teamID); err != nil {
			return err
		}
		var err error
		account, err = scanAccount(tx.QueryRow(ctx, transfer, discordID, teamID, note))
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) ListProbationDue(ctx context.Context, now time.Time) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + `
        FROM accounts
        WHERE probation AND probation_end <= $1 AND staff_status='staff_member'
        ORDER BY probation_end`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) CompleteProbation(ctx context.Context, discordID string, now time.Time) (bool, error) {
	const query = `
        UPDATE accounts
        SET probation=FALSE, probation_end=NULL, updated_at=NOW()
        WHERE discord_id=$1 AND staff_status <> 'player' AND probation AND probation_end <= $2`
	cmd, err := r.pool.Exec(ctx, query, discordID, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// conditional translates an empty conditional update into ErrNotFound or ErrStateConflict.
func (r *accountRepository) conditional(ctx context.Context, discordID string, account *domain.Account, err error) (*domain.Account, error) {
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE discord_id=$1)`, discordID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStateConflict
}

// enrollTx turns a player into a probationary trainee inside tx. The account row is
// locked first so two enrollments of the same account cannot both pass the player check.
func enrollTx(ctx context.Context, tx pgx.Tx, enrollment domain.Enrollment) (*domain.Account, error) {
	const enroll = `
        UPDATE accounts
        SET staff_status='staff_member', authority='staff_member', rank='trainee', strikes=0,
            notes='[]'::jsonb, team_id=$2, probation=TRUE, probation_end=$3, updated_at=NOW()
        WHERE discord_id=$1 AND staff_status='player'
        RETURNING ` + accountColumns

	var status domain.StaffStatus
	if err := tx.QueryRow(ctx, `SELECT staff_status FROM accounts WHERE discord_id=$1 FOR UPDATE`, enrollment.AccountID).Scan(&status); err != nil {
		return nil, err
	}
	if status != domain.StaffStatusPlayer {
		return nil, ErrAlreadyStaff
	}
	if err := moveOnRoster(ctx, tx, enrollment.AccountID, enrollment.TeamID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE teams SET head_admin_id=NULL, updated_at=NOW() WHERE head_admin_id=$1`, enrollment.AccountID); err != nil {
		return nil, err
	}
	return scanAccount(tx.QueryRow(ctx, enroll, enrollment.AccountID, enrollment.TeamID, enrollment.ProbationEnd))
}

// moveOnRoster pulls the account from every roster and, when teamID is set, pushes it onto
// that team's roster. It must run in the same transaction as the account's team_id write.
func moveOnRoster(ctx context.Context, tx pgx.Tx, discordID string, teamID *string) error {
	if _, err := tx.Exec(ctx,
		`UPDATE teams SET members=array_remove(members, $1), updated_at=NOW() WHERE $1 = ANY(members)`,
		discordID,
	); err != nil {
		return err
	}
	if teamID == nil {
		return nil
	}
	if !validID(*teamID) {
		return ErrTeamNotFound
	}
	cmd, err := tx.Exec(ctx,
		`UPDATE teams SET members=array_append(members, $1), updated_at=NOW() WHERE id=$2`,
		discordID, *teamID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.DiscordID,
		&account.Username,
		&account.Avatar,
		&account.Authority,
		&account.StaffStatus,
		&account.TeamID,
		&account.Rank,
		&account.Strikes,
		&account.Notes,
		&account.Probation,
		&account.ProbationEnd,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func scanAccounts(rows pgx.Rows) ([]domain.Account, error) {
	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}
