// Package memstore keeps every repository in process memory. It backs development runs
// without Postgres and the service tests. A single mutex serialises writes, so each
// conditional update and roster move is atomic in the same way the Postgres statements are.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

// Store holds all records.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	accounts  map[string]*domain.Account
	teams     map[string]*domain.Team
	appTypes  map[string]*domain.ApplicationType
	apps      map[string]*domain.Application
	reports   map[string]*domain.Report
	approvals map[string]*domain.ApprovalRequest
	seq       int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		accounts:  map[string]*domain.Account{},
		teams:     map[string]*domain.Team{},
		appTypes:  map[string]*domain.ApplicationType{},
		apps:      map[string]*domain.Application{},
		reports:   map[string]*domain.Report{},
		approvals: map[string]*domain.ApprovalRequest{},
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Accounts:         &accountRepo{s},
		Teams:            &teamRepo{s},
		ApplicationTypes: &appTypeRepo{s},
		Applications:     &applicationRepo{s},
		Reports:          &reportRepo{s},
		Approvals:        &approvalRepo{s},
		Stats:            &statsRepo{s},
	}
}

// stamp returns a strictly increasing timestamp so records created in the same
// instant still order deterministically.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	return strPtr(*v)
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	return timePtr(*v)
}

func cloneAccount(a *domain.Account) *domain.Account {
	out := *a
	out.TeamID = cloneString(a.TeamID)
	if a.Rank != nil {
		r := *a.Rank
		out.Rank = &r
	}
	out.Notes = append([]domain.Note{}, a.Notes...)
	out.ProbationEnd = cloneTime(a.ProbationEnd)
	return &out
}

func cloneTeam(t *domain.Team) *domain.Team {
	out := *t
	out.HeadAdminID = cloneString(t.HeadAdminID)
	out.Members = append([]string{}, t.Members...)
	return &out
}

func clonePunishment(p *domain.Punishment) *domain.Punishment {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func removeString(list []string, v string) []string {
	out := list[:0:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

func sortByTime[T any](items []T, at func(T) time.Time, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return at(items[i]).After(at(items[j]))
		}
		return at(items[i]).Before(at(items[j]))
	})
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
