package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-service/internal/api/dto"
	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/service"
)

// actor returns the authenticated account, or 401.
func actor(c *fiber.Ctx) (*domain.Account, error) {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return nil, err
	}
	return principal.Account, nil
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// parsePage converts page/page_size into limit and offset.
func parsePage(c *fiber.Ctx) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)
	if pageSize > 200 {
		pageSize = 200
	}
	return pageSize, (page - 1) * pageSize
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if val := c.Query(key); val != "" {
		return &val
	}
	return nil
}

func accountResponse(a *domain.Account) dto.AccountResponse {
	notes := a.Notes
	if notes == nil {
		notes = []domain.Note{}
	}
	return dto.AccountResponse{
		DiscordID:    a.DiscordID,
		Username:     a.Username,
		Avatar:       a.Avatar,
		Authority:    a.Authority,
		StaffStatus:  a.StaffStatus,
		TeamID:       a.TeamID,
		Rank:         a.Rank,
		Strikes:      a.Strikes,
		Notes:        notes,
		Probation:    a.Probation,
		ProbationEnd: a.ProbationEnd,
		CreatedAt:    a.CreatedAt,
	}
}

func accountResponses(accounts []domain.Account) []dto.AccountResponse {
	items := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, accountResponse(&accounts[i]))
	}
	return items
}

func publicStaffResponse(a *domain.Account) dto.PublicStaffResponse {
	return dto.PublicStaffResponse{
		DiscordID: a.DiscordID,
		Username:  a.Username,
		Avatar:    a.Avatar,
		Rank:      a.Rank,
		Probation: a.Probation,
	}
}

func teamResponse(team *domain.Team) dto.TeamResponse {
	members := team.Members
	if members == nil {
		members = []string{}
	}
	return dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		HeadAdminID: team.HeadAdminID,
		Members:     members,
		CreatedAt:   team.CreatedAt,
	}
}

func rosterResponse(entries []service.RosterEntry) []dto.RosterEntryResponse {
	items := make([]dto.RosterEntryResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.RosterEntryResponse{
			TeamID:   entry.Team.ID,
			TeamName: entry.Team.Name,
			Members:  make([]dto.PublicStaffResponse, 0, len(entry.Members)),
		}
		if entry.HeadAdmin != nil {
			head := publicStaffResponse(entry.HeadAdmin)
			item.HeadAdmin = &head
		}
		for i := range entry.Members {
			item.Members = append(item.Members, publicStaffResponse(&entry.Members[i]))
		}
		items = append(items, item)
	}
	return items
}
