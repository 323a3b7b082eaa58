package models

import (
	"strings"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Title renders the role as used in display names.
func (r UserRole) Title() string {
	lower := strings.ToLower(string(r))
	if lower == "" {
		return ""
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// DirectoryEntry is the user directory view of a student or teacher.
type DirectoryEntry struct {
	UserID    string   `db:"user_id" json:"user_id"`
	Role      UserRole `db:"role" json:"role"`
	FirstName string   `db:"first_name" json:"first_name"`
	LastName  string   `db:"last_name" json:"last_name"`
}

// DisplayName renders "<Role> <First> <Last>", skipping empty parts.
func (e DirectoryEntry) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Role.Title(), e.FirstName, e.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
