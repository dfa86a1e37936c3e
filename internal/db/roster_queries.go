package db

import (
	"context"
	"fmt"
)

// Roster is every matchable entity across all workspaces.
type Roster struct {
	Contacts  []Contact
	Companies []Company
	Projects  []Project
}

// Size returns the number of entities in the roster.
func (r Roster) Size() int {
	return len(r.Contacts) + len(r.Companies) + len(r.Projects)
}

// LoadRoster reads contacts, companies and projects from Postgres.
func (p *Pool) LoadRoster(ctx context.Context) (Roster, error) {
	if p == nil || p.gdb == nil {
		return Roster{}, fmt.Errorf("database pool is not initialized")
	}

	var roster Roster
	tx := p.gdb.WithContext(ctx)
	if err := tx.Order("workspace_id, id").Find(&roster.Contacts).Error; err != nil {
		return Roster{}, fmt.Errorf("load contacts: %w", err)
	}
	if err := tx.Order("workspace_id, id").Find(&roster.Companies).Error; err != nil {
		return Roster{}, fmt.Errorf("load companies: %w", err)
	}
	if err := tx.Order("workspace_id, id").Find(&roster.Projects).Error; err != nil {
		return Roster{}, fmt.Errorf("load projects: %w", err)
	}
	return roster, nil
}
