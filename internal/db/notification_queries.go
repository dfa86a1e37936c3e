package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"horse.fit/newslink/internal/globaltime"
)

var sharedNotificationConflict = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "workspace_id"},
		{Name: "entity_type"},
		{Name: "entity_id"},
	},
	TargetWhere: clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: "user_id IS NULL"},
	}},
	DoUpdates: clause.AssignmentColumns([]string{
		"title",
		"message",
		"entity_title",
		"metadata",
		"is_read",
		"updated_at",
	}),
}

// UpsertSharedNotification writes the shared notification for
// (workspace, entity type, entity) in a single statement. An existing row is
// updated in place and marked unread again.
func (p *Pool) UpsertSharedNotification(ctx context.Context, notification Notification) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	if strings.TrimSpace(notification.WorkspaceID) == "" {
		return fmt.Errorf("workspace id is required")
	}
	if strings.TrimSpace(notification.EntityID) == "" || strings.TrimSpace(notification.EntityType) == "" {
		return fmt.Errorf("entity type and id are required")
	}

	now := globaltime.UTC()
	notification.ID = 0
	notification.UserID = nil
	notification.IsRead = false
	notification.CreatedAt = now
	notification.UpdatedAt = now
	if notification.ActionType == "" {
		notification.ActionType = ActionTypeMatch
	}
	if len(notification.Metadata) == 0 {
		notification.Metadata = []byte(`{}`)
	}

	res := p.gdb.WithContext(ctx).
		Clauses(sharedNotificationConflict).
		Create(&notification)
	if res.Error != nil {
		return fmt.Errorf("upsert shared notification: %w", res.Error)
	}
	return nil
}

// ListNotifications returns a workspace's notifications, most recently updated first.
func (p *Pool) ListNotifications(ctx context.Context, workspaceID string, limit int) ([]Notification, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	items := make([]Notification, 0, limit)
	err := p.gdb.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("updated_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	return items, nil
}
