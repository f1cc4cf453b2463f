package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type ByStatusNotIn struct {
	Statuses []string
}

func (s ByStatusNotIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status NOT IN ?", s.Statuses)
}

type ByRunID struct {
	RunID uuid.UUID
}

func (s ByRunID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("run_id = ?", s.RunID)
}

type ByClientKey struct {
	ClientKey string
}

func (s ByClientKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("client_key = ?", s.ClientKey)
}

// CreatedSince keeps rows created at or after Since.
type CreatedSince struct {
	Since time.Time
}

func (s CreatedSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.Since)
}
