package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursechat-backend/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Course {
	tb.Helper()
	c := &types.Course{ID: uuid.New(), Name: name}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, kind types.MessageKind, content string, at time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:        uuid.New(),
		CourseID:  courseID,
		Kind:      kind,
		Content:   content,
		CreatedAt: at,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}
