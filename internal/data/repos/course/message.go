package course

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursechat-backend/internal/domain"
	"github.com/yungbote/coursechat-backend/internal/platform/dbctx"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type MessageRepo interface {
	// Create appends a message to its course with a single INSERT.
	Create(dbc dbctx.Context, msg *types.Message) (*types.Message, error)
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Message, error)
	GetByID(dbc dbctx.Context, courseID, messageID uuid.UUID) (*types.Message, error)
	// LatestByContent returns the newest message in the course whose content equals
	// content and whose kind is one of kinds, or nil.
	LatestByContent(dbc dbctx.Context, courseID uuid.UUID, content string, kinds []types.MessageKind) (*types.Message, error)
	DeleteByID(dbc dbctx.Context, courseID, messageID uuid.UUID) (bool, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "MessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (r *messageRepo) Create(dbc dbctx.Context, msg *types.Message) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	results := []*types.Message{}
	if err := transaction.WithContext(dbc.Ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, courseID, messageID uuid.UUID) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var m types.Message
	err := transaction.WithContext(dbc.Ctx).
		Where("course_id = ? AND id = ?", courseID, messageID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) LatestByContent(dbc dbctx.Context, courseID uuid.UUID, content string, kinds []types.MessageKind) (*types.Message, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(kinds) == 0 {
		return nil, nil
	}
	var m types.Message
	err := transaction.WithContext(dbc.Ctx).
		Where("course_id = ? AND content = ? AND kind IN ?", courseID, content, kinds).
		Order("created_at DESC").
		Order("id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) DeleteByID(dbc dbctx.Context, courseID, messageID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("course_id = ? AND id = ?", courseID, messageID).
		Delete(&types.Message{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
