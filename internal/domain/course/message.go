package course

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_message_course_created,priority:1" json:"course_id"`

	Kind          MessageKind    `gorm:"column:kind;not null;index" json:"type"`
	Content       string         `gorm:"column:content;not null" json:"content"`
	Transcription string         `gorm:"column:transcription" json:"transcription,omitempty"`
	Meta          datatypes.JSON `gorm:"column:meta" json:"meta,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_message_course_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Message) TableName() string { return "message" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// FileMeta describes the upload behind a blob-bearing message.
type FileMeta struct {
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
}

func (m *Message) SetFileMeta(fm FileMeta) {
	raw, err := json.Marshal(fm)
	if err != nil {
		return
	}
	m.Meta = datatypes.JSON(raw)
}

func (m *Message) FileMeta() (FileMeta, bool) {
	var fm FileMeta
	if len(m.Meta) == 0 {
		return fm, false
	}
	if err := json.Unmarshal(m.Meta, &fm); err != nil {
		return fm, false
	}
	return fm, true
}
