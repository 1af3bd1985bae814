package domain

import "github.com/yungbote/coursechat-backend/internal/domain/course"

type Course = course.Course
type Message = course.Message
type MessageKind = course.MessageKind
type FileMeta = course.FileMeta

const (
	KindText  = course.KindText
	KindAudio = course.KindAudio
	KindImage = course.KindImage
	KindPDF   = course.KindPDF
	KindFile  = course.KindFile
)

// Models lists every persisted model for auto-migration.
func Models() []any {
	return []any{&course.Course{}, &course.Message{}}
}
