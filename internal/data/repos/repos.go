package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursechat-backend/internal/data/repos/course"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
)

type CourseRepo = course.CourseRepo
type MessageRepo = course.MessageRepo

type Set struct {
	Courses  CourseRepo
	Messages MessageRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Courses:  course.NewCourseRepo(db, log),
		Messages: course.NewMessageRepo(db, log),
	}
}
