package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PostTypeGeneral       = "GENERAL"
	PostTypeProjectUpdate = "PROJECT_UPDATE"
	PostTypeSuccessStory  = "SUCCESS_STORY"
	PostTypeQuestion      = "QUESTION"
	PostTypeAnnouncement  = "ANNOUNCEMENT"
	PostTypeEvent         = "EVENT"
)

type CommunityPost struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	AuthorID   uuid.UUID
	AuthorName string
	Title      string
	Content    string
	PostType   string
	Tags       []string
}
