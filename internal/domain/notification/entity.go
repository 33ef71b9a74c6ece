// Package notification contains the notification model: persisted inbox rows,
// the unread -> read state machine, the realtime message contract and the
// milestone rules that decide when progress deserves a notification.
package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE
// ══════════════════════════════════════════════════════════════════════════════

// Type defines what a notification is about.
type Type string

const (
	TypeNewCourse       Type = "new_course"
	TypeNewQuiz         Type = "new_quiz"
	TypeProgressUpdate  Type = "progress_update"
	TypeLevelUp         Type = "level_up"
	TypeCourseCompleted Type = "course_completed"
	TypeNewModerator    Type = "new_moderator"
	TypeSystemError     Type = "system_error"
	TypeStudyStreak     Type = "study_streak"
	TypeRewardUnlocked  Type = "reward_unlocked"
	TypeSystem          Type = "system"
)

// IsValid checks the type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeNewCourse, TypeNewQuiz, TypeProgressUpdate, TypeLevelUp, TypeCourseCompleted,
		TypeNewModerator, TypeSystemError, TypeStudyStreak, TypeRewardUnlocked, TypeSystem:
		return true
	default:
		return false
	}
}

// Emoji returns the icon prefixed to titles of this type.
func (t Type) Emoji() string {
	switch t {
	case TypeNewCourse:
		return "🎓"
	case TypeNewQuiz:
		return "📝"
	case TypeProgressUpdate:
		return "📈"
	case TypeLevelUp:
		return "🎉"
	case TypeCourseCompleted:
		return "✅"
	case TypeNewModerator:
		return "👤"
	case TypeSystemError:
		return "❌"
	case TypeStudyStreak:
		return "🔥"
	case TypeRewardUnlocked:
		return "🏆"
	default:
		return "📬"
	}
}

func (t Type) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// RELATED REFERENCES
// ══════════════════════════════════════════════════════════════════════════════

// Related holds optional references to the entities a notification is about.
// Empty strings mean no reference.
type Related struct {
	CourseID string
	QuizID   string
	UserID   string
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

const (
	maxTitleLength   = 255
	maxMessageLength = 2000
)

// Notification is a persisted inbox row. Only the read state ever changes.
type Notification struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Type            Type       `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	IsRead          bool       `json:"is_read"`
	CreatedAt       time.Time  `json:"created_at"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	RelatedCourseID *string    `json:"related_course_id"`
	RelatedQuizID   *string    `json:"related_quiz_id"`
	RelatedUserID   *string    `json:"related_user_id"`
}

// Draft is the recipient-independent part of a notification.
type Draft struct {
	Type    Type
	Title   string
	Message string
	Related Related
}

// Validate checks the draft can be persisted.
func (d Draft) Validate() error {
	if !d.Type.IsValid() {
		return shared.WrapError("notification", "Validate", shared.ErrInvalidInput, "unknown type "+string(d.Type), shared.ErrInvalidNotification)
	}
	if strings.TrimSpace(d.Title) == "" {
		return shared.WrapError("notification", "Validate", shared.ErrValidation, "title is required", shared.ErrInvalidNotification)
	}
	return nil
}

// For materializes the draft for one recipient.
func (d Draft) For(userID string, at time.Time) *Notification {
	return &Notification{
		ID:              uuid.NewString(),
		UserID:          userID,
		Type:            d.Type,
		Title:           truncate(strings.TrimSpace(d.Title), maxTitleLength),
		Message:         truncate(d.Message, maxMessageLength),
		CreatedAt:       at.UTC(),
		RelatedCourseID: ref(d.Related.CourseID),
		RelatedQuizID:   ref(d.Related.QuizID),
		RelatedUserID:   ref(d.Related.UserID),
	}
}

// New validates the draft and builds a notification for userID.
func New(userID string, d Draft, at time.Time) (*Notification, error) {
	if userID == "" {
		return nil, shared.NewDomainError("notification", "Create", shared.ErrInvalidID, "recipient is required")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d.For(userID, at), nil
}

// MarkRead moves unread -> read. It reports false when already read.
func (n *Notification) MarkRead(at time.Time) bool {
	if n.IsRead {
		return false
	}
	t := at.UTC()
	n.IsRead = true
	n.ReadAt = &t
	return true
}

// MarkUnread always fails: read is terminal.
func (n *Notification) MarkUnread() error {
	return shared.ErrNotificationReadOnly
}

// BelongsTo reports ownership.
func (n *Notification) BelongsTo(userID string) bool {
	return n.UserID == userID
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Truncate is exported for callers composing messages with hard limits,
// such as system error traces.
func Truncate(s string, n int) string {
	return truncate(s, n)
}
