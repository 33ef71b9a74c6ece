package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every write that affects progress, XP or
// notifications is expressed as one of these.
const (
	// Learning events
	EventQuizAttemptRecorded EventType = "quiz.attempt_recorded"
	EventEnrollmentCreated   EventType = "course.enrollment_created"
	EventCourseCreated       EventType = "course.created"
	EventQuizCreated         EventType = "quiz.created"

	// Progress events
	EventXPGranted       EventType = "progress.xp_granted"
	EventLevelChanged    EventType = "progress.level_changed"
	EventCourseCompleted EventType = "progress.course_completed"
	EventStreakExtended  EventType = "progress.streak_extended"

	// User events
	EventModeratorAppointed EventType = "user.moderator_appointed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for logging.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Learning Events
// ═══════════════════════════════════════════════════════════════════════════

// QuizAttemptRecordedEvent is emitted after a quiz attempt row is written.
type QuizAttemptRecordedEvent struct {
	BaseEvent
	AttemptID string  `json:"attempt_id"`
	UserID    string  `json:"user_id"`
	QuizID    string  `json:"quiz_id"`
	QuizTitle string  `json:"quiz_title"`
	CourseID  string  `json:"course_id"`
	Score     float64 `json:"score"`
	Passed    bool    `json:"passed"`
	XPAwarded int     `json:"xp_awarded"`
}

// Payload returns the event data.
func (e QuizAttemptRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"attempt_id": e.AttemptID,
		"user_id":    e.UserID,
		"quiz_id":    e.QuizID,
		"course_id":  e.CourseID,
		"score":      e.Score,
		"passed":     e.Passed,
		"xp_awarded": e.XPAwarded,
	}
}

// NewQuizAttemptRecordedEvent creates a new QuizAttemptRecordedEvent.
func NewQuizAttemptRecordedEvent(attemptID, userID, quizID, quizTitle, courseID string, score float64, passed bool, xpAwarded int) QuizAttemptRecordedEvent {
	return QuizAttemptRecordedEvent{
		BaseEvent: NewBaseEvent(EventQuizAttemptRecorded, userID),
		AttemptID: attemptID,
		UserID:    userID,
		QuizID:    quizID,
		QuizTitle: quizTitle,
		CourseID:  courseID,
		Score:     score,
		Passed:    passed,
		XPAwarded: xpAwarded,
	}
}

// EnrollmentCreatedEvent is emitted when a user enrolls in a course.
type EnrollmentCreatedEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id"`
	CourseTitle  string `json:"course_title"`
}

// Payload returns the event data.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"user_id":       e.UserID,
		"course_id":     e.CourseID,
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(enrollmentID, userID, courseID, courseTitle string) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentCreated, userID),
		EnrollmentID: enrollmentID,
		UserID:       userID,
		CourseID:     courseID,
		CourseTitle:  courseTitle,
	}
}

// CourseCreatedEvent is emitted when a course is published.
type CourseCreatedEvent struct {
	BaseEvent
	CourseID      string `json:"course_id"`
	Title         string `json:"title"`
	LevelRequired int    `json:"level_required"`
	Active        bool   `json:"active"`
	CreatedBy     string `json:"created_by"`
}

// Payload returns the event data.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":      e.CourseID,
		"level_required": e.LevelRequired,
		"active":         e.Active,
		"created_by":     e.CreatedBy,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, title string, levelRequired int, active bool, createdBy string) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent:     NewBaseEvent(EventCourseCreated, courseID),
		CourseID:      courseID,
		Title:         title,
		LevelRequired: levelRequired,
		Active:        active,
		CreatedBy:     createdBy,
	}
}

// QuizCreatedEvent is emitted when a quiz is added to a course.
type QuizCreatedEvent struct {
	BaseEvent
	QuizID      string `json:"quiz_id"`
	Title       string `json:"title"`
	CourseID    string `json:"course_id"`
	CourseTitle string `json:"course_title"`
	Active      bool   `json:"active"`
}

// Payload returns the event data.
func (e QuizCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"quiz_id":   e.QuizID,
		"course_id": e.CourseID,
		"active":    e.Active,
	}
}

// NewQuizCreatedEvent creates a new QuizCreatedEvent.
func NewQuizCreatedEvent(quizID, title, courseID, courseTitle string, active bool) QuizCreatedEvent {
	return QuizCreatedEvent{
		BaseEvent:   NewBaseEvent(EventQuizCreated, quizID),
		QuizID:      quizID,
		Title:       title,
		CourseID:    courseID,
		CourseTitle: courseTitle,
		Active:      active,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGrantedEvent is emitted after a ledger entry is committed to the user's total.
type XPGrantedEvent struct {
	BaseEvent
	EntryID  string `json:"entry_id"`
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	OldTotal int    `json:"old_total"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"`
}

// Payload returns the event data.
func (e XPGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entry_id":  e.EntryID,
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"old_total": e.OldTotal,
		"new_total": e.NewTotal,
		"source":    e.Source,
	}
}

// NewXPGrantedEvent creates a new XPGrantedEvent.
func NewXPGrantedEvent(entryID, userID string, amount, oldTotal, newTotal int, source string) XPGrantedEvent {
	return XPGrantedEvent{
		BaseEvent: NewBaseEvent(EventXPGranted, userID),
		EntryID:   entryID,
		UserID:    userID,
		Amount:    amount,
		OldTotal:  oldTotal,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelChangedEvent carries the level captured before and after an XP mutation.
type LevelChangedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload returns the event data.
func (e LevelChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// IsLevelUp reports whether the level increased.
func (e LevelChangedEvent) IsLevelUp() bool {
	return e.NewLevel > e.OldLevel
}

// NewLevelChangedEvent creates a new LevelChangedEvent.
func NewLevelChangedEvent(userID string, oldLevel, newLevel, totalXP int) LevelChangedEvent {
	return LevelChangedEvent{
		BaseEvent: NewBaseEvent(EventLevelChanged, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// CourseCompletedEvent is emitted exactly once per (user, course) when
// course progress flips to completed.
type CourseCompletedEvent struct {
	BaseEvent
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title"`
	CompletedAt time.Time `json:"completed_at"`
}

// Payload returns the event data.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"course_id":    e.CourseID,
		"completed_at": e.CompletedAt,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(userID, userEmail, courseID, courseTitle string, completedAt time.Time) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:   NewBaseEvent(EventCourseCompleted, userID),
		UserID:      userID,
		UserEmail:   userEmail,
		CourseID:    courseID,
		CourseTitle: courseTitle,
		CompletedAt: completedAt,
	}
}

// StreakExtendedEvent is emitted when a course streak grows by one day.
type StreakExtendedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	CourseID   string `json:"course_id"`
	StreakDays int    `json:"streak_days"`
}

// Payload returns the event data.
func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"course_id":   e.CourseID,
		"streak_days": e.StreakDays,
	}
}

// NewStreakExtendedEvent creates a new StreakExtendedEvent.
func NewStreakExtendedEvent(userID, courseID string, days int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent:  NewBaseEvent(EventStreakExtended, userID),
		UserID:     userID,
		CourseID:   courseID,
		StreakDays: days,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// ModeratorAppointedEvent is emitted when a moderator account is created or a
// user is promoted to moderator.
type ModeratorAppointedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Payload returns the event data.
func (e ModeratorAppointedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"email":   e.Email,
	}
}

// NewModeratorAppointedEvent creates a new ModeratorAppointedEvent.
func NewModeratorAppointedEvent(userID, email, displayName string) ModeratorAppointedEvent {
	return ModeratorAppointedEvent{
		BaseEvent:   NewBaseEvent(EventModeratorAppointed, userID),
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler handles an event. A non-nil error aborts the publishing cascade.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish delivers the event to every subscriber in subscription order
	// and returns once they have all run.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
