package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivnmtz09/yonna-akademia/internal/application/command"
	"github.com/ivnmtz09/yonna-akademia/internal/application/query"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(c *gin.Context) {
	handlers.Respond(c, http.StatusOK, gin.H{
		"name":    "Yonna Akademia progress API",
		"version": "v1",
		"endpoints": gin.H{
			"health":        "/health",
			"attempts":      "/api/v1/quizzes/{id}/attempts",
			"notifications": "/api/v1/notifications",
			"overview":      "/api/v1/stats/overview",
			"websocket":     "/api/v1/ws",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Healthy {
		handlers.Respond(c, http.StatusServiceUnavailable, status)
		return
	}
	handlers.Respond(c, http.StatusOK, status)
}

func (s *Server) handleReady(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Ready {
		handlers.Respond(c, http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": status.Message})
		return
	}
	handlers.Respond(c, http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleLive(c *gin.Context) {
	handlers.Respond(c, http.StatusOK, gin.H{"status": "alive"})
}

// handleMetrics reports event bus counters as JSON.
func (s *Server) handleMetrics(c *gin.Context) {
	body := gin.H{"uptime_seconds": s.Uptime().Seconds()}
	if m := s.deps.App.Bus.Metrics(); m != nil {
		snap := m.Snapshot()
		body["events_published"] = snap.TotalPublished
		body["handler_executions"] = snap.TotalHandlerExecs
		body["handler_failures"] = snap.HandlerFailures
		body["handler_success_rate"] = snap.HandlerSuccessRate
		body["handler_avg_ms"] = snap.AverageHandlerDuration.Milliseconds()
	}
	handlers.Respond(c, http.StatusOK, body)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// handleRegisterUser mirrors an identity from the identity provider.
func (s *Server) handleRegisterUser(c *gin.Context) {
	var req registerUserRequest
	if !bind(c, &req) {
		return
	}
	u, err := s.deps.App.Commands.Users.Register(c.Request.Context(), command.RegisterUserCommand{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusCreated, u)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleChangeRole(c *gin.Context) {
	var req changeRoleRequest
	if !bind(c, &req) {
		return
	}
	u, err := s.deps.App.Commands.Users.ChangeRole(c.Request.Context(), command.ChangeRoleCommand{
		ActorID: handlers.UserIDFrom(c),
		UserID:  c.Param("id"),
		Role:    req.Role,
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, u)
}

type grantXPRequest struct {
	Amount int    `json:"amount"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type grantXPResponse struct {
	Entry    *xp.Entry `json:"entry"`
	OldTotal int       `json:"old_total"`
	NewTotal int       `json:"new_total"`
	OldLevel int       `json:"old_level"`
	NewLevel int       `json:"new_level"`
}

func (s *Server) handleGrantXP(c *gin.Context) {
	var req grantXPRequest
	if !bind(c, &req) {
		return
	}
	if req.Source == "" {
		req.Source = string(xp.SourceSystemBonus)
	}
	res, err := s.deps.App.Commands.Users.GrantXP(c.Request.Context(), command.GrantXPCommand{
		ActorID: handlers.UserIDFrom(c),
		UserID:  c.Param("id"),
		Amount:  req.Amount,
		Source:  req.Source,
		Reason:  req.Reason,
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, grantXPResponse{
		Entry:    res.Entry,
		OldTotal: res.OldTotal,
		NewTotal: res.NewTotal,
		OldLevel: res.Level.Old,
		NewLevel: res.Level.New,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createCourseRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	LevelRequired int    `json:"level_required"`
	Active        *bool  `json:"is_active"`
}

func (s *Server) handleCreateCourse(c *gin.Context) {
	var req createCourseRequest
	if !bind(c, &req) {
		return
	}
	if req.LevelRequired == 0 {
		req.LevelRequired = 1
	}
	created, err := s.deps.App.Commands.Content.CreateCourse(c.Request.Context(), command.CreateCourseCommand{
		ActorID:       handlers.UserIDFrom(c),
		Title:         req.Title,
		Description:   req.Description,
		LevelRequired: req.LevelRequired,
		Active:        boolOr(req.Active, true),
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusCreated, created)
}

type createQuizRequest struct {
	Title        string  `json:"title"`
	PassingScore float64 `json:"passing_score"`
	XPReward     int     `json:"xp_reward"`
	MaxAttempts  int     `json:"max_attempts"`
	Active       *bool   `json:"is_active"`
}

func (s *Server) handleCreateQuiz(c *gin.Context) {
	var req createQuizRequest
	if !bind(c, &req) {
		return
	}
	quiz, err := s.deps.App.Commands.Content.CreateQuiz(c.Request.Context(), command.CreateQuizCommand{
		ActorID:      handlers.UserIDFrom(c),
		CourseID:     c.Param("id"),
		Title:        req.Title,
		PassingScore: req.PassingScore,
		XPReward:     req.XPReward,
		MaxAttempts:  req.MaxAttempts,
		Active:       boolOr(req.Active, true),
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusCreated, quiz)
}

func (s *Server) handleEnroll(c *gin.Context) {
	enrollment, err := s.deps.App.Commands.EnrollInCourse.Handle(c.Request.Context(), command.EnrollInCourseCommand{
		UserID:   handlers.UserIDFrom(c),
		CourseID: c.Param("id"),
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusCreated, enrollment)
}

func (s *Server) handleGetCourseProgress(c *gin.Context) {
	row, err := s.deps.App.Queries.CourseProgress.Get(c.Request.Context(), handlers.UserIDFrom(c), c.Param("id"))
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, row)
}

func (s *Server) handleListCourseProgress(c *gin.Context) {
	rows, err := s.deps.App.Queries.CourseProgress.ListByUser(c.Request.Context(), handlers.UserIDFrom(c))
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	if rows == nil {
		rows = []*progress.CourseProgress{}
	}
	handlers.Respond(c, http.StatusOK, rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ ATTEMPT HANDLER
// ══════════════════════════════════════════════════════════════════════════════

type submitAttemptRequest struct {
	Score *float64 `json:"score"`
}

type submitAttemptResponse struct {
	Attempt  *course.Attempt          `json:"attempt"`
	Progress *progress.CourseProgress `json:"progress"`
	XP       int                      `json:"xp"`
	Level    int                      `json:"level"`
}

// handleSubmitAttempt runs the whole cascade before responding.
func (s *Server) handleSubmitAttempt(c *gin.Context) {
	var req submitAttemptRequest
	if !bind(c, &req) {
		return
	}
	if req.Score == nil {
		handlers.Fail(c, http.StatusBadRequest, "validation_error", "score is required")
		return
	}
	res, err := s.deps.App.Commands.SubmitQuizAttempt.Handle(c.Request.Context(), command.SubmitQuizAttemptCommand{
		UserID: handlers.UserIDFrom(c),
		QuizID: c.Param("id"),
		Score:  *req.Score,
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusCreated, submitAttemptResponse{
		Attempt:  res.Attempt,
		Progress: res.Progress,
		XP:       res.XP,
		Level:    res.Level,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListNotifications(c *gin.Context) {
	page, err := s.deps.App.Queries.Notifications.List(c.Request.Context(), query.ListNotificationsQuery{
		UserID:     handlers.UserIDFrom(c),
		UnreadOnly: queryBool(c, "unread_only"),
		Limit:      queryInt(c, "limit", 0),
		Offset:     queryInt(c, "offset", 0),
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, page)
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	n, err := s.deps.App.Queries.Notifications.UnreadCount(c.Request.Context(), handlers.UserIDFrom(c))
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, gin.H{"count": n})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	changed, err := s.deps.App.Commands.Notifications.MarkRead(c.Request.Context(), command.MarkNotificationReadCommand{
		UserID:         handlers.UserIDFrom(c),
		NotificationID: c.Param("id"),
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, gin.H{"notification_id": c.Param("id"), "changed": changed})
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	n, err := s.deps.App.Commands.Notifications.MarkAllRead(c.Request.Context(), command.MarkAllNotificationsReadCommand{
		UserID: handlers.UserIDFrom(c),
	})
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, gin.H{"marked": n})
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS + REALTIME
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleStatsOverview(c *gin.Context) {
	dto, err := s.deps.App.Queries.StatsOverview.Handle(c.Request.Context(), handlers.UserIDFrom(c))
	if err != nil {
		handlers.FailWith(c, err)
		return
	}
	handlers.Respond(c, http.StatusOK, dto)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	s.deps.WS.Serve(c.Writer, c.Request, handlers.UserIDFrom(c))
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// bind decodes the JSON body and aborts with 400 on malformed input.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		handlers.FailWith(c, shared.WrapError("http", "Bind", shared.ErrValidation, "malformed request body", err))
		return false
	}
	return true
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
