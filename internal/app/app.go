// Package app assembles the application layer on top of a storage backend.
// cmd/api, cmd/worker and the scenario tests share this wiring.
package app

import (
	"fmt"
	"time"

	"github.com/ivnmtz09/yonna-akademia/internal/application/command"
	"github.com/ivnmtz09/yonna-akademia/internal/application/eventhandler"
	"github.com/ivnmtz09/yonna-akademia/internal/application/query"
	"github.com/ivnmtz09/yonna-akademia/internal/application/service"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/course"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/level"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/progress"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/shared"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/user"
	"github.com/ivnmtz09/yonna-akademia/internal/domain/xp"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/messaging"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/memory"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/persistence/postgres"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

// Repositories is a storage backend.
type Repositories struct {
	Tx            shared.TxManager
	Users         user.Repository
	Ledger        xp.Repository
	Courses       course.Repository
	Quizzes       course.QuizRepository
	Attempts      course.AttemptRepository
	Enrollments   course.EnrollmentRepository
	Progress      progress.CourseProgressRepository
	Globals       progress.GlobalProgressRepository
	Statistics    progress.StatisticRepository
	Snapshots     progress.SnapshotRepository
	Notifications notification.Repository
}

// MemoryRepositories builds a backend over one in-memory store.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Tx:            memory.NewTxManager(store),
		Users:         memory.NewUserRepository(store),
		Ledger:        memory.NewXPRepository(store),
		Courses:       memory.NewCourseRepository(store),
		Quizzes:       memory.NewQuizRepository(store),
		Attempts:      memory.NewAttemptRepository(store),
		Enrollments:   memory.NewEnrollmentRepository(store),
		Progress:      memory.NewCourseProgressRepository(store),
		Globals:       memory.NewGlobalProgressRepository(store),
		Statistics:    memory.NewStatisticRepository(store),
		Snapshots:     memory.NewSnapshotRepository(store),
		Notifications: memory.NewNotificationRepository(store),
	}
}

// PostgresRepositories builds a backend over a pgx pool.
func PostgresRepositories(conn *postgres.Connection) Repositories {
	return Repositories{
		Tx:            postgres.NewTxManager(conn),
		Users:         postgres.NewUserRepository(conn),
		Ledger:        postgres.NewXPRepository(conn),
		Courses:       postgres.NewCourseRepository(conn),
		Quizzes:       postgres.NewQuizRepository(conn),
		Attempts:      postgres.NewAttemptRepository(conn),
		Enrollments:   postgres.NewEnrollmentRepository(conn),
		Progress:      postgres.NewCourseProgressRepository(conn),
		Globals:       postgres.NewGlobalProgressRepository(conn),
		Statistics:    postgres.NewStatisticRepository(conn),
		Snapshots:     postgres.NewSnapshotRepository(conn),
		Notifications: postgres.NewNotificationRepository(conn),
	}
}

// Cache is the optional overview cache.
type Cache interface {
	query.OverviewCache
	eventhandler.OverviewInvalidator
}

// Options tune the assembly. Zero values fall back to defaults.
type Options struct {
	LevelThresholds   []int
	RewardMilestones  []int
	StreakMilestones  []int
	CompletionBonusXP int
	Location          *time.Location
	PublishTimeout    time.Duration
	MaxCascadeDepth   int

	Publisher notification.Publisher // nil disables realtime delivery
	Cache     Cache                  // nil disables the overview cache
	Clock     timeutil.Clock
	Logger    *logger.Logger
}

// Commands groups the write side.
type Commands struct {
	SubmitQuizAttempt *command.SubmitQuizAttemptHandler
	EnrollInCourse    *command.EnrollInCourseHandler
	Content           *command.ContentHandler
	Users             *command.UserHandler
	Notifications     *command.NotificationHandler
}

// Queries groups the read side.
type Queries struct {
	Notifications  *query.NotificationsHandler
	StatsOverview  *query.StatsOverviewHandler
	CourseProgress *query.CourseProgressHandler
}

// App is the assembled application layer.
type App struct {
	Repos      Repositories
	Bus        *messaging.InMemoryEventBus
	Calculator *level.Calculator
	Ledger     *service.XPLedger
	Courses    *service.CourseProgressAggregator
	Globals    *service.GlobalProgressAggregator
	Stats      *service.StatisticsAggregator
	Dispatcher *service.NotificationDispatcher
	Commands   Commands
	Queries    Queries
}

// New wires services, handlers, commands and queries over repos.
func New(repos Repositories, opts Options) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	calc := level.Default()
	if len(opts.LevelThresholds) > 0 {
		c, err := level.NewCalculator(opts.LevelThresholds)
		if err != nil {
			return nil, fmt.Errorf("invalid level thresholds: %w", err)
		}
		calc = c
	}

	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = opts.Logger
	busCfg.Middlewares = []messaging.Middleware{
		messaging.RecoveryMiddleware(opts.Logger),
		messaging.LoggingMiddleware(opts.Logger),
	}
	if opts.MaxCascadeDepth > 0 {
		busCfg.MaxDepth = opts.MaxCascadeDepth
	}
	bus := messaging.NewInMemoryEventBus(busCfg)

	ledger := service.NewXPLedger(repos.Tx, repos.Users, repos.Ledger, calc, bus, opts.Clock, opts.Logger)
	courses := service.NewCourseProgressAggregator(service.CourseProgressDeps{
		Tx:          repos.Tx,
		Users:       repos.Users,
		Courses:     repos.Courses,
		Quizzes:     repos.Quizzes,
		Attempts:    repos.Attempts,
		Enrollments: repos.Enrollments,
		Progress:    repos.Progress,
		Events:      bus,
		Clock:       opts.Clock,
		Location:    opts.Location,
		Logger:      opts.Logger,
	})
	globals := service.NewGlobalProgressAggregator(repos.Tx, repos.Progress, repos.Globals, repos.Ledger, opts.Clock, opts.Logger)
	stats := service.NewStatisticsAggregator(service.StatisticsDeps{
		Tx:          repos.Tx,
		Users:       repos.Users,
		Attempts:    repos.Attempts,
		Enrollments: repos.Enrollments,
		Ledger:      repos.Ledger,
		Globals:     globals,
		Stats:       repos.Statistics,
		Snapshots:   repos.Snapshots,
		Clock:       opts.Clock,
		Location:    opts.Location,
		Logger:      opts.Logger,
	})
	dispatcher := service.NewNotificationDispatcher(repos.Notifications, repos.Users, opts.Publisher, opts.Clock, opts.Logger,
		service.DispatcherConfig{PublishTimeout: opts.PublishTimeout})

	deps := eventhandler.Dependencies{
		Users:       repos.Users,
		Enrollments: repos.Enrollments,
		Ledger:      ledger,
		Courses:     courses,
		Globals:     globals,
		Stats:       stats,
		Dispatcher:  dispatcher,
		Logger:      opts.Logger,
	}
	var overviewCache query.OverviewCache
	if opts.Cache != nil {
		deps.Cache = opts.Cache
		overviewCache = opts.Cache
	}
	if err := eventhandler.Register(bus, deps, eventhandler.Config{
		CompletionBonusXP: opts.CompletionBonusXP,
		RewardMilestones:  opts.RewardMilestones,
		StreakMilestones:  opts.StreakMilestones,
	}); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}

	return &App{
		Repos:      repos,
		Bus:        bus,
		Calculator: calc,
		Ledger:     ledger,
		Courses:    courses,
		Globals:    globals,
		Stats:      stats,
		Dispatcher: dispatcher,
		Commands: Commands{
			SubmitQuizAttempt: command.NewSubmitQuizAttemptHandler(repos.Tx, repos.Users, repos.Quizzes, repos.Courses,
				repos.Attempts, repos.Enrollments, repos.Progress, bus, opts.Clock, opts.Logger),
			EnrollInCourse: command.NewEnrollInCourseHandler(repos.Tx, repos.Users, repos.Courses, repos.Enrollments, bus, opts.Clock, opts.Logger),
			Content:        command.NewContentHandler(repos.Tx, repos.Users, repos.Courses, repos.Quizzes, bus, opts.Logger),
			Users:          command.NewUserHandler(repos.Tx, repos.Users, ledger, bus, opts.Logger),
			Notifications:  command.NewNotificationHandler(repos.Tx, dispatcher),
		},
		Queries: Queries{
			Notifications: query.NewNotificationsHandler(repos.Notifications),
			StatsOverview: query.NewStatsOverviewHandler(repos.Users, repos.Ledger, repos.Globals, repos.Statistics, calc,
				overviewCache, opts.Clock, opts.Logger),
			CourseProgress: query.NewCourseProgressHandler(repos.Progress),
		},
	}, nil
}

// Close releases the event bus.
func (a *App) Close() error {
	return a.Bus.Close()
}
