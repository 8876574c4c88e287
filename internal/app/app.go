package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fitsync/internal/config"
	"github.com/templui/fitsync/internal/db"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
	"github.com/templui/fitsync/internal/service"
	"github.com/templui/fitsync/internal/storage"
	"github.com/templui/fitsync/internal/syncer"
)

type App struct {
	Cfg                  *config.Config
	DB                   *sqlx.DB
	Records              repository.RecordRepository
	Changes              repository.ChangeRepository
	SyncStates           repository.SyncStateRepository
	Engine               *syncer.Engine
	SessionService       *service.SessionService
	WorkoutService       *service.WorkoutService
	CheckService         *service.CheckService
	WaterService         *service.WaterService
	MealService          *service.MealService
	NutritionGoalService *service.NutritionGoalService
	MeasurementService   *service.MeasurementService
	ExerciseService      *service.ExerciseService
	ViewService          *service.ViewService
	CalendarService      *service.CalendarService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize and migrate database
	database, err := db.Open(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Repositories
	recordRepository := repository.NewRecordRepository(database)
	changeRepository := repository.NewChangeRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	syncStateRepository := repository.NewSyncStateRepository(database)

	// Sync
	remote, err := newRemote(ctx, cfg, recordRepository)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize sync remote: %w", err)
	}
	engine := syncer.NewEngine(recordRepository, changeRepository, syncStateRepository, remote, syncer.Options{
		Interval:     cfg.SyncPushInterval,
		Threshold:    cfg.SyncPushThreshold,
		Retries:      cfg.SyncPushRetries,
		RetryDelay:   cfg.SyncRetryDelay,
		BatchSize:    cfg.SyncBatchSize,
		PollInterval: cfg.SyncPollInterval,
		Retention:    cfg.SyncRetention,
	})

	// Services. Every mutation refreshes the view and nudges the sync loop.
	broadcast := &service.Broadcast{}
	workoutService := service.NewWorkoutService(recordRepository, broadcast)
	checkService := service.NewCheckService(recordRepository, broadcast)
	waterService := service.NewWaterService(recordRepository, broadcast)
	mealService := service.NewMealService(recordRepository, broadcast)
	goalService := service.NewNutritionGoalService(recordRepository, service.NewWeightBasedGoals(recordRepository), broadcast)
	measurementService := service.NewMeasurementService(recordRepository, broadcast)
	exerciseService := service.NewExerciseService(recordRepository, broadcast)
	viewService := service.NewViewService(
		workoutService,
		checkService,
		waterService,
		mealService,
		goalService,
		measurementService,
		exerciseService,
	)
	calendarService := service.NewCalendarService(checkService, waterService, mealService, goalService)
	sessionService := service.NewSessionService(tokenRepository, engine, viewService, cfg.JWTSecret, cfg.Location())

	broadcast.Add(viewService, service.NotifierFunc(func(_ context.Context, s *model.Session) {
		engine.Kick(s)
	}))

	return &App{
		Cfg:                  cfg,
		DB:                   database,
		Records:              recordRepository,
		Changes:              changeRepository,
		SyncStates:           syncStateRepository,
		Engine:               engine,
		SessionService:       sessionService,
		WorkoutService:       workoutService,
		CheckService:         checkService,
		WaterService:         waterService,
		MealService:          mealService,
		NutritionGoalService: goalService,
		MeasurementService:   measurementService,
		ExerciseService:      exerciseService,
		ViewService:          viewService,
		CalendarService:      calendarService,
	}, nil
}

func newRemote(ctx context.Context, cfg *config.Config, records repository.RecordRepository) (syncer.Remote, error) {
	switch cfg.SyncRemote {
	case config.RemoteHTTP:
		if cfg.SyncURL == "" {
			return nil, fmt.Errorf("SYNC_URL is required for the http remote")
		}
		return syncer.NewHTTPRemote(cfg.SyncURL, cfg.SyncTimeout), nil
	case config.RemoteS3:
		objectStorage, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return syncer.NewObjectRemote(objectStorage, "sync"), nil
	case config.RemoteNone:
		return syncer.NewLoopbackRemote(records), nil
	}
	return nil, fmt.Errorf("unknown SYNC_REMOTE %q", cfg.SyncRemote)
}

// Session returns the signed-in session, or service.ErrUnauthenticated.
func (a *App) Session(ctx context.Context) (*model.Session, error) {
	return a.SessionService.Restore(ctx)
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
