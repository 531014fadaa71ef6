package app

import (
	"fmt"

	"github.com/feldrin/quill/internal/config"
	"github.com/feldrin/quill/internal/db"
	"github.com/feldrin/quill/internal/repository"
	"github.com/feldrin/quill/internal/service"
	"github.com/feldrin/quill/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Storage        storage.Storage
	AuthService    *service.AuthService
	UserService    *service.UserService
	AccountService *service.AccountService
	PictureService *service.PictureService
	PostService    *service.PostService
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	postRepository := repository.NewPostRepository(database)

	// Storage
	var fileStorage storage.Storage
	switch cfg.StorageDriver {
	case "s3":
		fileStorage, err = storage.NewS3Storage(cfg)
	default:
		fileStorage, err = storage.NewLocalStorage(cfg.UploadPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Services
	pictureService := service.NewPictureService(fileStorage, cfg.AvatarMaxDimension)
	err = pictureService.EnsureDefaultAvatar()
	if err != nil {
		return nil, fmt.Errorf("failed to seed default avatar: %v", err)
	}
	authService := service.NewAuthService(
		userRepository,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.SessionExpiry,
		cfg.SessionRememberExpiry,
	)
	userService := service.NewUserService(userRepository, pictureService)
	accountService := service.NewAccountService(userRepository, authService, pictureService)
	postService := service.NewPostService(postRepository, userRepository, cfg.PostsPerPage)

	return &App{
		Cfg:            cfg,
		DB:             database,
		Storage:        fileStorage,
		AuthService:    authService,
		UserService:    userService,
		AccountService: accountService,
		PictureService: pictureService,
		PostService:    postService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
