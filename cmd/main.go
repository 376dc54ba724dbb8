package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"library/internal/auth"
	"library/internal/config"
	"library/internal/handlers"
	"library/internal/middleware"
	"library/internal/models"
	"library/internal/repositories"
	"library/internal/search"
	"library/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	authorRepo := repositories.NewAuthorRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	libraryRepo := repositories.NewLibraryRepository(db)
	librarianRepo := repositories.NewLibrarianRepository(db)
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	permRepo := repositories.NewPermissionRepository(db)

	if err := permRepo.Seed(nil, models.DefaultPermissions()); err != nil {
		log.Fatalf("failed to seed permissions: %v", err)
	}

	var bookIndex search.BookIndex
	if cfg.MeiliSearchHost != "" {
		client := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		bookIndex = search.NewMeiliBookIndex(client)
		log.Printf("[INFO] main: book search index enabled at %s", cfg.MeiliSearchHost)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		log.Printf("[INFO] main: token revocation enabled via redis")
	}

	catalogSvc := services.NewCatalogService(db, authorRepo, bookRepo, libraryRepo, librarianRepo, userRepo, bookIndex)
	accountSvc := services.NewAccountService(db, userRepo, profileRepo, permRepo)

	if cfg.AppEnv == "development" {
		if err := seedAdminUser(accountSvc, userRepo); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	denylist := auth.NewDenylist(redisClient)
	authMW := middleware.NewAuthMiddleware(accountSvc, tokens, denylist)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	catalogHandler := handlers.NewCatalogHandler(catalogSvc)
	accountHandler := handlers.NewAccountHandler(accountSvc, catalogSvc, tokens, denylist)
	handlers.RegisterRoutes(router, catalogHandler, accountHandler, authMW)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Author{},
		&models.Book{},
		&models.Library{},
		&models.Librarian{},
		&models.Permission{},
		&models.User{},
		&models.UserProfile{},
	)
}

// seedAdminUser creates a development admin holding every capability, so a
// fresh database is usable immediately.
func seedAdminUser(accounts services.AccountService, users repositories.UserRepository) error {
	const adminUsername = "admin"

	if _, err := users.GetByUsername(nil, adminUsername); err == nil {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := "admin12345"
	user, err := accounts.Register(adminUsername, password)
	if err != nil {
		return err
	}
	if _, err := accounts.AssignRole(user.ID, models.RoleAdmin); err != nil {
		return err
	}
	if _, err := accounts.GrantPermissions(user.ID, []string{
		models.PermAddBook,
		models.PermChangeBook,
		models.PermDeleteBook,
	}); err != nil {
		return err
	}

	log.Println("Seeded development admin user")
	log.Printf("   Username: %s", adminUsername)
	log.Printf("   Password: %s", password)
	return nil
}
