package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/barter-api/internal/config"
	"github.com/rajivgeraev/barter-api/internal/db"
	"github.com/rajivgeraev/barter-api/internal/middleware"
	"github.com/rajivgeraev/barter-api/internal/resolver"
	"github.com/rajivgeraev/barter-api/internal/services/messaging"
	"github.com/rajivgeraev/barter-api/internal/services/trade"
	"github.com/rajivgeraev/barter-api/internal/store"
	"github.com/rajivgeraev/barter-api/internal/utils"
	"github.com/rajivgeraev/barter-api/internal/ws"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()

	// Инициализируем пул соединений с базой данных
	pool, err := db.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer pool.Close()

	// Хранилища
	conversationStore := store.NewConversationStore(pool)
	messageStore := store.NewMessageStore(pool)
	metadataStore := store.NewMetadataStore(pool)
	userStore := store.NewUserStore(pool)
	itemStore := store.NewItemStore(pool)
	tradeStore := store.NewTradeStore(pool)

	// Резолвер диалогов и менеджер realtime-уведомлений
	conversationResolver := resolver.New(conversationStore, cfg.ChatFallbackEnabled)
	wsManager := ws.NewManager()
	defer wsManager.Shutdown()

	// Сервисы
	messagingService := messaging.NewService(
		conversationResolver, conversationStore, messageStore, metadataStore, userStore, wsManager)
	tradeService := trade.NewService(
		tradeStore, itemStore, userStore, wsManager, cfg.ChatFallbackEnabled)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Barter API",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Настраиваем middleware для аутентификации
	jwtService := utils.NewJWTService(cfg.JWTSecret)
	authMiddleware := middleware.AuthMiddleware(jwtService)

	// Регистрируем маршруты
	messaging.NewHandler(messagingService).SetupRoutes(app, authMiddleware)
	trade.NewHandler(tradeService).SetupRoutes(app, authMiddleware)
	ws.SetupRoutes(app, wsManager, jwtService)

	// Запускаем сервер
	log.Printf("✅ Barter API запущен на порту %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	// Проверяем, является ли ошибка из Fiber
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Отправляем ошибку в JSON
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
