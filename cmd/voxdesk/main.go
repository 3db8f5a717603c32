package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voxdesk/VoxDesk/internal/pkg/cache"
	"github.com/voxdesk/VoxDesk/internal/pkg/database"
	"github.com/voxdesk/VoxDesk/internal/pkg/env"
	"github.com/voxdesk/VoxDesk/internal/pkg/metrics/counter"
	"github.com/voxdesk/VoxDesk/internal/pkg/router"
)

const counterFlushInterval = 30 * time.Second

func main() {
	app := NewApplication()

	go flushDeliveryCounters()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// init fiber app
	app := fiber.New(fiber.Config{
		// Webhook payloads are small; anything bigger is not a provider.
		BodyLimit: 1 << 20, // 1 MiB
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ROUTER
	router.InstallRouter(app)

	return app
}

// flushDeliveryCounters periodically drains the Redis delivery counters into
// the stats table.
func flushDeliveryCounters() {
	ticker := time.NewTicker(counterFlushInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := counter.FlushAll(); err != nil {
			log.Printf("delivery counter flush failed: %v", err)
		}
	}
}
