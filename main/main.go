package main

import (
	"context"
	"log"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"tritonhub/app"
	"tritonhub/auth"
	"tritonhub/fallback"
	"tritonhub/main/routes"
	"tritonhub/store"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

// Initialize the HTTP server
func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Env Vars
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}
	dbFile := os.Getenv("DB_FILE")
	if dbFile == "" {
		dbFile = ":memory:"
	}

	// Hosted backend client plus the seeded stand-in
	supabase := store.NewSupabase(os.Getenv("SUPABASE_URL"), os.Getenv("SUPABASE_ANON_KEY"))
	seeded, err := fallback.NewSeeded(dbFile)
	if err != nil {
		log.Fatal("Error opening fallback database:", err)
	}
	defer seeded.Close()

	// Classify the backend once at boot
	mode := fallback.Detect(context.Background(), supabase)
	log.Println("Store mode:", mode)

	guard := fallback.NewGuard(mode, supabase, seeded, nil)
	authFor := func() store.Auth {
		if guard.Mode() == fallback.ModeFallback {
			return seeded
		}
		return supabase
	}
	registry := app.NewRegistry(guard, authFor)
	// The demotion notice reaches every connected client
	guard.SetNotifier(registry)

	authService := &auth.Service{Registry: registry, Auth: authFor}
	handlers := &routes.Handlers{Registry: registry, Auth: authService, Guard: guard}

	// Setup Gin
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate Limit
	limitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: 100, // each ip can make 100 requests per second
	})
	mw := ratelimit.RateLimiter(limitStore, &ratelimit.Options{
		ErrorHandler: rateLimitErrorHandler,
		KeyFunc:      keyFunc,
	})
	r.Use(mw)

	routes.SetupRegularRoutes(r, handlers)
	routes.SetupAPIRoutes(r, handlers)
	routes.SetupWebSocketRoutes(r, handlers)

	if err := r.Run(port); err != nil {
		log.Fatal(err)
	}
}
