package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"latch-backend/config"
	"latch-backend/controllers"
	"latch-backend/messaging"
	"latch-backend/routes"
	"latch-backend/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := config.ConnectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	session := messaging.NewSession()
	provider, err := newProvider(ctx, cfg, session)
	if err != nil {
		log.Fatalf("Failed to set up %s messaging: %v", cfg.MessagingProvider, err)
	}

	reminders := services.NewReminderService(store.Drivers, provider, services.ReminderConfig{
		Window:     cfg.Reminder.Window,
		Interval:   cfg.Reminder.Interval,
		BatchSize:  cfg.Reminder.BatchSize,
		BatchDelay: cfg.Reminder.BatchDelay,
		SendRate:   cfg.Reminder.SendRate,
		Message:    cfg.Reminder.Message,
	})
	session.OnConnected(func() { reminders.TriggerNow(ctx) })
	if err := reminders.StartScheduler(ctx); err != nil {
		log.Fatalf("Failed to start reminder scheduler: %v", err)
	}

	if err := provider.Start(ctx); err != nil {
		// Missing credentials or an unreadable session store. Connect failures are
		// retried inside the provider. The driver API keeps serving either way.
		log.Printf("Messaging provider did not start: %v", err)
	}

	r := routes.SetupRouter(cfg, routes.Handlers{
		Drivers:  controllers.NewDriverController(services.NewDriverService(store.Drivers)),
		WhatsApp: controllers.NewWhatsAppController(session),
	})
	printRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	reminders.Stop()
	provider.Stop()
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("Closing store: %v", err)
	}
}

func newProvider(ctx context.Context, cfg *config.Config, session *messaging.Session) (messaging.Provider, error) {
	switch cfg.MessagingProvider {
	case config.ProviderTwilio:
		return messaging.NewTwilioProvider(
			cfg.Twilio.AccountSID,
			cfg.Twilio.AuthToken,
			cfg.Twilio.WhatsAppNumber,
			cfg.CountryCode,
			session,
		), nil
	default:
		return messaging.NewWhatsAppProvider(ctx, cfg.SessionDir, cfg.CountryCode, session)
	}
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
