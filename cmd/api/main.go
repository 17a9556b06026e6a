package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/tariffsnap/tariffsnap-golang/internal/ai"
	"github.com/tariffsnap/tariffsnap-golang/internal/database"
	"github.com/tariffsnap/tariffsnap-golang/internal/email"
	"github.com/tariffsnap/tariffsnap-golang/internal/handlers"
	"github.com/tariffsnap/tariffsnap-golang/internal/payment"
	"github.com/tariffsnap/tariffsnap-golang/internal/routes"
	"github.com/tariffsnap/tariffsnap-golang/internal/scheduler"
	"github.com/tariffsnap/tariffsnap-golang/internal/store"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to apply database schema: %v", err)
	}

	// 2. --- Stores ---
	profiles := store.NewProfileStore(db)
	history := store.NewHistoryStore(db)
	billing := store.NewBillingStore(db)
	plans := store.NewPlanStore(db)
	content := store.NewContentStore(db, os.Getenv("CONTENT_CACHE_DIR"))

	if err := plans.Seed(context.Background()); err != nil {
		log.Fatalf("Failed to seed plan catalog: %v", err)
	}

	// 3. --- AI Classification Service ---
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Fatal("CRITICAL ERROR: GEMINI_API_KEY environment variable is not set.")
	}
	aiService, err := ai.NewAIService(context.Background(), geminiKey, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatalf("Failed to initialize AI service: %v", err)
	}

	// 4. --- Payment Provider ---
	var payments payment.Provider = payment.StubProvider{}
	if stripeKey := os.Getenv("STRIPE_API_KEY"); stripeKey != "" {
		payments = payment.NewStripeProvider(stripeKey, os.Getenv("PAYMENT_CURRENCY"))
		log.Println("Payment provider: Stripe")
	} else {
		log.Println("Payment provider: stub (STRIPE_API_KEY not set)")
	}

	// 5. --- Verification Code Delivery ---
	var mailSender email.CodeSender
	if resendSender, err := email.NewResendSender(); err == nil {
		mailSender = resendSender
	} else {
		log.Printf("WARNING: %v — verification emails will be logged instead", err)
		mailSender = email.LogSender{Channel: "email"}
	}

	app := &handlers.Handlers{
		Profiles:    profiles,
		History:     history,
		Billing:     billing,
		Plans:       plans,
		Content:     content,
		Classifier:  aiService,
		Payments:    payments,
		EmailSender: mailSender,
		PhoneSender: email.LogSender{Channel: "phone"},
	}

	// 6. --- Background Jobs ---
	sched := scheduler.NewScheduler()
	sched.Start(profiles, app)
	defer sched.Stop()

	// 7. --- Router & Server ---
	router := routes.SetupRouter(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting TariffSnap API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
