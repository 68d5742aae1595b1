package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/finboard/backend/internal/assistant"
	"github.com/finboard/backend/internal/auth"
	"github.com/finboard/backend/internal/messaging"
	"github.com/finboard/backend/internal/search"
	"github.com/finboard/backend/internal/service"
	"github.com/finboard/backend/internal/store"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8112"
	}

	ctx := context.Background()

	// Local development runs against the in-memory store with mock auth.
	useMemoryStore := os.Getenv("USE_MEMORY_STORE") == "true" || os.Getenv("ENV") == "local"
	skipAuth := os.Getenv("SKIP_AUTH") == "true"

	var storeImpl store.Store
	var firebaseAuth *auth.FirebaseAuth

	if useMemoryStore {
		log.Println("Using in-memory store for local development")
		storeImpl = store.NewMemoryStore()
	} else {
		projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
		if projectID == "" {
			log.Fatal("GOOGLE_CLOUD_PROJECT is required outside local mode")
		}

		firestoreClient, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)

		if skipAuth {
			log.Println("⚠️  SKIP_AUTH enabled - using mock authentication with Firestore (for seeding/testing only)")
		} else {
			firebaseAuth, err = auth.NewFirebaseAuth(ctx)
			if err != nil {
				log.Fatalf("Failed to initialize Firebase Auth: %v", err)
			}
		}
	}

	// Chat assistant: completion model when a key is present, keyword
	// templates otherwise.
	var llm *assistant.OpenAIClient
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		llm = assistant.NewOpenAIClient(key)
		log.Println("OpenAI completion model enabled")
	} else {
		log.Println("OPENAI_API_KEY not set, chat uses keyword answers only")
	}

	financeService := service.NewFinanceService(storeImpl, assistant.NewResponder(llm))

	if bucketName := os.Getenv("STORAGE_BUCKET"); bucketName != "" {
		storageClient, err := gcsstorage.NewClient(ctx)
		if err != nil {
			log.Fatalf("Failed to create storage client: %v", err)
		}
		defer storageClient.Close()
		financeService.SetStorageClient(storageClient.Bucket(bucketName), bucketName)
	} else {
		log.Println("STORAGE_BUCKET not set, document uploads disabled")
	}

	if appID := os.Getenv("ALGOLIA_APP_ID"); appID != "" {
		searchClient, err := search.NewAlgoliaClient(search.Config{
			AppID:     appID,
			APIKey:    os.Getenv("ALGOLIA_API_KEY"),
			IndexName: os.Getenv("ALGOLIA_INDEX_NAME"),
		})
		if err != nil {
			log.Fatalf("Failed to create Algolia client: %v", err)
		}
		financeService.SetSearchClient(searchClient)
	} else {
		log.Println("ALGOLIA_APP_ID not set, search uses store scans")
	}

	var messenger *messaging.Client
	if instanceID := os.Getenv("GREEN_API_INSTANCE_ID"); instanceID != "" {
		var err error
		messenger, err = messaging.NewClient(messaging.Config{
			InstanceID: instanceID,
			Token:      os.Getenv("GREEN_API_TOKEN"),
		})
		if err != nil {
			log.Fatalf("Failed to create Green API client: %v", err)
		}
		financeService.SetMessenger(messenger)
	} else {
		log.Println("GREEN_API_INSTANCE_ID not set, WhatsApp replies disabled")
	}

	financeService.SetSchedulerSecret(os.Getenv("SCHEDULER_SECRET"))
	if firebaseAuth != nil {
		financeService.SetUserDirectory(firebaseAuth)
	}

	// Authenticated API routes.
	apiMux := http.NewServeMux()
	financeService.RegisterRoutes(apiMux)

	var authMiddleware func(http.Handler) http.Handler
	if firebaseAuth != nil {
		authMiddleware = auth.Middleware(firebaseAuth)
	} else {
		log.Println("✅ Using mock authentication for local development")
		authMiddleware = auth.LocalDevMiddleware()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", authMiddleware(apiMux))

	// The gateway webhook authenticates by message linkage, not by token.
	mux.HandleFunc("POST /webhooks/whatsapp", financeService.HandleWhatsAppWebhook)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if messenger != nil {
			if state, err := messenger.GetAccountState(r.Context()); err != nil {
				log.Printf("[Health] Messaging gateway unreachable: %v", err)
			} else if state.StateInstance != "authorized" {
				log.Printf("[Health] Messaging gateway state: %s", state.StateInstance)
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:1234",
			"http://127.0.0.1:1234",
			"https://finboard.app",
			"https://www.finboard.app",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
			"X-Debug-User-ID",
			"X-Debug-User-Email",
			"X-Debug-User-Name",
		},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}

	log.Printf("Starting server on port %s", port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
