// cmd/serve.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfjones/chatter/internal/db"
	"github.com/mfjones/chatter/internal/log"
	"github.com/mfjones/chatter/internal/server"
	"github.com/mfjones/chatter/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatter server",
	Long:  `Starts the HTTP server with auth, room APIs and the realtime websocket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		port, _ := cmd.Flags().GetInt("port")
		host, _ := cmd.Flags().GetString("host")
		jwtSecret := os.Getenv("CHATTER_JWT_SECRET")

		if jwtSecret == "" {
			jwtSecret = "super-secret-jwt-key-please-change-in-production"
			fmt.Println("Warning: Using default JWT secret. Set CHATTER_JWT_SECRET in production.")
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s. Run 'chatter init' first", dbPath)
		}

		logCfg := log.DefaultConfig()
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			logCfg.Level = level
		}
		if mode, _ := cmd.Flags().GetString("log-mode"); mode != "" {
			logCfg.Mode = mode
		}
		if err := log.Init(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		database, err := db.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		// Run migrations in case the schema is outdated
		if err := database.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		srv, err := server.New(database, server.Config{
			JWTSecret: jwtSecret,
			Storage:   buildStorageConfig(cmd),
		})
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("Starting chatter on %s\n", addr)
		fmt.Printf("  Auth API:  http://%s/auth/v1\n", addr)
		fmt.Printf("  Rooms API: http://%s/api/v1\n", addr)
		fmt.Printf("  Realtime:  ws://%s/realtime/v1/websocket\n", addr)

		return srv.ListenAndServe(addr)
	},
}

// buildStorageConfig creates a storage.Config from environment variables and
// CLI flags. Priority: CLI flags > environment variables > defaults.
func buildStorageConfig(cmd *cobra.Command) storage.Config {
	cfg := storage.Config{Backend: "local", LocalPath: "./uploads"}

	if backend := os.Getenv("CHATTER_STORAGE_BACKEND"); backend != "" {
		cfg.Backend = backend
	}
	if path := os.Getenv("CHATTER_STORAGE_PATH"); path != "" {
		cfg.LocalPath = path
	}
	cfg.S3 = storage.S3Config{
		Bucket:          os.Getenv("CHATTER_S3_BUCKET"),
		Region:          os.Getenv("CHATTER_S3_REGION"),
		Endpoint:        os.Getenv("CHATTER_S3_ENDPOINT"),
		AccessKeyID:     os.Getenv("CHATTER_S3_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("CHATTER_S3_SECRET_KEY"),
		UsePathStyle:    os.Getenv("CHATTER_S3_PATH_STYLE") == "true",
	}

	if backend, _ := cmd.Flags().GetString("storage"); backend != "" {
		cfg.Backend = backend
	}
	if path, _ := cmd.Flags().GetString("storage-path"); path != "" {
		cfg.LocalPath = path
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("db", "chatter.db", "Path to database file")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	serveCmd.Flags().String("log-mode", "", "Log mode: console or file")
	serveCmd.Flags().String("storage", "", "Storage backend: local or s3")
	serveCmd.Flags().String("storage-path", "", "Directory for local file storage")
}
