// cmd/user.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mfjones/chatter/internal/auth"
	"github.com/mfjones/chatter/internal/db"
	"github.com/mfjones/chatter/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Commands for managing chatter user accounts.`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a new user with the specified email and username.

The password is prompted interactively unless --password is given.

Examples:
  # Create a new user with an interactive password prompt
  chatter user create --email user@example.com --username user

  # Create a user non-interactively
  chatter user create --email user@example.com --username user --password secret123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		dbPath, _ := cmd.Flags().GetString("db")

		if email == "" || username == "" {
			return fmt.Errorf("--email and --username are required")
		}

		if password == "" {
			fmt.Print("Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(raw)
		}
		if len(password) < 6 {
			return fmt.Errorf("password must be at least 6 characters")
		}

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s. Run 'chatter init' first", dbPath)
		}

		database, err := db.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		service := auth.NewService(store.NewUserStore(database), "not-needed-for-create")
		user, err := service.Register(context.Background(), email, username, password)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("Created user: %s (ID: %s)\n", user.Email, user.ID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	Long:  `Display all registered users.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s. Run 'chatter init' first", dbPath)
		}

		database, err := db.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		rows, err := database.Query(`
			SELECT id, email, username, status, created_at FROM users ORDER BY created_at
		`)
		if err != nil {
			return fmt.Errorf("failed to query users: %w", err)
		}
		defer rows.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tUSERNAME\tSTATUS\tCREATED")

		count := 0
		for rows.Next() {
			var id, email, username, status, createdAt string
			if err := rows.Scan(&id, &email, &username, &status, &createdAt); err != nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, email, username, status, createdAt)
			count++
		}
		w.Flush()

		if count == 0 {
			fmt.Println("No users found")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userListCmd)

	userCmd.PersistentFlags().String("db", "chatter.db", "Path to database file")

	userCreateCmd.Flags().String("email", "", "User email (required)")
	userCreateCmd.Flags().String("username", "", "Username (required)")
	userCreateCmd.Flags().String("password", "", "User password (prompted if omitted)")
}
