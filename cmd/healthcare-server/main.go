package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/olawuwo-abideen/healthcare/internal/config"
	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/db"
	"github.com/olawuwo-abideen/healthcare/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "healthcare-server",
		Short: "Healthcare appointment API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationsDir(dir, cfg)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir(dir, cfg)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationsDir(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.MigrationsDir
}

// adminCmd seeds administrator accounts. Admins cannot sign up over HTTP.
func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := adminRequestFromFlags(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.ResetTokenExpiresIn)
			revoked := auth.NewMemoryRevocationStore()
			defer revoked.Close()
			notifier := notification.NewNotifier(notification.NewLogSender(logger), logger, nil)

			svc := identity.NewService(identity.NewUserRepoPG(pool), tokens, revoked, notifier, cfg.ResetPasswordURL, logger)
			u, err := svc.CreateAdmin(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Admin email address")
	createCmd.Flags().String("password", "", "Admin password")
	createCmd.Flags().String("phone", "", "Admin phone number")
	createCmd.Flags().String("firstname", "Admin", "Admin first name")
	createCmd.Flags().String("lastname", "User", "Admin last name")

	cmd.AddCommand(createCmd)
	return cmd
}

func adminRequestFromFlags(cmd *cobra.Command) (identity.SignupRequest, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	phone, _ := cmd.Flags().GetString("phone")
	firstname, _ := cmd.Flags().GetString("firstname")
	lastname, _ := cmd.Flags().GetString("lastname")

	if email == "" {
		return identity.SignupRequest{}, fmt.Errorf("--email is required")
	}
	if len(password) < 6 {
		return identity.SignupRequest{}, fmt.Errorf("--password must be at least 6 characters")
	}
	if phone == "" {
		return identity.SignupRequest{}, fmt.Errorf("--phone is required")
	}
	return identity.SignupRequest{
		Firstname:   firstname,
		Lastname:    lastname,
		Email:       email,
		PhoneNumber: phone,
		Password:    password,
	}, nil
}
