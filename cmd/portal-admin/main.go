package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"baaseteen/case-portal/case-portal-backend/internal/auth"
	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/config"
	"baaseteen/case-portal/case-portal-backend/internal/counseling"
	"baaseteen/case-portal/case-portal-backend/internal/database"
	"baaseteen/case-portal/case-portal-backend/internal/documents"
	"baaseteen/case-portal/case-portal-backend/internal/notifications"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/internal/stages"
	"baaseteen/case-portal/case-portal-backend/internal/users"
)

var rootCmd = &cobra.Command{
	Use:           "portal-admin",
	Short:         "Baaseteen case portal administration",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PORTAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.json", "path to the JSON config file")
	rootCmd.PersistentFlags().Bool("verbose", false, "log SQL statements")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(tokenCmd())
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(viper.GetString("config"))
}

func withDB(ctx context.Context, fn func(ctx context.Context, db *gorm.DB, logger *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Database, viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return fn(ctx, db, logger)
}

// models lists every table the API reads or writes.
func models() []interface{} {
	return []interface{}{
		&users.User{},
		&stages.WorkflowStage{},
		&cases.Case{},
		&cases.StatusHistory{},
		&cases.CaseComment{},
		&cases.Identification{},
		&counseling.Form{},
		&counseling.Section{},
		&notifications.Notification{},
		&notifications.DeliveryLog{},
		&permissions.RolePermission{},
		&documents.CoverLetter{},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
				if err := db.WithContext(ctx).AutoMigrate(models()...); err != nil {
					return fmt.Errorf("failed to migrate schema: %w", err)
				}
				logger.Info("Schema migrated", zap.Int("tables", len(models())))
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default workflow stages and role permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
				return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					created := 0
					for _, stage := range stages.DefaultStages() {
						var count int64
						if err := tx.Model(&stages.WorkflowStage{}).
							Where("stage_key = ? AND case_type IS NULL", stage.StageKey).
							Count(&count).Error; err != nil {
							return err
						}
						if count > 0 {
							continue
						}
						stage := stage
						if err := tx.Create(&stage).Error; err != nil {
							return fmt.Errorf("failed to create stage %s: %w", stage.StageKey, err)
						}
						created++
					}

					rows := permissions.SeedRows(permissions.DefaultGrants)
					if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
						return fmt.Errorf("failed to seed role permissions: %w", err)
					}
					logger.Info("Seed complete",
						zap.Int("stages_created", created),
						zap.Int("permission_rows", len(rows)),
					)
					return nil
				})
			})
		},
	}
}

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage portal users"}
	usr.AddCommand(userCreateCmd())
	return usr
}

func userCreateCmd() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an active user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" || role == "" {
				return fmt.Errorf("--name, --email and --role are required")
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
				user := &users.User{Name: name, Email: email, Role: role, IsActive: true}
				if err := users.NewRepository(db).Create(ctx, user); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "unique email address")
	cmd.Flags().StringVar(&role, "role", "", "role as stored on the user (e.g. dcm, counselor, welfare_reviewer)")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID uint
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.Security.TokenTTL
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
				repo := users.NewRepository(db)
				var user *users.User
				switch {
				case userID != 0:
					user, err = repo.GetByID(ctx, userID)
				case email != "":
					user, err = repo.GetByEmail(ctx, email)
				default:
					return fmt.Errorf("--user-id or --email is required")
				}
				if err != nil {
					return err
				}
				if !user.IsActive {
					return fmt.Errorf("user %d is inactive", user.ID)
				}

				token, err := auth.IssueToken(auth.Principal{
					UserID: user.ID,
					Name:   user.Name,
					Role:   user.Role,
				}, cfg.Security.JWTSecret, ttl, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to security.token_ttl)")
	return cmd
}
