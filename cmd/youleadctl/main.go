package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/youlead/internal/app/bootstrap"
	"github.com/dalemusser/youlead/internal/app/store/audit"
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/app/system/indexes"
	"github.com/dalemusser/youlead/internal/app/system/pastdue"
	"github.com/dalemusser/youlead/internal/app/system/validators"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	mongoURI string
	mongoDB  string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "youleadctl",
	Short: "Administrative tasks for a You Lead deployment",
	Long: `youleadctl runs maintenance against the You Lead MongoDB database.

Connection settings default to YOULEAD_MONGO_URI and YOULEAD_MONGO_DATABASE.`,
	SilenceUsage: true,
}

var schemaCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Install collection validators and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
			if err := validators.EnsureAll(ctx, db); err != nil {
				return fmt.Errorf("validators: %w", err)
			}
			if err := indexes.EnsureAll(ctx, db); err != nil {
				return fmt.Errorf("indexes: %w", err)
			}
			fmt.Println("Validators and indexes are up to date.")
			return nil
		})
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote-admin",
	Short: "Give an existing user the admin role",
	Long: `Give an existing user the admin role.

Examples:
  youleadctl promote-admin --email dana@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return errors.New("--email is required")
		}
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
			al := auditlog.New(audit.New(db), log, auditlog.Config{Admin: "all"})
			changed, err := bootstrap.PromoteAdmin(ctx, db, al, email)
			if errors.Is(err, bootstrap.ErrAdminUserNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return err
			}
			if changed {
				fmt.Printf("%s is now an admin.\n", email)
			} else {
				fmt.Printf("%s was already an admin.\n", email)
			}
			return nil
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep-past-due",
	Short: "Flag overdue tasks and projects once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
			n, err := pastdue.New(db, log).SweepPastDue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("Flagged %d item(s) past due.\n", n)
			return nil
		})
	},
}

func withDB(ctx context.Context, fn func(context.Context, *mongo.Database, *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		log = l
		defer func() { _ = log.Sync() }()
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetAppName("youleadctl"))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return fn(ctx, client.Database(mongoDB), log)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("YOULEAD_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&mongoDB, "mongo-database", envOr("YOULEAD_MONGO_DATABASE", "youlead"), "MongoDB database name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	promoteCmd.Flags().String("email", "", "Email of the user to promote")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
