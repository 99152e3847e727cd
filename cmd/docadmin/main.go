// docadmin is an operator CLI that runs the CSV bridge against a live
// project: export a collection's documents to CSV, or bulk-import a CSV file
// with create/update semantics per row.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docadmin-backend-go/internal/config"
	"docadmin-backend-go/internal/core"
	"docadmin-backend-go/internal/db"
)

// rootOptions holds global flags shared by all subcommands.
type rootOptions struct {
	AsUser  string // user id permission checks run as
	AsEmail string // email recorded on audit entries
	Timeout time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "docadmin",
		Short:         "Administer schema-driven document collections",
		Long:          "docadmin exports and imports collection documents as CSV, using the same schema-driven engine as the HTTP API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.AsUser, "as-user", "", "user id to run permission checks as (required)")
	cmd.PersistentFlags().StringVar(&opts.AsEmail, "as-email", "", "email recorded on audit entries")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "overall operation timeout")
	cmd.MarkPersistentFlagRequired("as-user")

	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a collection's documents as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, args[0], func(ctx context.Context, engine *core.CollectionEngine, perms core.PermissionService) error {
				resolved, err := perms.Resolve(ctx, opts.AsUser)
				if err != nil {
					return err
				}
				if !resolved.CanView {
					return fmt.Errorf("user %q lacks the canView capability", opts.AsUser)
				}

				data, err := engine.ExportCSV()
				if err != nil {
					return err
				}
				if outPath == "" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				return os.WriteFile(outPath, data, 0o644)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write CSV to a file instead of stdout")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <collection> <file.csv>",
		Short: "Import a CSV file into a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %q: %w", args[1], err)
			}
			return withEngine(opts, args[0], func(ctx context.Context, engine *core.CollectionEngine, _ core.PermissionService) error {
				actor := core.Actor{UserID: opts.AsUser, Email: opts.AsEmail}
				summary, err := engine.ImportCSV(ctx, actor, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d row(s), skipped %d\n", summary.Imported, summary.Skipped)
				for _, rowErr := range summary.Errors {
					fmt.Fprintf(cmd.OutOrStdout(), "  line %d: %s\n", rowErr.Line, rowErr.Message)
				}
				return nil
			})
		},
	}
	return cmd
}

// withEngine wires the same stack as the server (config, Firestore clients,
// repositories, engine) for one CLI invocation and tears it down after.
func withEngine(opts *rootOptions, collection string, fn func(context.Context, *core.CollectionEngine, core.PermissionService) error) error {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	clients, err := db.InitFirestore(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer clients.Close()

	auditService := core.NewAuditService(db.NewFirestoreAuditRepository(clients.Firestore))
	permissionService := core.NewPermissionService(db.NewFirestoreRoleRepository(clients.Firestore), appConfig.DefaultRole)
	engines := core.NewEngineManager(core.EngineDeps{
		Schemas:     db.NewFirestoreSchemaRepository(clients.Firestore),
		Documents:   db.NewFirestoreDocumentRepository(clients.Firestore),
		Audit:       auditService,
		Permissions: permissionService,
		Logger:      logger,
		PageSize:    appConfig.PageSize,
	})

	engine, err := engines.Engine(ctx, collection)
	if err != nil {
		return err
	}
	return fn(ctx, engine, permissionService)
}
