package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	"github.com/noah-isme/masjid-field-reports/internal/repository"
	"github.com/noah-isme/masjid-field-reports/internal/service"
	"github.com/noah-isme/masjid-field-reports/pkg/config"
	"github.com/noah-isme/masjid-field-reports/pkg/database"
	"github.com/noah-isme/masjid-field-reports/pkg/logger"
)

// env is the store connection shared by every subcommand.
type env struct {
	cfg    *config.Config
	db     *sqlx.DB
	logger *zap.Logger
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}
	return &env{cfg: cfg, db: db, logger: logr}, nil
}

func (e *env) references() *service.ReferenceService {
	users := repository.NewUserRepository(e.db)
	return service.NewReferenceService(repository.NewReferenceRepository(e.db), nil, users, e.logger)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "refdata",
		Short:         "Load reference data and export field reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd(), newDumpCmd(), newExportCmd(), newAddUserCmd())
	return root
}

func newImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the mosques and days sheets of a workbook into the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			actor := models.Actor{Role: models.RoleSuperAdmin, UserAgent: "refdata"}
			data, err := e.references().Import(cmd.Context(), actor, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d mosques and %d days from %s\n", len(data.Mosques), len(data.Days), file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "reference workbook (.xlsx)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the stored reference data to a workbook import accepts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := e.references().Export(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "reference.xlsx", "output workbook")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		kind    string
		out     string
		results bool
		filter  models.FilterState
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the records of a kind, or the evaluation averages, to csv, pdf or xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			recordKind, ok := models.ParseKind(kind)
			if !ok {
				return fmt.Errorf("unknown kind %q", kind)
			}
			format, err := outputFormat(out)
			if err != nil {
				return err
			}

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			records := repository.NewRecordRepository(e.db)
			references := e.references()
			resultsSvc := service.NewResultsService(records, references, nil, 0, e.logger)
			recordSvc := service.NewRecordService(service.RecordServiceParams{
				Records:    records,
				References: references,
				Logger:     e.logger,
			})
			exports := service.NewExportService(recordSvc, resultsSvc, e.cfg.Export.PDFFontPath, e.logger)

			var file *service.ExportFile
			if results {
				file, err = exports.Evaluations(cmd.Context(), filter, format)
			} else {
				file, err = exports.Records(cmd.Context(), recordKind, models.RecordQuery{Filter: filter}, format)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(file.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(models.KindFastEval), "record kind: fast_eval, maintenance or attendance")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; the extension picks the format")
	cmd.Flags().BoolVar(&results, "results", false, "export the evaluation averages instead of the records")
	cmd.Flags().StringVar(&filter.Mosque, "mosque", "", "mosque code")
	cmd.Flags().StringVar(&filter.Day, "day", "", "day code")
	cmd.Flags().StringVar(&filter.Status, "status", "", "approval status")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newAddUserCmd() *cobra.Command {
	var (
		email    string
		fullName string
		role     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account for an evaluator or reviewer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userRole, err := parseRole(role)
			if err != nil {
				return err
			}
			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}

			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			user := &models.User{
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: hash,
				FullName:     fullName,
				Role:         userRole,
				Active:       true,
			}
			if err := repository.NewUserRepository(e.db).Create(cmd.Context(), user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with id %s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleEvaluator), "SUPERADMIN, ADMIN or EVALUATOR")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func parseRole(raw string) (models.UserRole, error) {
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleEvaluator:
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

// outputFormat picks the export format from the file extension.
func outputFormat(path string) (service.ExportFormat, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("output %q has no extension", path)
	}
	return service.ParseExportFormat(ext)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatalf("refdata: %v", err)
	}
}
