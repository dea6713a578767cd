package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
	internalrepo "TriRecover/internal/repository"
	"TriRecover/internal/services/exchange"
	"TriRecover/pkg/logger"
	pkgpg "TriRecover/pkg/postgres"
	"TriRecover/pkg/util"
)

var errNoSource = errors.New("either --file or --database-url is required")

// options are the persistent flags shared by every subcommand.
type options struct {
	file        string
	mode        string
	baseline    int
	refDate     string
	databaseURL string
	verbose     bool

	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "tricheck",
		Short: "Assess daily recovery entries",
		Long: `tricheck runs the day assessment engine over a CSV or JSON journal
export, or over the Postgres entry store.

Examples:
  tricheck --file journal.csv assess
  tricheck --file journal.json --mode standard bundle 2024-03-18
  tricheck --file journal.csv --database-url $DATABASE_URL import
  tricheck --database-url $DATABASE_URL export > journal.csv`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if o.verbose {
				level = "debug"
			}
			l, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}
			o.log = l
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&o.file, "file", "", "CSV or JSON entries file")
	f.StringVar(&o.mode, "mode", string(models.ModeADT), "threshold mode: adt or standard")
	f.IntVar(&o.baseline, "baseline", models.DefaultBaselineDays, "baseline window in days (7-21)")
	f.StringVar(&o.refDate, "ref-date", "", "reference date YYYY-MM-DD (default today)")
	f.StringVar(&o.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres DSN for the entry store")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(newAssessCmd(o), newBundleCmd(o), newImportCmd(o), newExportCmd(o))
	return root
}

func (o *options) settings() (models.AppSettings, error) {
	s := models.AppSettings{BaselineDays: o.baseline, Mode: models.Mode(strings.ToLower(o.mode))}
	if err := s.Validate(); err != nil {
		return models.AppSettings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func (o *options) ref() (string, error) {
	if o.refDate == "" {
		return util.Today(time.Now(), time.Local), nil
	}
	if !util.ValidDate(o.refDate) {
		return "", fmt.Errorf("invalid --ref-date %q", o.refDate)
	}
	return o.refDate, nil
}

// readFile decodes --file, choosing the format from the extension and
// falling back to sniffing the content.
func (o *options) readFile() ([]models.DailyEntry, error) {
	body, err := os.ReadFile(o.file)
	if err != nil {
		return nil, err
	}
	format := exchange.Sniff(body)
	switch strings.ToLower(filepath.Ext(o.file)) {
	case ".csv":
		format = exchange.FormatCSV
	case ".json":
		format = exchange.FormatJSON
	}

	res, err := exchange.Decode(format, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", o.file, err)
	}
	for _, s := range res.Skipped {
		o.log.Warn("row skipped", logger.Int("line", s.Line), logger.String("reason", s.Err))
	}
	o.log.Debug("entries loaded",
		logger.String("file", o.file),
		logger.String("format", string(format)),
		logger.Int("entries", len(res.Entries)),
		logger.Int("skipped", len(res.Skipped)),
	)
	return res.Entries, nil
}

// openStore connects to Postgres and migrates. The returned func closes the pool.
func (o *options) openStore(ctx context.Context) (repository.EntryStore, func(), error) {
	if o.databaseURL == "" {
		return nil, nil, errors.New("--database-url is required")
	}
	client, err := pkgpg.NewClient(ctx, pkgpg.WithDSN(o.databaseURL), pkgpg.WithMaxConnections(2, 0))
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := internalrepo.NewPostgresEntryStore(client)
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

// entries loads the journal from --file when given, else from Postgres.
func (o *options) entries(ctx context.Context) ([]models.DailyEntry, error) {
	switch {
	case o.file != "":
		return o.readFile()
	case o.databaseURL != "":
		store, closeFn, err := o.openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		return store.List(ctx)
	default:
		return nil, errNoSource
	}
}
