// Package main is the developer CLI: it searches the course catalog and
// runs the conversation of the bot on a terminal.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyellow/buscacursos-bot-go/internal/catalog"
	"github.com/garyellow/buscacursos-bot-go/internal/config"
	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/scraper"
	"github.com/garyellow/buscacursos-bot-go/internal/scraper/buscacursos"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	pageSize int
	year     int
	term     int
	logLevel string
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "buscacursos",
		Short: "Search the buscacursos course catalog",
		Long: `buscacursos queries the public course catalog the way the bot does.

Examples:
  # First page of the sections of a course
  buscacursos search IIC2233

  # A section of another period
  buscacursos search --year 2017 --term 1 IIC2233-2

  # Talk to the bot
  buscacursos chat`,
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.IntVar(&opts.pageSize, "page-size", 0, "Courses per page (default from PAGINATION_SIZE)")
	flags.IntVar(&opts.year, "year", 0, "Academic year (default from PERIOD_YEAR or the current date)")
	flags.IntVar(&opts.term, "term", 0, "Term: 1, 2 or 3 (default from PERIOD_TERM or the current date)")
	flags.StringVar(&opts.logLevel, "log-level", "error", "Log level written to stderr")

	root.AddCommand(newSearchCmd(opts), newChatCmd(opts))
	return root
}

// env is what the commands need, built from configuration and flags.
type env struct {
	cfg      *config.Config
	logger   *logger.Logger
	matcher  *course.Matcher
	searcher *catalog.Service
}

func (o *globalOptions) load(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadForMode(config.CLIMode)
	if err != nil {
		return nil, err
	}
	if o.pageSize != 0 {
		cfg.PageSize = o.pageSize
	}
	if o.year != 0 {
		cfg.Period.Year = o.year
	}
	if o.term != 0 {
		cfg.Period.Term = o.term
	}
	if err := cfg.ValidateForMode(config.CLIMode); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	log := logger.NewWithWriter(o.logLevel, cmd.ErrOrStderr())
	client := scraper.NewClient(cfg.CatalogTimeout)
	return &env{
		cfg:      cfg,
		logger:   log,
		matcher:  course.NewMatcher(cfg.Period),
		searcher: catalog.NewService(buscacursos.New(client, cfg.CatalogBaseURL), nil, log).WithTimeout(cfg.CatalogTimeout),
	}, nil
}
