package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/buscacursos-bot-go/internal/render"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

func newSearchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "Print the first page of courses matching a query",
		Long: `Search resolves the query like an answer to the bot's question:
a course code (IIC2233), a code and section (IIC2233-2), a registration
number (10865) or part of a course name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runSearch(cmd, e, strings.Join(args, " "))
		},
	}
}

func runSearch(cmd *cobra.Command, e *env, answer string) error {
	query := e.matcher.Match(answer)
	records, err := e.searcher.Execute(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search %q: %w", answer, err)
	}

	sess := session.New()
	sess.SetResults(query.Period, records, e.cfg.PageSize)

	renderer, err := render.New(render.Plain)
	if err != nil {
		return err
	}
	text, err := renderer.Render(render.TemplateCoursesFound, render.FoundData{
		Period:  sess.Results.Period,
		Paging:  sess.Results.Paging,
		Courses: sess.CurrentPage(),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
