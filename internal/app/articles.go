package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"horse.fit/newslink/internal/cli"
	"horse.fit/newslink/internal/db"
)

func runArticles(args []string) int {
	fs := flag.NewFlagSet("articles", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	source := fs.String("source", "", "Filter by feed source id")
	unprocessed := fs.Bool("unprocessed", false, "Only list articles not yet matched")
	limit := fs.Int("limit", 50, "Maximum articles to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "articles does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	articles, err := pool.ListArticles(ctx, db.ArticleListOptions{
		Limit:           *limit,
		UnprocessedOnly: *unprocessed,
		Source:          strings.TrimSpace(*source),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query articles: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		return exitOnJSONError(printJSON(articles))
	}

	return exitOnTableError(writeTable(
		[]string{"id", "title", "source", "author", "published_at", "processed", "relevance"},
		articleRows(articles),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

func articleRows(articles []db.Article) [][]string {
	rows := make([][]string, 0, len(articles))
	for _, article := range articles {
		rows = append(rows, []string{
			article.ID,
			truncateForTable(article.Title, 70),
			article.Source,
			truncateForTable(pointerStringOrEmpty(article.Author), 24),
			formatUTCTimestamp(article.PublishedAt),
			strconv.FormatBool(article.IsProcessed),
			strconv.Itoa(article.RelevanceScore),
		})
	}
	return rows
}
