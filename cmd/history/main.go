package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Mikhail1201/FAYES/internal/config"
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/repository/sqlite"
)

func main() {
	historyApp := &cli.App{
		Name:  "history",
		Usage: "inspect the scanner history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "history database `FILE` (defaults to DATABASE_PATH)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "recent",
				Usage: "print the most recent cycles",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of cycles"},
					&cli.StringFlag{Name: "run", Usage: "only cycles of this run id"},
					&cli.StringFlag{Name: "status", Usage: "only cycles with this status"},
					&cli.StringFlag{Name: "product", Usage: "only cycles reporting this product"},
				},
				Action: recentAction,
			},
			{
				Name:   "counts",
				Usage:  "print how often each product was reported",
				Action: countsAction,
			},
			{
				Name:  "prune",
				Usage: "delete cycles older than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Value: 30 * 24 * time.Hour, Usage: "age of the oldest cycle to keep"},
				},
				Action: pruneAction,
			},
		},
	}

	if err := historyApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openRepository(c *cli.Context) (*sqlite.OutcomeRepository, func(), error) {
	path := c.String("db")
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.DatabasePath
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, nil, err
	}
	return sqlite.NewOutcomeRepository(db), func() { db.Close() }, nil
}

func recentAction(c *cli.Context) error {
	repo, closeDB, err := openRepository(c)
	if err != nil {
		return err
	}
	defer closeDB()

	outcomes, err := repo.Recent(&dto.OutcomeFilter{
		RunID:   c.String("run"),
		Status:  dto.CycleStatus(c.String("status")),
		Product: c.String("product"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATUS\tLABEL\tCONF\tPRODUCT\tHTTP\tDELIVERED")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%d\t%t\n",
			o.CreatedAt.Local().Format("2006-01-02 15:04:05"), o.Status, o.Label, o.Confidence, o.Product, o.StatusCode, o.Delivered)
	}
	return w.Flush()
}

func countsAction(c *cli.Context) error {
	repo, closeDB, err := openRepository(c)
	if err != nil {
		return err
	}
	defer closeDB()

	counts, err := repo.CountsByProduct()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tREPORTED\tDELIVERED")
	for _, pc := range counts {
		fmt.Fprintf(w, "%s\t%d\t%d\n", pc.Product, pc.Reported, pc.Delivered)
	}
	return w.Flush()
}

func pruneAction(c *cli.Context) error {
	repo, closeDB, err := openRepository(c)
	if err != nil {
		return err
	}
	defer closeDB()

	deleted, err := repo.DeleteBefore(time.Now().Add(-c.Duration("older-than")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d cycles\n", deleted)
	return nil
}
