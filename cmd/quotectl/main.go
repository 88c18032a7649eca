// quotectl works with the machine catalog from the command line.
//
// Usage:
//
//	quotectl machines
//	quotectl classify --machine HU50A
//	quotectl import --db catalog.db
//	quotectl render --machine HU50A --customer "Acme" --addon 1 --percent 5
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/Simplici0/machinequote/internal/catalog"
	"github.com/Simplici0/machinequote/internal/db"
	"github.com/Simplici0/machinequote/internal/document"
	"github.com/Simplici0/machinequote/internal/imagestore"
	"github.com/Simplici0/machinequote/internal/logging"
	"github.com/Simplici0/machinequote/internal/migrations"
	"github.com/Simplici0/machinequote/internal/pricing"
	"github.com/Simplici0/machinequote/internal/quote"
	"github.com/Simplici0/machinequote/internal/seed"
)

var version = "dev"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "quotectl",
		Usage:     "Inspect the machine catalog and render quotes",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Value:   "all_machine_configs.json",
				Usage:   "Path to the machine catalog JSON file",
				EnvVars: []string{"CATALOG_PATH"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite catalog snapshot; read instead of --catalog when set",
				EnvVars: []string{"CATALOG_DB"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "option-images",
				Value:   "option_images",
				Usage:   "Directory of option images",
				EnvVars: []string{"OPTION_IMAGE_DIR"},
			},
			&cli.StringFlag{
				Name:    "machine-images",
				Value:   "machine_images",
				Usage:   "Directory of machine images",
				EnvVars: []string{"MACHINE_IMAGE_DIR"},
			},
		},

		Commands: []*cli.Command{
			machinesCommand(),
			classifyCommand(),
			importCommand(),
			renderCommand(),
		},
	}
}

func loggerFor(c *cli.Context) zerolog.Logger {
	return logging.NewWithWriter(c.App.ErrWriter, c.String("log-level"), false)
}

func openCatalog(c *cli.Context) (*catalog.Catalog, error) {
	path := c.String("db")
	if path == "" {
		return catalog.LoadFile(c.String("catalog"))
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog database %s: %w", path, err)
	}
	database, err := db.Open(c.Context, path)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	return catalog.LoadDB(c.Context, database)
}

func machinesCommand() *cli.Command {
	return &cli.Command{
		Name:  "machines",
		Usage: "List catalog machines with base price and option counts",
		Action: func(c *cli.Context) error {
			cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			out := c.App.Writer
			for _, m := range cat.Machines() {
				fmt.Fprintf(out, "%s\t%s\t%d standard\t%d optional\n",
					m.Name, document.Money(m.BasePrice), len(m.StandardOptions), len(m.OptionalOptions))
			}
			return nil
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Show how a machine's optional upgrades are grouped",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "machine", Aliases: []string{"m"}, Usage: "Machine name", Required: true},
		},
		Action: func(c *cli.Context) error {
			cat, err := openCatalog(c)
			if err != nil {
				return err
			}
			sess, err := sessionFor(cat, c.String("machine"))
			if err != nil {
				return err
			}

			out := c.App.Writer
			if extracted := sess.ExtractedBasePrice(); !extracted.IsZero() {
				fmt.Fprintf(out, "Base price from options: %s\n", document.Money(extracted))
			}
			fmt.Fprintf(out, "Base price: %s\n", document.Money(sess.BasePrice()))
			for _, g := range sess.Groups() {
				fmt.Fprintf(out, "%s:\n", g.Category)
				for i, o := range g.Options {
					fmt.Fprintf(out, "  [%d] %s (%s) image=%s\n", o.ID, o.Description, document.Money(o.Price), quote.UploadKey(g, i))
				}
			}
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load the catalog JSON into the SQLite snapshot",
		Action: func(c *cli.Context) error {
			logger := loggerFor(c)
			path := c.String("db")
			if path == "" {
				return fmt.Errorf("--db is required for import")
			}

			cat, err := catalog.LoadFile(c.String("catalog"))
			if err != nil {
				return err
			}

			database, err := db.Open(c.Context, path)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := migrations.Up(c.Context, database); err != nil {
				return err
			}
			stats, err := seed.Run(c.Context, database, cat)
			if err != nil {
				return err
			}
			version, err := migrations.Version(c.Context, database)
			if err != nil {
				return err
			}

			logger.Info().
				Str("db", path).
				Int64("schema_version", version).
				Int("inserts", stats.Inserts).
				Int("updates", stats.Updates).
				Int("deletes", stats.Deletes).
				Int("unchanged", stats.Unchanged).
				Msg("catalog imported")
			fmt.Fprintf(c.App.Writer, "imported %d machines (%d new, %d updated, %d removed, %d unchanged)\n",
				cat.Len(), stats.Inserts, stats.Updates, stats.Deletes, stats.Unchanged)
			return nil
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render a quote PDF for a machine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "machine", Aliases: []string{"m"}, Usage: "Machine name", Required: true},
			&cli.StringFlag{Name: "customer", Usage: "Customer name printed on the quote"},
			&cli.IntSliceFlag{Name: "addon", Usage: "Option id to include (repeatable)"},
			&cli.StringFlag{Name: "target-price", Usage: "Discount so the base price becomes this amount"},
			&cli.StringFlag{Name: "percent", Usage: "Discount as a percentage of the base price"},
			&cli.StringFlag{Name: "flat", Usage: "Discount as a flat amount"},
			&cli.StringFlag{Name: "mode", Usage: "Explicit discount mode (default, target-price, percent, flat); overrides the fields above"},
			&cli.StringFlag{Name: "value", Usage: "Value for --mode"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "quote_output.pdf", Usage: "Output PDF path", EnvVars: []string{"OUTPUT_PATH"}},
			&cli.StringFlag{Name: "title", Value: "Machine Quote", Usage: "Header line on every page", EnvVars: []string{"QUOTE_TITLE"}},
			&cli.StringFlag{Name: "logo", Usage: "JPEG logo for the page header", EnvVars: []string{"LOGO_PATH"}},
		},
		Action: runRender,
	}
}

func runRender(c *cli.Context) error {
	logger := loggerFor(c)

	cat, err := openCatalog(c)
	if err != nil {
		return err
	}
	sess, err := sessionFor(cat, c.String("machine"))
	if err != nil {
		return err
	}
	sess.CustomerName = c.String("customer")

	discount, err := discountFlags(c)
	if err != nil {
		return err
	}
	sess.ApplyDiscount(discount)

	for _, id := range c.IntSlice("addon") {
		if err := sess.Toggle(id, true); err != nil {
			return fmt.Errorf("addon %d: %w", id, err)
		}
	}

	images, err := imagestore.New(c.String("option-images"), c.String("machine-images"))
	if err != nil {
		return err
	}
	opts := []document.RendererOption{document.WithTitle(c.String("title")), document.WithLogger(logger)}
	if logo := c.String("logo"); logo != "" {
		opts = append(opts, document.WithLogo(logo))
	}

	out := c.String("out")
	report, err := document.NewRenderer(images, opts...).RenderFile(out, document.InputFromSession(sess))
	if err != nil {
		return err
	}

	for _, img := range report.Degraded() {
		fmt.Fprintf(c.App.ErrWriter, "warning: image for %s %s\n", img.Subject, img.Status)
	}
	result := sess.Result()
	fmt.Fprintf(c.App.Writer, "Base Machine Price: %s\n", document.Money(result.Breakdown.BasePrice))
	fmt.Fprintf(c.App.Writer, "Discount (%s): -%s\n", result.Breakdown.Mode, document.Money(result.Breakdown.Discount))
	fmt.Fprintf(c.App.Writer, "Upgrades: %s\n", document.Money(result.Breakdown.Addons))
	fmt.Fprintf(c.App.Writer, "Total Quote: %s\n", document.Money(result.Totals.Total))
	fmt.Fprintf(c.App.Writer, "wrote %s (%d pages)\n", out, report.Pages)
	return nil
}

// discountFlags resolves --mode/--value when given, otherwise the three
// discount fields with the same precedence the web form uses.
func discountFlags(c *cli.Context) (pricing.Discount, error) {
	if c.IsSet("mode") {
		mode, err := pricing.ParseMode(c.String("mode"))
		if err != nil {
			return pricing.Discount{}, err
		}
		if mode == pricing.ModeDefault {
			return pricing.Discount{Mode: mode}, nil
		}
		value, err := decimal.NewFromString(c.String("value"))
		if err != nil {
			return pricing.Discount{}, fmt.Errorf("--value %q: %w", c.String("value"), err)
		}
		if value.IsNegative() {
			return pricing.Discount{}, fmt.Errorf("--value must not be negative")
		}
		return pricing.Discount{Mode: mode, Value: value}, nil
	}

	in, err := pricing.ParseInputs(pricing.RawInputs{
		TargetPrice: c.String("target-price"),
		Percent:     c.String("percent"),
		Flat:        c.String("flat"),
	})
	if err != nil {
		return pricing.Discount{}, err
	}
	return pricing.Resolve(in), nil
}

func sessionFor(cat *catalog.Catalog, name string) (*quote.Session, error) {
	m, ok := cat.Machine(name)
	if !ok {
		return nil, fmt.Errorf("unknown machine %q", name)
	}
	return quote.NewSession(m)
}
