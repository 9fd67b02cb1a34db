package admin

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"landsphere/server/internal/catalog"
	"landsphere/server/internal/geography"
	"landsphere/server/internal/market"
	"landsphere/server/internal/processor"
	"landsphere/server/internal/queue"
	"landsphere/server/internal/trading"
)

type importCatalogCmd struct {
	*env
	path string
}

func (*importCatalogCmd) Name() string     { return "import-catalog" }
func (*importCatalogCmd) Synopsis() string { return "load the property dataset export into the catalog table" }
func (*importCatalogCmd) Usage() string {
	return `import-catalog [-csv <file>]

  Reads the dataset export and upserts every row into the catalog table. Rows with a
  property id already in the table replace it. Listings are left untouched.
`
}

func (c *importCatalogCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.path, "csv", c.cfg.Catalog.CSVPath, "Dataset export to import")
}

func (c *importCatalogCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	file, err := os.Open(c.path)
	if err != nil {
		return c.fail(err, "Failed to open dataset")
	}
	defer file.Close()

	reader, err := catalog.NewCSVReader(file)
	if err != nil {
		return c.fail(err, "Failed to read dataset")
	}

	db, err := c.openDatabase()
	if err != nil {
		return c.fail(err, "Failed to open database")
	}
	defer db.Close()

	q := queue.NewCatalogQueue(c.cfg.BatchProcessing.QueueSize, c.logger)
	p := processor.NewBatchProcessor(db.GetDB(), q, c.cfg, c.logger)
	read, err := p.Import(ctx, reader)
	if err != nil {
		return c.fail(err, "Failed to import catalog")
	}

	fmt.Fprintf(c.out, "Imported %d catalog records from %s\n", read, c.path)
	return subcommands.ExitSuccess
}

type seedListingsCmd struct {
	*env
	reset bool
}

func (*seedListingsCmd) Name() string     { return "seed-listings" }
func (*seedListingsCmd) Synopsis() string { return "create platform-owned listings from the catalog" }
func (*seedListingsCmd) Usage() string {
	return `seed-listings [-reset]

  Creates one available, platform-owned listing per catalog property priced at its
  current price. Nothing happens when listings already exist unless -reset is given,
  which overwrites every listing.
`
}

func (c *seedListingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.reset, "reset", false, "Overwrite existing listings")
}

func (c *seedListingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	policy, err := trading.PolicyFromConfig(c.cfg)
	if err != nil {
		return c.fail(err, "Invalid trading configuration")
	}

	db, err := c.openDatabase()
	if err != nil {
		return c.fail(err, "Failed to open database")
	}
	defer db.Close()

	cat, err := c.loadCatalog(ctx, db)
	if err != nil {
		return c.fail(err, "Failed to load catalog")
	}

	engine := trading.NewEngine(db, cat, policy, c.logger)
	seed := engine.EnsureListings
	if c.reset {
		seed = engine.ResetListings
	}
	written, err := seed(ctx)
	if err != nil {
		return c.fail(err, "Failed to seed listings")
	}

	if written == 0 {
		fmt.Fprintln(c.out, "Listings already present, nothing seeded")
	} else {
		fmt.Fprintf(c.out, "Seeded %d listings\n", written)
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	*env
	region string
	state  string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print available listings per region, state or city" }
func (*summaryCmd) Usage() string {
	return `summary [-region <name>] [-state <name>]

  Without flags prints the available listings per region. -region drills into its
  states, -state into its cities.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.region, "region", "", "Region to break down by state")
	f.StringVar(&c.state, "state", "", "State to break down by city")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := c.openDatabase()
	if err != nil {
		return c.fail(err, "Failed to open database")
	}
	defer db.Close()

	cat, err := c.loadCatalog(ctx, db)
	if err != nil {
		return c.fail(err, "Failed to load catalog")
	}
	index, err := geography.Build(cat)
	if err != nil {
		return c.fail(err, "Failed to index catalog")
	}

	view, err := market.NewService(cat, index, db, c.logger).Browse(ctx, market.BrowseRequest{Region: c.region, State: c.state})
	if err != nil {
		return c.fail(err, "Failed to summarise marketplace")
	}

	heading := "REGION"
	switch view.Level {
	case market.LevelRegion:
		heading = "STATE"
	case market.LevelState:
		heading = "CITY"
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tAVAILABLE\n", heading)
	total := 0
	for _, row := range view.Summary {
		fmt.Fprintf(w, "%s\t%d\n", row.Name, row.Count)
		total += row.Count
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", total)
	if err := w.Flush(); err != nil {
		return c.fail(err, "Failed to print summary")
	}
	return subcommands.ExitSuccess
}
