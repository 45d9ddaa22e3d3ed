// Command hlc runs the hallucinated-repetition cleaning pipeline over a
// tokenized text corpus: index sentence occurrences, detect repeated runs,
// and remove verified runs from freshly re-read documents.
package main

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"hlc/internal/audit"
	"hlc/internal/config"
	"hlc/internal/corpus"
	"hlc/internal/detect"
	"hlc/internal/indexer"
	"hlc/internal/logging"
	"hlc/internal/remove"
	"hlc/internal/store"
)

const version = "0.2.0"

var CLI struct {
	Config    string `help:"Path to pipeline config file." default:"hlc.yaml" type:"path"`
	DB        string `help:"Override the store path from the config." placeholder:"PATH"`
	LogLevel  string `name:"log-level" help:"Log level." enum:"debug,info,warn,error" default:"info"`
	LogFormat string `name:"log-format" help:"Log format." enum:"text,json" default:"text"`

	Index   IndexCmd   `cmd:"" help:"Index every corpus document into the sentence store"`
	Detect  DetectCmd  `cmd:"" help:"Detect repeated sentence runs across the whole index"`
	Remove  RemoveCmd  `cmd:"" help:"Write cleaned documents with verified runs removed"`
	Texts   TextsCmd   `cmd:"" help:"Materialize run hashes back to sentence text for auditing"`
	Stats   StatsCmd   `cmd:"" help:"Print store row counts and the run-length histogram"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// App carries the loaded configuration into command Run methods.
type App struct {
	Config *config.Config
}

func (a *App) openStore() (*store.Store, error) {
	return store.Open(a.Config.Store.Path)
}

func (a *App) finder() corpus.Finder {
	return corpus.Finder{
		Dir:    a.Config.Corpus.Dir,
		Prefix: a.Config.Corpus.FilePrefix,
		Ext:    a.Config.Corpus.FileExt,
	}
}

func (a *App) marker() corpus.Marker {
	return corpus.Marker(a.Config.Corpus.BoundaryMarker)
}

// IndexCmd runs stage 1: sentence indexing.
type IndexCmd struct {
	Dir     string `help:"Corpus directory (overrides config)."`
	Prefix  string `help:"Document filename prefix (overrides config)."`
	Ext     string `help:"Document filename extension (overrides config)."`
	Workers int    `help:"Worker count, 0 = one per CPU." default:"-1"`
}

func (c *IndexCmd) Run(app *App) error {
	cfg := app.Config
	if c.Dir != "" {
		cfg.Corpus.Dir = c.Dir
	}
	if c.Prefix != "" {
		cfg.Corpus.FilePrefix = c.Prefix
	}
	if c.Ext != "" {
		cfg.Corpus.FileExt = c.Ext
	}
	if c.Workers >= 0 {
		cfg.Index.Workers = c.Workers
	}

	refs, err := app.finder().Documents()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no documents matching %s<N>%s in %s",
			cfg.Corpus.FilePrefix, cfg.Corpus.FileExt, cfg.Corpus.Dir)
	}
	slog.Info("indexing corpus", "documents", len(refs), "dir", cfg.Corpus.Dir)

	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	policy, err := store.ParseFlushPolicy(cfg.Index.OnFlushError)
	if err != nil {
		return err
	}
	return indexer.IndexCorpus(st, refs, app.marker(), indexer.Config{
		BatchSize:    cfg.Index.BatchSize,
		Workers:      cfg.Index.Workers,
		OnFlushError: policy,
	})
}

// DetectCmd runs stage 2: run detection over the full index.
type DetectCmd struct {
	MinOccurrences int `help:"Candidate threshold (overrides config)." default:"-1"`
	MinRunLength   int `help:"Shortest run to record (overrides config)." default:"-1"`
	Workers        int `help:"Worker count, 0 = one per CPU." default:"-1"`
}

func (c *DetectCmd) Run(app *App) error {
	cfg := app.Config
	if c.MinOccurrences > 0 {
		cfg.Detect.MinOccurrences = c.MinOccurrences
	}
	if c.MinRunLength > 0 {
		cfg.Detect.MinRunLength = c.MinRunLength
	}
	if c.Workers >= 0 {
		cfg.Detect.Workers = c.Workers
	}

	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	policy, err := store.ParseFlushPolicy(cfg.Detect.OnFlushError)
	if err != nil {
		return err
	}
	return detect.DetectRuns(st, detect.Config{
		MinOccurrences: cfg.Detect.MinOccurrences,
		MinRunLength:   cfg.Detect.MinRunLength,
		BatchSize:      cfg.Detect.BatchSize,
		Workers:        cfg.Detect.Workers,
		OnFlushError:   policy,
	})
}

// RemoveCmd runs stage 3: verified run removal.
type RemoveCmd struct {
	Out          string `help:"Output directory for cleaned documents (overrides config)."`
	OutPrefix    string `name:"out-prefix" help:"Cleaned filename prefix (overrides config)."`
	MinRunLength int    `help:"Shortest run to delete (overrides config)." default:"-1"`
	Workers      int    `help:"Worker count, 0 = one per CPU." default:"-1"`
}

func (c *RemoveCmd) Run(app *App) error {
	cfg := app.Config
	if c.Out != "" {
		cfg.Remove.OutputDir = c.Out
	}
	if c.OutPrefix != "" {
		cfg.Remove.OutputPrefix = c.OutPrefix
	}
	if c.MinRunLength > 0 {
		cfg.Remove.MinRunLength = c.MinRunLength
	}
	if c.Workers >= 0 {
		cfg.Remove.Workers = c.Workers
	}

	refs, err := app.finder().Documents()
	if err != nil {
		return err
	}
	slog.Info("removing verified runs", "documents", len(refs), "min_run_length", cfg.Remove.MinRunLength)

	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	return remove.CleanCorpus(st, refs, app.marker(), remove.Config{
		MinRunLength: cfg.Remove.MinRunLength,
		OutputDir:    cfg.Remove.OutputDir,
		OutputPrefix: cfg.Remove.OutputPrefix,
		Workers:      cfg.Remove.Workers,
	})
}

// TextsCmd materializes run hashes into the audit text table.
type TextsCmd struct{}

func (c *TextsCmd) Run(app *App) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	policy, err := store.ParseFlushPolicy(app.Config.Index.OnFlushError)
	if err != nil {
		return err
	}
	return audit.MaterializeTexts(st, app.finder(), app.marker(), audit.Config{
		BatchSize:    app.Config.Index.BatchSize,
		OnFlushError: policy,
	})
}

// StatsCmd prints store counts and the run-length histogram.
type StatsCmd struct{}

func (c *StatsCmd) Run(app *App) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.Counts()
	if err != nil {
		return err
	}
	ids, err := st.DocumentIDs()
	if err != nil {
		return err
	}
	fmt.Printf("documents:       %d\n", len(ids))
	fmt.Printf("sentences:       %d\n", counts.Sentences)
	fmt.Printf("repetition runs: %d\n", counts.Runs)
	fmt.Printf("sentence texts:  %d\n", counts.SentenceTexts)

	hist, err := st.RunLengthHistogram()
	if err != nil {
		return err
	}
	if len(hist) > 0 {
		fmt.Println("\nrun length  count")
		for _, lc := range hist {
			fmt.Printf("%10d  %d\n", lc.RunLength, lc.Count)
		}
	}
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	fmt.Printf("hlc %s\n", version)
	return nil
}

func main() {
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name("hlc"),
		kong.Description("Hallucinated-repetition corpus cleaner"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	if err := logging.Init(CLI.LogLevel, CLI.LogFormat); err != nil {
		ctx.FatalIfErrorf(err)
	}

	cfg, err := config.Load(CLI.Config)
	ctx.FatalIfErrorf(err)
	if CLI.DB != "" {
		cfg.Store.Path = CLI.DB
	}

	err = ctx.Run(&App{Config: cfg})
	ctx.FatalIfErrorf(err)
}
