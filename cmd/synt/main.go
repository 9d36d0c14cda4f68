package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cognicore/synt/internal/logging"
	"github.com/cognicore/synt/pkg/synt"
	"github.com/cognicore/synt/pkg/synt/config"
	"github.com/cognicore/synt/pkg/synt/internalerr"
	"github.com/cognicore/synt/pkg/synt/store"
	"github.com/cognicore/synt/pkg/synt/store/redis"
	"github.com/cognicore/synt/pkg/synt/store/sqlite"
)

const usage = `usage: synt <command> [flags]

commands:
  import    load labeled samples (TSV or JSONL) into the corpus
  train     count features and train a classifier
  guess     score text between -1 (negative) and 1 (positive)
  accuracy  evaluate a classifier on held-out samples
  top       list the most frequent words of a label
  purge     drop every cached count, statistic and classifier
`

func main() {
	logging.ConfigureLogging(os.Stderr)
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	switch cmd {
	case "import":
		return runImport(ctx, args, stdin, stdout)
	case "train":
		return runTrain(ctx, args, stdout)
	case "guess":
		return runGuess(ctx, args, stdout)
	case "accuracy":
		return runAccuracy(ctx, args, stdout)
	case "top":
		return runTop(ctx, args, stdout)
	case "purge":
		return runPurge(ctx, args, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// newFlagSet returns a flag set carrying the shared --config flag.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "Config file (default ~/.synt/config.yaml)")
	return fs, configPath
}

func loadComponents(configPath string) (*config.Components, error) {
	return (&config.Loader{ConfigPath: configPath}).Load()
}

// buildEngine opens the corpus and the cache described by comp.
func buildEngine(ctx context.Context, comp *config.Components) (*synt.Synt, error) {
	cfg := comp.Config

	corpus, err := sqlite.OpenSQLite(ctx, cfg.DBFile)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	opts := redis.DefaultOptions()
	opts.Address = cfg.Redis.Host
	opts.Password = cfg.Redis.Password
	opts.DB = cfg.Redis.DB
	cache, err := redis.Open(ctx, opts)
	if err != nil {
		corpus.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	return synt.New(synt.Options{
		Corpus:    corpus,
		Cache:     cache,
		Tokenizer: comp.Tokenizer,
		ChunkSize: cfg.Batch.ChunkSize,
		Workers:   cfg.Batch.Workers,
	}), nil
}

func openEngine(ctx context.Context, configPath string) (*synt.Synt, *config.Components, error) {
	comp, err := loadComponents(configPath)
	if err != nil {
		return nil, nil, err
	}
	engine, err := buildEngine(ctx, comp)
	if err != nil {
		return nil, nil, err
	}
	return engine, comp, nil
}

func runTrain(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("train")
	var (
		name       = fs.String("name", "", "Classifier name (default: the algorithm)")
		classifier = fs.String("classifier", "", "Algorithm (default: first configured)")
		samples    = fs.Int("samples", 0, "Balanced samples to train on (0 = sample limit)")
		best       = fs.Int("best-features", -1, "Top scoring words to keep (-1 = config, 0 = all)")
		purge      = fs.Bool("purge", false, "Flush cached counts before training")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, comp, err := openEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts, err := trainOptions(comp, *name, *classifier, *samples, *best, *purge)
	if err != nil {
		return err
	}

	res, err := engine.Train(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run %s: trained %s (%s) on %d samples with %d best features in %s\n",
		res.RunID, res.Name, res.Algorithm, res.Samples, res.BestFeatures, res.Duration.Round(time.Millisecond))
	return nil
}

// trainOptions resolves CLI flags against the configuration.
func trainOptions(comp *config.Components, name, classifier string, samples, best int, purge bool) (synt.TrainOptions, error) {
	opts := synt.TrainOptions{Name: name, Samples: samples, BestFeatures: best, Purge: purge}
	if best < 0 {
		opts.BestFeatures = comp.Config.BestFeatures
	}

	if classifier == "" {
		opts.Algorithm = comp.Algorithms[0]
		return opts, nil
	}
	for _, a := range comp.Algorithms {
		if string(a) == strings.ToLower(classifier) {
			opts.Algorithm = a
			return opts, nil
		}
	}
	return opts, fmt.Errorf("classifier %q is not enabled in the config: %w", classifier, internalerr.ErrInvalidInput)
}

func runGuess(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("guess")
	name := fs.String("name", "naivebayes", "Classifier name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("guess needs text to score: %w", internalerr.ErrInvalidInput)
	}

	engine, _, err := openEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	score, err := engine.Guess(ctx, *name, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%.4f\n", score)
	return nil
}

func runAccuracy(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("accuracy")
	var (
		name    = fs.String("name", "naivebayes", "Classifier name")
		samples = fs.Int("samples", 1000, "Balanced samples to test on")
		offset  = fs.Int("offset", 0, "Sample offset; use the training size to test on held-out rows")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, _, err := openEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	acc, n, err := engine.Accuracy(ctx, *name, *samples, *offset)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "accuracy: %.2f%% on %d samples\n", acc*100, n)
	return nil
}

func runTop(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("top")
	var (
		labelName = fs.String("label", "positive", "Label to rank")
		n         = fs.Int("n", 20, "Number of words")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	label, err := store.ParseLabel(*labelName)
	if err != nil {
		return err
	}
	if *n <= 0 {
		return nil
	}

	engine, _, err := openEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	words, ok, err := engine.Manager().TopWords(ctx, label, 0, int64(*n-1))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no %s word counts, run train first: %w", label, internalerr.ErrPrecondition)
	}
	for i, w := range words {
		fmt.Fprintf(stdout, "%3d. %-24s %.0f\n", i+1, w.Member, w.Score)
	}
	return nil
}

func runPurge(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("purge")
	if err := fs.Parse(args); err != nil {
		return err
	}

	engine, comp, err := openEngine(ctx, *configPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Manager().Purge(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "purged redis db %d\n", comp.Config.Redis.DB)
	return nil
}
