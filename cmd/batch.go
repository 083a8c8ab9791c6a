package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch <pairs.csv>",
	Short: "Verify many ID/photo pairs from a CSV file",
	Long: `Verify pairs listed in a CSV file with two columns: ID image path and photo
path. A header row whose first cell is "id" or starts with "id_" is skipped. Relative paths are
resolved against the CSV file's directory.

Examples:
  faceverify batch pairs.csv
  faceverify batch pairs.csv --concurrency 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel verifications")
	batchCmd.Flags().Bool("json", false, "Output as JSON")
}

// pair is one ID/photo file pair.
type pair struct {
	ID    string
	Photo string
}

type batchSummary struct {
	Results  []outcomeJSON `json:"results"`
	Total    int           `json:"total"`
	Matched  int           `json:"matched"`
	Rejected int           `json:"rejected"`
	Failed   int           `json:"failed"`
	Duration string        `json:"duration"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	pairs, err := readPairsFile(args[0])
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no pairs found in %s", args[0])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	b, err := buildBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer b.Close()

	if !jsonOutput {
		fmt.Printf("Verifying %d pairs with concurrency %d\n", len(pairs), concurrency)
	}

	start := time.Now()
	bar := newBatchProgressBar(len(pairs), jsonOutput)
	results := verifyPairsConcurrently(ctx, b.pipeline, pairs, concurrency, bar)
	summary := summarize(results, time.Since(start))

	if jsonOutput {
		return outputJSON(summary)
	}
	printBatchSummary(summary)
	return nil
}

// readPairsFile parses the pairs CSV at path.
func readPairsFile(path string) ([]pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pairs file: %w", err)
	}
	defer f.Close()

	pairs, err := parsePairs(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range pairs {
		pairs[i].ID = resolvePath(base, pairs[i].ID)
		pairs[i].Photo = resolvePath(base, pairs[i].Photo)
	}
	return pairs, nil
}

// parsePairs reads two-column CSV records. Blank lines and a leading header are skipped.
func parsePairs(r io.Reader) ([]pair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var pairs []pair
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d", line, len(record))
		}
		id, photo := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if len(pairs) == 0 && isHeader(id) {
			continue
		}
		if id == "" || photo == "" {
			return nil, fmt.Errorf("line %d: empty path", line)
		}
		pairs = append(pairs, pair{ID: id, Photo: photo})
	}
	return pairs, nil
}

func isHeader(cell string) bool {
	cell = strings.ToLower(cell)
	return cell == "id" || strings.HasPrefix(cell, "id_")
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// verifyPairsConcurrently runs every pair through the pipeline, keeping input order in the results.
func verifyPairsConcurrently(ctx context.Context, p *pipeline.Pipeline, pairs []pair, concurrency int, bar *progressbar.ProgressBar) []outcomeJSON {
	results := make([]outcomeJSON, len(pairs))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range pairs {
		wg.Add(1)
		go func(idx int, pr pair) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := verifyPair(ctx, p, pr)
			results[idx] = newOutcomeJSON(pr, out, err)

			if bar != nil {
				bar.Add(1)
			}
		}(i, pairs[i])
	}
	wg.Wait()
	return results
}

func summarize(results []outcomeJSON, elapsed time.Duration) batchSummary {
	s := batchSummary{Results: results, Total: len(results), Duration: formatDuration(elapsed)}
	for _, r := range results {
		switch {
		case r.Error != "":
			s.Failed++
		case r.Verified:
			s.Matched++
		default:
			s.Rejected++
		}
	}
	return s
}

// newBatchProgressBar creates a progress bar, or nil if JSON output.
func newBatchProgressBar(count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Verifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("pairs"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func printBatchSummary(s batchSummary) {
	fmt.Println()
	for _, r := range s.Results {
		switch {
		case r.Error != "":
			fmt.Printf("  ERROR  %s / %s: %s\n", r.ID, r.Photo, r.Error)
		case r.Verified:
			fmt.Printf("  MATCH  %s / %s (distance %.4f)\n", r.ID, r.Photo, r.Distance)
		default:
			fmt.Printf("  NO     %s / %s (distance %.4f)\n", r.ID, r.Photo, r.Distance)
		}
	}
	fmt.Printf("\nTotal: %d  Matched: %d  Rejected: %d  Failed: %d  Took: %s\n",
		s.Total, s.Matched, s.Rejected, s.Failed, s.Duration)
}
