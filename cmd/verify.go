package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceverify/internal/pipeline"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <id-image> <photo-image>",
	Short: "Verify a single ID image against a photo",
	Long: `Run one verification from the command line.
Both images are read from disk, faces are located with rotation retry and
compared. The side-by-side image is written to the configured storage.

Exit status is 0 on a match, 2 on no match and 1 on any error.`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool("json", false, "Output as JSON")
	verifyCmd.Flags().Duration("timeout", 2*time.Minute, "Maximum time for the verification")
}

func runVerify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), mustGetDuration(cmd, "timeout"))
	defer cancel()

	b, err := buildBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer b.Close()

	p := pair{ID: args[0], Photo: args[1]}
	start := time.Now()
	out, err := verifyPair(ctx, b.pipeline, p)
	elapsed := time.Since(start)

	if jsonOutput {
		if jerr := outputJSON(newOutcomeJSON(p, out, err)); jerr != nil {
			return jerr
		}
		if err != nil {
			return err
		}
	} else {
		if err != nil {
			return err
		}
		printOutcome(out, elapsed)
	}

	if !out.Result.Verified {
		b.Close()
		os.Exit(2)
	}
	return nil
}

// verifyPair reads both files and runs one verification.
func verifyPair(ctx context.Context, p *pipeline.Pipeline, pr pair) (*pipeline.Outcome, error) {
	idData, err := os.ReadFile(pr.ID)
	if err != nil {
		return nil, fmt.Errorf("reading ID image: %w", err)
	}
	photoData, err := os.ReadFile(pr.Photo)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return p.Run(ctx, pipeline.Request{
		IDImage:    idData,
		PhotoImage: photoData,
		IDName:     filepath.Base(pr.ID),
		PhotoName:  filepath.Base(pr.Photo),
	})
}

func printOutcome(out *pipeline.Outcome, elapsed time.Duration) {
	fmt.Println(out.Message)
	fmt.Printf("  Request:   %s\n", out.RequestID)
	fmt.Printf("  Distance:  %.4f (threshold %.4f, model %s)\n", out.Result.Distance, out.Result.Threshold, out.Result.Model)
	fmt.Printf("  Rotation:  ID %d°, photo %d°\n", out.IDAngle, out.PhotoAngle)
	if out.CompositeURL != "" {
		fmt.Printf("  Composite: %s\n", out.CompositeURL)
	}
	if out.IdenticalInputs {
		fmt.Println("  Warning:   ID and photo are the same image")
	}
	fmt.Printf("  Took:      %s\n", formatDuration(elapsed))
}
