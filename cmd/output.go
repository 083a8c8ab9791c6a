package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/faceverify/internal/pipeline"
)

// outcomeJSON is the machine-readable form of a single verification.
type outcomeJSON struct {
	ID              string  `json:"id"`
	Photo           string  `json:"photo"`
	RequestID       string  `json:"request_id,omitempty"`
	Verified        bool    `json:"verified"`
	Distance        float64 `json:"distance"`
	Threshold       float64 `json:"threshold"`
	Model           string  `json:"model,omitempty"`
	Message         string  `json:"message,omitempty"`
	IDAngle         int     `json:"id_angle"`
	PhotoAngle      int     `json:"photo_angle"`
	Composite       string  `json:"composite,omitempty"`
	IdenticalInputs bool    `json:"identical_inputs,omitempty"`
	Error           string  `json:"error,omitempty"`
	ErrorKind       string  `json:"error_kind,omitempty"`
}

func newOutcomeJSON(p pair, out *pipeline.Outcome, err error) outcomeJSON {
	o := outcomeJSON{ID: p.ID, Photo: p.Photo}
	if err != nil {
		o.Error = err.Error()
		if kind := pipeline.KindOf(err); kind != 0 {
			o.ErrorKind = kind.String()
		}
		return o
	}
	o.RequestID = out.RequestID
	o.Verified = out.Result.Verified
	o.Distance = out.Result.Distance
	o.Threshold = out.Result.Threshold
	o.Model = out.Result.Model
	o.Message = out.Message
	o.IDAngle = out.IDAngle
	o.PhotoAngle = out.PhotoAngle
	o.Composite = out.CompositeURL
	if o.Composite == "" {
		o.Composite = out.CompositeKey
	}
	o.IdenticalInputs = out.IdenticalInputs
	return o
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// formatDuration formats a duration as a human-readable string
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
