package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/faceverify/internal/config"
	"github.com/kozaktomas/faceverify/internal/pipeline"
	"github.com/kozaktomas/faceverify/internal/verify"
)

func TestParsePairs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []pair
		wantErr bool
	}{
		{
			name:  "plain",
			input: "a.jpg,b.jpg\nc.png, d.png\n",
			want:  []pair{{"a.jpg", "b.jpg"}, {"c.png", "d.png"}},
		},
		{
			name:  "header skipped",
			input: "id_image,photo_image\na.jpg,b.jpg\n",
			want:  []pair{{"a.jpg", "b.jpg"}},
		},
		{
			name:  "comments skipped",
			input: "# pairs\na.jpg,b.jpg\n",
			want:  []pair{{"a.jpg", "b.jpg"}},
		},
		{
			name:    "wrong column count",
			input:   "a.jpg,b.jpg,c.jpg\n",
			wantErr: true,
		},
		{
			name:    "empty path",
			input:   "a.jpg,\n",
			wantErr: true,
		},
		{
			name:  "empty file",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePairs(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d pairs, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pair %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadPairsFile_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairs.csv")
	if err := os.WriteFile(path, []byte("id.jpg,/abs/photo.jpg\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pairs, err := readPairsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].ID != filepath.Join(dir, "id.jpg") {
		t.Errorf("ID = %q", pairs[0].ID)
	}
	if pairs[0].Photo != "/abs/photo.jpg" {
		t.Errorf("Photo = %q", pairs[0].Photo)
	}
}

func TestReadPairsFile_Missing(t *testing.T) {
	if _, err := readPairsFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestNewOutcomeJSON(t *testing.T) {
	p := pair{ID: "id.jpg", Photo: "photo.jpg"}

	out := &pipeline.Outcome{
		RequestID:    "req",
		Result:       verify.Result{Verified: true, Distance: 0.1234, Threshold: 0.68, Model: "VGG-Face"},
		Message:      pipeline.MessageMatch,
		IDAngle:      90,
		CompositeKey: "outputs/req/x.jpg",
	}
	got := newOutcomeJSON(p, out, nil)
	if !got.Verified || got.Distance != 0.1234 || got.IDAngle != 90 {
		t.Errorf("unexpected outcome: %+v", got)
	}
	if got.Composite != "outputs/req/x.jpg" {
		t.Errorf("Composite = %q, want key fallback", got.Composite)
	}

	failed := newOutcomeJSON(p, nil, &pipeline.Error{Kind: pipeline.KindNoFace, Subject: pipeline.SubjectID, Err: pipeline.ErrNoFace})
	if failed.ErrorKind != "no face" {
		t.Errorf("ErrorKind = %q, want %q", failed.ErrorKind, "no face")
	}

	plain := newOutcomeJSON(p, nil, errors.New("reading ID image: missing"))
	if plain.ErrorKind != "" || plain.Error == "" {
		t.Errorf("unexpected plain error outcome: %+v", plain)
	}
}

func TestSummarize(t *testing.T) {
	s := summarize([]outcomeJSON{
		{Verified: true},
		{Verified: false},
		{Error: "boom"},
		{Verified: true},
	}, time.Second)

	if s.Total != 4 || s.Matched != 2 || s.Rejected != 1 || s.Failed != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestNeedsDlib(t *testing.T) {
	tests := []struct {
		name     string
		detector string
		verifier string
		model    string
		want     bool
	}{
		{"http everywhere", "http", "http", "VGG-Face", false},
		{"dlib detector", "dlib", "http", "VGG-Face", true},
		{"dlib embeddings", "http", "embedding", "dlib", true},
		{"embedding with other model", "http", "embedding", "Facenet", false},
		{"http verifier named dlib", "http", "http", "dlib", false},
		{"worker verifier named dlib", "http", "worker", "dlib", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Detector: config.DetectorConfig{Backend: tt.detector},
				Verifier: config.VerifierConfig{Backend: tt.verifier, Model: tt.model},
			}
			if got := needsDlib(cfg); got != tt.want {
				t.Errorf("needsDlib() = %v, want %v", got, tt.want)
			}
		})
	}
}
