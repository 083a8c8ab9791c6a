package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kozaktomas/faceverify/internal/config"
	"github.com/kozaktomas/faceverify/internal/detector"
	"github.com/kozaktomas/faceverify/internal/facematch"
	"github.com/kozaktomas/faceverify/internal/fingerprint"
	"github.com/kozaktomas/faceverify/internal/logging"
	"github.com/kozaktomas/faceverify/internal/pipeline"
	"github.com/kozaktomas/faceverify/internal/storage"
	"github.com/kozaktomas/faceverify/internal/telemetry"
	"github.com/kozaktomas/faceverify/internal/verify"
	"github.com/kozaktomas/faceverify/internal/web"
	"github.com/kozaktomas/faceverify/internal/worker"
)

// backend is everything a command needs to run verifications.
type backend struct {
	pipeline *pipeline.Pipeline
	// localDir is the storage root when storage is local, "" otherwise.
	localDir string
	closers  []io.Closer
	shutdown func(context.Context) error
}

// Close releases capability handles and flushes traces.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i].Close())
	}
	if b.shutdown != nil {
		errs = append(errs, b.shutdown(context.Background()))
	}
	return errors.Join(errs...)
}

// buildBackend wires storage, detector, verifier and tracing from the configuration.
func buildBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	shutdown, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	b.shutdown = shutdown

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}
	if local, isLocal := store.(*storage.Local); isLocal {
		b.localDir = local.Root()
	}

	client := fingerprint.NewClient(cfg.Embedding.URL, cfg.Verifier.Model)

	var det facematch.Detector = client
	var dlib *detector.Dlib
	if needsDlib(cfg) {
		dlib, err = detector.NewDlib(cfg.Detector.ModelsDir)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, dlib)
	}
	if cfg.Detector.Backend == "dlib" {
		det = dlib
	}

	var verifier verify.Verifier
	switch cfg.Verifier.Backend {
	case "embedding":
		mt, _ := cfg.ModelThreshold(cfg.Verifier.Model)
		var embedder verify.Embedder = client
		if cfg.Verifier.Model == "dlib" {
			embedder = dlib
		}
		verifier, err = verify.NewEmbeddingVerifier(embedder, cfg.Verifier.Model, mt.Metric, mt.Threshold)
		if err != nil {
			return nil, err
		}
	case "worker":
		w, err := worker.Start(cfg.Worker.Command, cfg.Worker.Script, cfg.Verifier.Model)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, w)
		verifier = w
	default:
		verifier = client
	}

	engine := verify.NewEngine(verifier, verify.WithThreshold(cfg.Verifier.Threshold))
	b.pipeline = pipeline.New(facematch.NewLocator(det), engine, store,
		pipeline.WithDebugRotations(cfg.Storage.DebugRotations),
		pipeline.WithUploads(cfg.Storage.SaveUploads),
	)

	logging.Logger().WithFields(logging.Fields{
		"detector": cfg.Detector.Backend,
		"verifier": cfg.Verifier.Backend,
		"model":    cfg.Verifier.Model,
		"storage":  cfg.Storage.Backend,
	}).Info("backend ready")

	ok = true
	return b, nil
}

// needsDlib reports whether the dlib models must be loaded: for detection, or
// as the embedder of the embedding verifier.
func needsDlib(cfg *config.Config) bool {
	return cfg.Detector.Backend == "dlib" ||
		(cfg.Verifier.Backend == "embedding" && cfg.Verifier.Model == "dlib")
}

func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3cfg := cfg.Storage.S3
		return storage.NewS3(storage.S3Config{
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			Endpoint:        s3cfg.Endpoint,
		})
	default:
		return storage.NewLocal(cfg.Storage.Dir, web.OutputsPrefix)
	}
}
