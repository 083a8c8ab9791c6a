// Package pipeline runs one ID-vs-selfie verification request end to end.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/facematch"
	"github.com/kozaktomas/faceverify/internal/fingerprint"
	"github.com/kozaktomas/faceverify/internal/logging"
	"github.com/kozaktomas/faceverify/internal/storage"
	"github.com/kozaktomas/faceverify/internal/telemetry"
	"github.com/kozaktomas/faceverify/internal/verify"
)

const (
	MessageMatch   = "The faces MATCH."
	MessageNoMatch = "Faces DO NOT match."
)

// Request holds the two encoded uploads. Names are optional sanitized upload
// filenames used when uploads are archived.
type Request struct {
	IDImage    []byte
	PhotoImage []byte
	IDName     string
	PhotoName  string
}

// Outcome is the result of a successful run.
type Outcome struct {
	RequestID       string
	Result          verify.Result
	Message         string
	IDAngle         int
	PhotoAngle      int
	CompositeKey    string // empty when the composite could not be built or saved
	CompositeURL    string
	IdenticalInputs bool
}

// Pipeline wires the locator, the verification engine and the audit store.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	locator        *facematch.Locator
	engine         *verify.Engine
	store          storage.Store
	debugRotations bool
	saveUploads    bool
	tracer         trace.Tracer
	newID          func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebugRotations saves every rotated candidate under the rotated area.
func WithDebugRotations(enabled bool) Option {
	return func(p *Pipeline) {
		p.debugRotations = enabled
	}
}

// WithUploads archives every decoded input under the uploads area.
func WithUploads(enabled bool) Option {
	return func(p *Pipeline) {
		p.saveUploads = enabled
	}
}

// WithRequestIDs replaces the ULID generator.
func WithRequestIDs(newID func() string) Option {
	return func(p *Pipeline) {
		p.newID = newID
	}
}

// New creates a pipeline. A nil store discards all audit output.
func New(locator *facematch.Locator, engine *verify.Engine, store storage.Store, opts ...Option) *Pipeline {
	if store == nil {
		store = storage.Discard{}
	}
	p := &Pipeline{
		locator: locator,
		engine:  engine,
		store:   store,
		tracer:  telemetry.Tracer("github.com/kozaktomas/faceverify/internal/pipeline"),
		newID:   newRequestID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}

// face is the per-input state carried between stages.
type face struct {
	input    *image.RGBA
	location *facematch.Location
	crop     facematch.Crop
}

// Run decodes, locates and extracts the ID face, then the photo face, and asks the
// engine for a decision. The photo is not touched when the ID fails.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	requestID := p.newID()
	log := logging.FromContext(ctx).WithField("request_id", requestID)
	ctx = logging.WithContext(ctx, log)

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(attribute.String("request_id", requestID)))
	defer span.End()

	out, err := p.run(ctx, requestID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Warn("verification failed")
		return nil, err
	}
	log.WithFields(logging.Fields{
		"verified": out.Result.Verified,
		"distance": out.Result.Distance,
	}).Info("verification finished")
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, requestID string, req Request) (*Outcome, error) {
	id, err := p.face(ctx, requestID, req.IDImage, req.IDName, SubjectID, "id")
	if err != nil {
		return nil, err
	}
	photo, err := p.face(ctx, requestID, req.PhotoImage, req.PhotoName, SubjectPhoto, "photo")
	if err != nil {
		return nil, err
	}

	vctx, vspan := p.tracer.Start(ctx, "verify")
	res, err := p.engine.Verify(vctx, id.crop, photo.crop)
	vspan.End()
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, &Error{Kind: KindCapability, Err: err}
	}

	out := &Outcome{
		RequestID:  requestID,
		Result:     *res,
		Message:    MessageNoMatch,
		IDAngle:    id.location.Angle,
		PhotoAngle: photo.location.Angle,
	}
	if res.Verified {
		out.Message = MessageMatch
	}

	out.CompositeKey, out.CompositeURL = p.composite(ctx, id.crop, photo.crop)

	idHash := fingerprint.HashImage(id.input)
	photoHash := fingerprint.HashImage(photo.input)
	out.IdenticalInputs = fingerprint.Identical(idHash, photoHash, constants.IdenticalInputHashDistance)
	if out.IdenticalInputs {
		logging.FromContext(ctx).WithFields(logging.Fields{
			"id_hash":    idHash.String(),
			"photo_hash": photoHash.String(),
		}).Warn("ID and photo look like the same picture")
	}

	return out, nil
}

// face runs decode, locate and extract for one input.
func (p *Pipeline) face(ctx context.Context, requestID string, data []byte, name string, subject Subject, tag string) (*face, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, &Error{Kind: KindInputUnreadable, Subject: subject, Err: err}
	}
	if p.saveUploads {
		p.save(ctx, storage.Key(constants.UploadsArea, requestID, uploadName(name, tag)), img)
	}

	var sink facematch.DebugSink
	if p.debugRotations {
		sink = p.rotationSink(requestID)
	}

	lctx, lspan := p.tracer.Start(ctx, "locate", trace.WithAttributes(attribute.String("tag", tag)))
	loc, err := p.locator.Locate(lctx, img, tag, sink)
	lspan.End()
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, &Error{Kind: KindCapability, Subject: subject, Err: err}
	}
	if loc == nil {
		return nil, &Error{Kind: KindNoFace, Subject: subject, Err: ErrNoFace}
	}

	crop := facematch.ExtractFace(loc.Region, loc.Image)
	if crop.Empty() {
		return nil, &Error{
			Kind:    KindDegenerateCrop,
			Subject: subject,
			Err:     fmt.Errorf("region %+v at %d degrees: %w", loc.Region, loc.Angle, facematch.ErrEmptyCrop),
		}
	}

	p.save(ctx, storage.Key(constants.MatchedArea, requestID, tag+"_face.jpg"), crop.Image)
	return &face{input: img, location: loc, crop: crop}, nil
}

// composite builds and stores the side-by-side audit image. Failures are logged
// and leave the key empty.
func (p *Pipeline) composite(ctx context.Context, id, photo facematch.Crop) (string, string) {
	ctx, span := p.tracer.Start(ctx, "composite")
	defer span.End()

	img, err := facematch.Composite(id, photo)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("could not build composite")
		return "", ""
	}

	key := storage.Key(constants.OutputsArea, uuid.NewString()+".jpg")
	if !p.save(ctx, key, img) {
		return "", ""
	}
	return key, p.store.URL(ctx, key)
}

func (p *Pipeline) rotationSink(requestID string) facematch.DebugSink {
	return func(ctx context.Context, tag string, angle int, img image.Image) {
		p.save(ctx, storage.Key(constants.RotatedArea, requestID, fmt.Sprintf("%s_%d.jpg", tag, angle)), img)
	}
}

// save writes an audit artifact. Storage errors never fail the request.
func (p *Pipeline) save(ctx context.Context, key string, img image.Image) bool {
	if err := p.store.Save(ctx, key, img); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("failed to save image")
		return false
	}
	return true
}

// uploadName keeps the upload's base name but stores it as PNG or JPEG.
func uploadName(name, tag string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = tag
	}
	if strings.EqualFold(path.Ext(name), ".png") {
		return base + ".png"
	}
	return base + ".jpg"
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
