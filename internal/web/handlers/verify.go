package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/logging"
	"github.com/kozaktomas/faceverify/internal/pipeline"
)

const (
	errMissingImages   = "Please select both images."
	errMissingFilename = "One of the images has no filename."
	errUnsupportedType = "Only JPG, JPEG, PNG, WEBP are supported."
	errParseForm       = "failed to parse multipart form"
	errTooLarge        = "Upload too large."
)

// Runner executes one verification request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// VerifyHandler handles ID-vs-photo verification uploads.
type VerifyHandler struct {
	runner   Runner
	maxBytes int64
}

// NewVerifyHandler creates a new verify handler.
func NewVerifyHandler(runner Runner) *VerifyHandler {
	return &VerifyHandler{runner: runner, maxBytes: constants.MaxUploadSize}
}

type verifyDetails struct {
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
}

type verifyResponse struct {
	RequestID       string        `json:"request_id"`
	Verified        bool          `json:"verified"`
	Message         string        `json:"message"`
	Details         verifyDetails `json:"details"`
	CompositeURL    string        `json:"composite_url,omitempty"`
	IDAngle         int           `json:"id_angle"`
	PhotoAngle      int           `json:"photo_angle"`
	IdenticalInputs bool          `json:"identical_inputs"`
}

// Verify handles POST /api/v1/verify with multipart fields id_image and photo_image.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, errTooLarge)
			return
		}
		respondError(w, http.StatusBadRequest, errParseForm)
		return
	}
	defer r.MultipartForm.RemoveAll()

	idFile, idStatus := formFile(r.MultipartForm, "id_image")
	photoFile, photoStatus := formFile(r.MultipartForm, "photo_image")
	switch {
	case idStatus == fileMissing || photoStatus == fileMissing:
		respondError(w, http.StatusBadRequest, errMissingImages)
		return
	case idStatus == fileUnnamed || photoStatus == fileUnnamed:
		respondError(w, http.StatusBadRequest, errMissingFilename)
		return
	}

	if !allowedExtension(idFile.Filename) || !allowedExtension(photoFile.Filename) {
		respondError(w, http.StatusBadRequest, errUnsupportedType)
		return
	}

	idData, err := readUpload(idFile)
	if err != nil {
		respondError(w, http.StatusBadRequest, errParseForm)
		return
	}
	photoData, err := readUpload(photoFile)
	if err != nil {
		respondError(w, http.StatusBadRequest, errParseForm)
		return
	}

	req := pipeline.Request{
		IDImage:    idData,
		PhotoImage: photoData,
		IDName:     SecureFilename(idFile.Filename),
		PhotoName:  SecureFilename(photoFile.Filename),
	}
	logging.FromContext(r.Context()).WithFields(logging.Fields{
		"id_file":    sanitizeForLog(idFile.Filename),
		"photo_file": sanitizeForLog(photoFile.Filename),
	}).Debug("verify request")

	out, err := h.runner.Run(r.Context(), req)
	if err != nil {
		status, message := errorResponse(err)
		respondError(w, status, message)
		return
	}

	respondJSON(w, http.StatusOK, verifyResponse{
		RequestID: out.RequestID,
		Verified:  out.Result.Verified,
		Message:   out.Message,
		Details: verifyDetails{
			Distance:  out.Result.Distance,
			Threshold: out.Result.Threshold,
			Model:     out.Result.Model,
		},
		CompositeURL:    out.CompositeURL,
		IDAngle:         out.IDAngle,
		PhotoAngle:      out.PhotoAngle,
		IdenticalInputs: out.IdenticalInputs,
	})
}

// errorResponse maps a pipeline failure to a status code and user-facing message.
func errorResponse(err error) (int, string) {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case pipeline.KindInputUnreadable:
			return http.StatusUnprocessableEntity, fmt.Sprintf("Could not read %s image.", pe.Subject)
		case pipeline.KindNoFace:
			return http.StatusUnprocessableEntity, fmt.Sprintf("No face detected in %s image.", pe.Subject)
		case pipeline.KindDegenerateCrop:
			return http.StatusUnprocessableEntity, fmt.Sprintf("Could not extract a face from %s image.", pe.Subject)
		case pipeline.KindCapability:
			return http.StatusBadGateway, fmt.Sprintf("Processing error: %v", pe.Err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "Processing error: request timed out"
	}
	return http.StatusInternalServerError, fmt.Sprintf("Processing error: %v", err)
}

type fileStatus int

const (
	filePresent fileStatus = iota
	fileMissing
	fileUnnamed
)

// formFile returns the first file for field. A part sent without a filename ends up
// among the plain values, which is reported as unnamed.
func formFile(form *multipart.Form, field string) (*multipart.FileHeader, fileStatus) {
	if files := form.File[field]; len(files) > 0 {
		if files[0].Filename == "" {
			return nil, fileUnnamed
		}
		return files[0], filePresent
	}
	if _, ok := form.Value[field]; ok {
		return nil, fileUnnamed
	}
	return nil, fileMissing
}

func allowedExtension(filename string) bool {
	_, ok := constants.AllowedExtensions[fileExtension(filename)]
	return ok
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s", fh.Filename)
	}
	defer file.Close()
	return io.ReadAll(file)
}
