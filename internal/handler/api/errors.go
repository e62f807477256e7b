package api

import (
	"errors"
	"net/http"

	"CryptoVision/internal/domain/models"
	xhttp "CryptoVision/pkg/http"
)

// statusFor maps domain error kinds to HTTP statuses.
func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindUnknownAsset, models.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is the metrics label of err.
func errorKind(err error) string {
	if k := models.KindOf(err); k != "" {
		return string(k)
	}
	return "internal"
}

// publicMessage is the client-facing text of err. Internal failures are not
// described to the caller.
func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	var derr *models.Error
	if errors.As(err, &derr) && derr.Err != nil {
		return derr.Err.Error()
	}
	return err.Error()
}

// toAppError converts a domain error for enveloped endpoints.
func toAppError(err error) *xhttp.AppError {
	status := statusFor(err)
	appErr := xhttp.StatusError(status, publicMessage(err))
	var derr *models.Error
	if errors.As(err, &derr) {
		appErr.WithField(derr.Field)
		if derr.Asset != "" {
			appErr.WithParam("asset", derr.Asset)
		}
	}
	return appErr.WithError(err)
}
