// Package google maps Google API failures to the service's error kinds.
package google

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/camdenhq/rapport/internal/model"
)

// API names an individual Google API for actionable error messages.
type API struct {
	Name      string
	EnableURL string
}

var (
	Gmail = API{
		Name:      "Gmail",
		EnableURL: "https://console.cloud.google.com/apis/library/gmail.googleapis.com",
	}
	Calendar = API{
		Name:      "Calendar",
		EnableURL: "https://console.cloud.google.com/apis/library/calendar-json.googleapis.com",
	}
)

// ClassifyError turns a googleapi.Error into the matching typed error:
// expired auth for 401, a human-actionable ProviderError for 403 and 429.
// Anything else passes through wrapped.
func ClassifyError(api API, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	message := gerr.Message
	if message == "" {
		message = gerr.Error()
	}

	switch gerr.Code {
	case http.StatusForbidden:
		if strings.Contains(message, "has not been used in project") {
			return model.NewProviderError(gerr.Code,
				"%s API is not enabled for your Google Cloud project. Enable it at %s and wait a few minutes.",
				api.Name, api.EnableURL)
		}
		return model.NewProviderError(gerr.Code, "Google API access denied: %s", message)
	case http.StatusUnauthorized:
		return fmt.Errorf("google API returned 401: %w", model.ErrAuthExpired)
	case http.StatusTooManyRequests:
		return model.NewProviderError(gerr.Code, "Google API rate limit exceeded. Please wait a few minutes and try again.")
	default:
		return fmt.Errorf("google API error (%d): %s", gerr.Code, message)
	}
}
