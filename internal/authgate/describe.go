package authgate

import (
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/api"
)

// Category groups submission failures for display.
type Category int

const (
	CategoryNone Category = iota
	CategoryValidation
	CategoryNetwork
	CategoryServer
	CategoryNoResponse
	CategoryClient
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryNetwork:
		return "network-unreachable"
	case CategoryServer:
		return "server-error"
	case CategoryNoResponse:
		return "no-response"
	case CategoryClient:
		return "client-error"
	default:
		return "none"
	}
}

// Describe turns a login/register failure into a category and the message
// shown to the user. baseURL names the backend in network errors.
func Describe(err error, baseURL string) (Category, string) {
	if err == nil {
		return CategoryNone, ""
	}
	if baseURL == "" {
		baseURL = "backend server"
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return CategoryClient, "Error: " + err.Error()
	}

	switch apiErr.Kind {
	case api.KindNetworkUnreachable:
		return CategoryNetwork, fmt.Sprintf("Network error: Unable to connect to %s. "+
			"Please check your internet connection and verify the backend server is running.", baseURL)
	case api.KindServerRejected:
		msg := apiErr.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return CategoryServer, fmt.Sprintf("Server error (%d): %s", apiErr.Status, msg)
	case api.KindNoResponse:
		return CategoryNoResponse, "No response received from server. Please check if the backend is running."
	default:
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return CategoryClient, "Error: " + msg
	}
}
