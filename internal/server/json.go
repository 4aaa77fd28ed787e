package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/songbridge/internal/shared"
)

const (
	msgInvalidBody = "Invalid body"
	maxBodyBytes   = 1 << 20
)

// TransferRequest is the body of both transfer endpoints.
type TransferRequest struct {
	PlaylistID   string `json:"playlistId"`
	PlaylistName string `json:"playlistName"`
}

// TransferResponse is the reply of POST /transfer.
type TransferResponse struct {
	CreatedPlaylistID string       `json:"createdPlaylistId"`
	Total             int          `json:"total"`
	Success           int          `json:"success"`
	Failed            []FailedItem `json:"failed"`
}

// FailedItem is a track the forward transfer could not carry over.
type FailedItem struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
}

// ReverseResponse is the reply of POST /transfer-reverse.
type ReverseResponse struct {
	CreatedPlaylistID string `json:"createdPlaylistId"`
	TotalVideos       int    `json:"totalVideos"`
	Added             int    `json:"added"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeTransferRequest reads a [TransferRequest]. Both fields must be present JSON strings with at least
// one non-whitespace character: a missing, null, empty ("") or whitespace-only value is rejected with
// [shared.ErrInvalidInput]. Accepted values are returned as sent, without trimming.
func decodeTransferRequest(w http.ResponseWriter, r *http.Request) (TransferRequest, error) {
	var raw struct {
		PlaylistID   *string `json:"playlistId"`
		PlaylistName *string `json:"playlistName"`
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return TransferRequest{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if blank(raw.PlaylistID) || blank(raw.PlaylistName) {
		return TransferRequest{}, fmt.Errorf("%w: playlistId and playlistName are required", shared.ErrInvalidInput)
	}

	return TransferRequest{PlaylistID: *raw.PlaylistID, PlaylistName: *raw.PlaylistName}, nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// statusFor maps a transfer or listing error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
