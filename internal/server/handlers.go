package server

import (
	"net/http"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/tasks"
)

const (
	msgConnectSpotify     = "Connect Spotify"
	msgConnectGoogle      = "Connect Google (YouTube)"
	msgConnectSpotifyLink = "Connect Spotify first"
	msgConnectGoogleLink  = "Connect Google (YouTube) first"
)

type playlistsResponse[T any] struct {
	Playlists []T `json:"playlists"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSourcePlaylists lists the Spotify playlists of the session owner.
func (s *Server) handleSourcePlaylists(w http.ResponseWriter, r *http.Request) {
	token := SessionFrom(r.Context()).AccessToken(models.Spotify)
	if token == "" {
		writeError(w, http.StatusUnauthorized, msgConnectSpotifyLink)
		return
	}

	playlists, err := s.factory.Spotify(token).MyPlaylists(r.Context())
	if err != nil {
		s.logger.Error("failed to list spotify playlists", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	if playlists == nil {
		playlists = []models.PlaylistRef{}
	}
	writeJSON(w, http.StatusOK, playlistsResponse[models.PlaylistRef]{Playlists: playlists})
}

// handleDestinationPlaylists lists the YouTube playlists that hold music.
func (s *Server) handleDestinationPlaylists(w http.ResponseWriter, r *http.Request) {
	token := SessionFrom(r.Context()).AccessToken(models.Google)
	if token == "" {
		writeError(w, http.StatusUnauthorized, msgConnectGoogleLink)
		return
	}

	yt := s.factory.YouTube(token)
	playlists, err := yt.MyPlaylists(r.Context())
	if err != nil {
		s.logger.Error("failed to list youtube playlists", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	music := tasks.MusicOnly(s.classifier.Classify(r.Context(), yt, playlists))
	writeJSON(w, http.StatusOK, playlistsResponse[models.ClassifiedPlaylist]{Playlists: music})
}

// handleTransfer copies a Spotify playlist to YouTube.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	state := SessionFrom(r.Context())
	spotifyToken := state.AccessToken(models.Spotify)
	if spotifyToken == "" {
		writeError(w, http.StatusUnauthorized, msgConnectSpotify)
		return
	}
	googleToken := state.AccessToken(models.Google)
	if googleToken == "" {
		writeError(w, http.StatusUnauthorized, msgConnectGoogle)
		return
	}

	req, err := decodeTransferRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := s.pipeline.Transfer(
		r.Context(),
		s.factory.Spotify(spotifyToken),
		s.factory.YouTube(googleToken),
		tasks.Request{PlaylistID: req.PlaylistID, PlaylistName: req.PlaylistName},
		nil,
	)
	if err != nil {
		s.logger.Error("transfer failed", "playlist", req.PlaylistID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	failed := make([]FailedItem, 0, len(result.FailedItems))
	for _, f := range result.FailedItems {
		artists := f.Artists
		if artists == nil {
			artists = []string{}
		}
		failed = append(failed, FailedItem{Title: f.Title, Artists: artists})
	}

	writeJSON(w, http.StatusOK, TransferResponse{
		CreatedPlaylistID: result.CreatedPlaylistID,
		Total:             result.TotalSourceItems,
		Success:           result.SucceededCount,
		Failed:            failed,
	})
}

// handleTransferReverse copies a YouTube playlist to Spotify.
func (s *Server) handleTransferReverse(w http.ResponseWriter, r *http.Request) {
	state := SessionFrom(r.Context())
	googleToken := state.AccessToken(models.Google)
	if googleToken == "" {
		writeError(w, http.StatusUnauthorized, msgConnectGoogleLink)
		return
	}
	spotifyToken := state.AccessToken(models.Spotify)
	if spotifyToken == "" {
		writeError(w, http.StatusUnauthorized, msgConnectSpotifyLink)
		return
	}

	req, err := decodeTransferRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	result, err := s.pipeline.TransferReverse(
		r.Context(),
		s.factory.YouTube(googleToken),
		s.factory.Spotify(spotifyToken),
		tasks.Request{PlaylistID: req.PlaylistID, PlaylistName: req.PlaylistName},
		nil,
	)
	if err != nil {
		s.logger.Error("reverse transfer failed", "playlist", req.PlaylistID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ReverseResponse{
		CreatedPlaylistID: result.CreatedPlaylistID,
		TotalVideos:       result.TotalSourceItems,
		Added:             result.SucceededCount,
	})
}
