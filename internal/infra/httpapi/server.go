// Package httpapi exposes the inbound HTTP surface: the transcoding
// and identity webhooks, and a health check. Signatures are verified
// before any payload is parsed; malformed payloads are rejected before
// any state mutation.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"second_saturday/internal/app"
	"second_saturday/internal/domain/video"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type Server struct {
	videoService          *app.VideoService
	userService           *app.UserService
	muxWebhookSecret      string
	identityWebhookSecret string
	logger                *logrus.Logger
}

func NewServer(
	videoService *app.VideoService,
	userService *app.UserService,
	muxWebhookSecret, identityWebhookSecret string,
	logger *logrus.Logger,
) *Server {
	return &Server{
		videoService:          videoService,
		userService:           userService,
		muxWebhookSecret:      muxWebhookSecret,
		identityWebhookSecret: identityWebhookSecret,
		logger:                logger,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/mux-webhook", s.handleMuxWebhook)
	r.Post("/identity-webhook", s.handleIdentityWebhook)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// muxEvent is the envelope of a transcoding webhook.
type muxEvent struct {
	Type string `json:"type"`
	Data struct {
		ID          string  `json:"id"`
		UploadID    string  `json:"upload_id"`
		Duration    float64 `json:"duration"`
		AspectRatio string  `json:"aspect_ratio"`
		PlaybackIDs []struct {
			ID string `json:"id"`
		} `json:"playback_ids"`
		Errors struct {
			Messages []string `json:"messages"`
		} `json:"errors"`
	} `json:"data"`
}

func (s *Server) handleMuxWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := s.verifiedBody(w, r, "Mux-Signature", s.muxWebhookSecret)
	if !ok {
		return
	}

	var ev muxEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.logger.WithError(err).Warn("Malformed transcoding webhook payload")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	domainEvent, ok := muxEventToDomain(ev)
	if !ok {
		// Unknown event types are acknowledged so the provider stops
		// retrying them.
		s.logger.WithField("type", ev.Type).Debug("Ignoring transcoding event")
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if err := s.videoService.HandleEvent(r.Context(), domainEvent); err != nil {
		s.logger.WithError(err).WithField("type", ev.Type).Error("Failed to apply transcoding event")
		http.Error(w, "event handling failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func muxEventToDomain(ev muxEvent) (video.Event, bool) {
	switch ev.Type {
	case "video.upload.asset_created":
		return video.Event{
			Kind:     video.EventAssetCreated,
			UploadID: ev.Data.UploadID,
			AssetID:  ev.Data.ID,
		}, true
	case "video.asset.ready":
		e := video.Event{
			Kind:        video.EventAssetReady,
			AssetID:     ev.Data.ID,
			Duration:    ev.Data.Duration,
			AspectRatio: ev.Data.AspectRatio,
		}
		if len(ev.Data.PlaybackIDs) > 0 {
			e.PlaybackID = ev.Data.PlaybackIDs[0].ID
		}
		return e, true
	case "video.asset.errored":
		e := video.Event{
			Kind:    video.EventAssetErrored,
			AssetID: ev.Data.ID,
		}
		if len(ev.Data.Errors.Messages) > 0 {
			e.Message = ev.Data.Errors.Messages[0]
		}
		return e, true
	}
	return video.Event{}, false
}

// identityEvent is the envelope of an identity-provider webhook.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

func (s *Server) handleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := s.verifiedBody(w, r, "Identity-Signature", s.identityWebhookSecret)
	if !ok {
		return
	}

	var ev identityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.logger.WithError(err).Warn("Malformed identity webhook payload")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if ev.Data.ID == "" {
		http.Error(w, "missing subject id", http.StatusBadRequest)
		return
	}

	email := ""
	if len(ev.Data.EmailAddresses) > 0 {
		email = ev.Data.EmailAddresses[0].EmailAddress
	}
	name := joinName(ev.Data.FirstName, ev.Data.LastName)

	var err error
	switch ev.Type {
	case "user.created":
		_, err = s.userService.Ensure(r.Context(), ev.Data.ID, email, name, ev.Data.ImageURL)
	case "user.updated":
		_, err = s.userService.Sync(r.Context(), ev.Data.ID, email, name, ev.Data.ImageURL)
	case "user.deleted":
		err = s.userService.DeleteBySubject(r.Context(), ev.Data.ID)
	default:
		s.logger.WithField("type", ev.Type).Debug("Ignoring identity event")
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("type", ev.Type).Error("Failed to apply identity event")
		http.Error(w, "event handling failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// verifiedBody reads the request body and checks its signature. On
// failure it writes the error response and returns ok=false.
func (s *Server) verifiedBody(w http.ResponseWriter, r *http.Request, header, secret string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return nil, false
	}
	if err := verifySignature(secret, r.Header.Get(header), body, time.Now().UTC()); err != nil {
		s.logger.WithError(err).Warn("Webhook signature rejected")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

func joinName(first, last string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
