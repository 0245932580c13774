package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// SubscriptionHandler implements the channel follow endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	NowFunc       func() time.Time
}

// Toggle handles POST /api/v1/subscriptions/{channelId}: it subscribes the
// caller to the channel, or unsubscribes when the edge already exists.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channelID, err := idParam(r, "channelId")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if channelID == actor.ID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	err = h.Subscriptions.Subscribe(ctx, models.Subscription{
		SubscriberID: actor.ID,
		ChannelID:    channelID,
		CreatedAt:    h.now(),
	})
	switch {
	case err == nil:
		respondData(ctx, w, http.StatusOK, toggleResponse{Subscribed: true}, "subscribed successfully")
	case errors.Is(err, repositories.ErrConflict):
		if err := h.Subscriptions.Unsubscribe(ctx, actor.ID, channelID); err != nil {
			logger.Error("unsubscribe", "error", err, "channelId", channelID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update subscription")
			return
		}
		respondData(ctx, w, http.StatusOK, toggleResponse{Subscribed: false}, "unsubscribed successfully")
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "channel not found")
	default:
		logger.Error("subscribe", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update subscription")
	}
}

// Subscribers handles GET /api/v1/subscriptions/{channelId}/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	channelID, err := idParam(r, "channelId")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		logger.Error("list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch subscribers")
		return
	}

	count, err := h.Subscriptions.CountSubscribers(ctx, channelID)
	if err != nil {
		logger.Error("count subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch subscribers")
		return
	}

	respondData(ctx, w, http.StatusOK, subscribersResponse{
		Count:       count,
		Subscribers: subscribers,
	}, "subscribers fetched successfully")
}

// Subscribed handles GET /api/v1/subscriptions/subscribed: the channels the
// caller follows.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, actor.ID)
	if err != nil {
		logging.FromContext(ctx).Error("list subscribed channels", "error", err, "userId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch subscriptions")
		return
	}

	respondData(ctx, w, http.StatusOK, channels, "subscriptions fetched successfully")
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type toggleResponse struct {
	Subscribed bool `json:"subscribed"`
}

type subscribersResponse struct {
	Count       int                   `json:"count"`
	Subscribers []models.OwnerProfile `json:"subscribers"`
}
