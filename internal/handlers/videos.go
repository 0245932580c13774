package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// VideoHandler implements upload, listing, and management of videos.
type VideoHandler struct {
	Videos         VideoStore
	Media          MediaStorage
	Prober         DurationProber
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// List handles GET /api/v1/videos. An empty query matches all videos; page
// and limit are coerced to positive integers.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	params := repositories.VideoListParams{
		Query:     strings.TrimSpace(q.Get("query")),
		SortField: q.Get("sortBy"),
		SortAsc:   strings.EqualFold(q.Get("sortType"), "asc"),
		Page:      positiveInt(q.Get("page"), 1),
		Limit:     positiveInt(q.Get("limit"), defaultPageLimit),
	}
	if params.Limit > maxPageLimit {
		params.Limit = maxPageLimit
	}

	if ownerID := q.Get("userId"); ownerID != "" {
		parsed, err := uuid.Parse(ownerID)
		if err != nil {
			respondError(ctx, w, http.StatusBadRequest, "userId is not a valid id")
			return
		}
		params.OwnerID = parsed.String()
	}

	page, err := h.Videos.List(ctx, params)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	// An empty page is a successful result, not an error.
	respondData(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := idParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.Videos.FindByIDWithOwner(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("fetch video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch video")
		return
	}

	respondData(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Upload handles POST /api/v1/videos. The duration is probed from the
// uploaded payload itself; the temp spool file is removed on every path.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(registerFormLimit); err != nil {
		logger.Warn("invalid upload form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}
	defer thumbFile.Close()

	tempPath, cleanup, err := spoolToTemp(videoFile, videoHeader.Filename)
	if err != nil {
		logger.Error("spool video upload", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to read video file")
		return
	}
	defer cleanup()

	duration, err := h.Prober.Probe(ctx, tempPath)
	if err != nil {
		logger.Warn("probe video duration", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "could not read video metadata")
		return
	}

	spooled, err := os.Open(tempPath)
	if err != nil {
		logger.Error("reopen spooled video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to read video file")
		return
	}
	defer spooled.Close()

	videoURL, err := storeUpload(ctx, h.Media, "videos", spooled, videoHeader.Filename)
	if err != nil {
		logger.Error("store video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}

	thumbnailURL, err := storeUpload(ctx, h.Media, "thumbnails", thumbFile, thumbHeader.Filename)
	if err != nil {
		h.discard(ctx, videoURL)
		logger.Error("store thumbnail", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      actor.ID,
		Title:        title,
		Description:  description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Duration:     duration,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		h.discard(ctx, videoURL, thumbnailURL)
		logger.Error("create video record", "error", err, "ownerId", actor.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save video")
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video uploaded successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. Only the owner may update.
// A replacement thumbnail follows the two-phase swap: store new, persist row,
// then delete old; a failed persist deletes the new object, and a failed old
// delete is logged with the orphaned location.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID, err := idParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("fetch video for update", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update video")
		return
	}

	if video.OwnerID != actor.ID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may update this video")
		return
	}

	var title, description, oldThumbnail, newThumbnail string
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(registerFormLimit); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		title = strings.TrimSpace(r.FormValue("title"))
		description = strings.TrimSpace(r.FormValue("description"))

		if thumbFile, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
			defer thumbFile.Close()
			newThumbnail, err = storeUpload(ctx, h.Media, "thumbnails", thumbFile, thumbHeader.Filename)
			if err != nil {
				logger.Error("store replacement thumbnail", "error", err)
				respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
				return
			}
		}
	} else {
		var req updateVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
		title = strings.TrimSpace(req.Title)
		description = strings.TrimSpace(req.Description)
	}

	if title == "" || description == "" {
		h.discard(ctx, newThumbnail)
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	video.Title = title
	video.Description = description
	if newThumbnail != "" {
		oldThumbnail = video.ThumbnailURL
		video.ThumbnailURL = newThumbnail
	}

	if err := h.Videos.Update(ctx, video); err != nil {
		h.discard(ctx, newThumbnail)
		logger.Error("persist video update", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update video")
		return
	}

	if oldThumbnail != "" {
		if err := h.Media.Delete(ctx, oldThumbnail); err != nil {
			logger.Error("delete replaced thumbnail", "error", err, "orphanedLocation", oldThumbnail)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Only the owner may delete.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID, err := idParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("fetch video for delete", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	if video.OwnerID != actor.ID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may delete this video")
		return
	}

	if err := h.Videos.Delete(ctx, videoID); err != nil {
		logger.Error("delete video record", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	// The record is gone; stored media is removed best-effort, with failures
	// logged so the orphaned objects can be reclaimed.
	h.discard(ctx, video.VideoURL, video.ThumbnailURL)

	respondData(ctx, w, http.StatusOK, nil, "video deleted successfully")
}

// ToggleStatus handles PATCH /api/v1/videos/{videoId}/toggle-status.
func (h VideoHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	actor, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videoID, err := idParam(r, "videoId")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("fetch video for toggle", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to toggle video status")
		return
	}

	if video.OwnerID != actor.ID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may change this video's status")
		return
	}

	toggled, err := h.Videos.TogglePublished(ctx, videoID)
	if err != nil {
		logger.Error("toggle publish flag", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to toggle video status")
		return
	}

	respondData(ctx, w, http.StatusOK, toggled, "video status changed successfully")
}

// discard best-effort deletes stored objects after a failed multi-step write.
func (h VideoHandler) discard(ctx context.Context, locations ...string) {
	for _, location := range locations {
		if location == "" {
			continue
		}
		if err := h.Media.Delete(ctx, location); err != nil {
			logging.FromContext(ctx).Error("discard stored object", "error", err, "location", location)
		}
	}
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
