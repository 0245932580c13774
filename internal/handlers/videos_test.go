package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
)

func withChiParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func seedVideo(t *testing.T, store *inMemoryVideoStore, ownerID, title string) models.Video {
	t.Helper()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		Description:  "about " + title,
		VideoURL:     "https://media.test/videos/" + title + ".mp4",
		ThumbnailURL: "https://media.test/thumbnails/" + title + ".png",
		Duration:     42.5,
		IsPublished:  true,
	}
	if err := store.Create(t.Context(), video); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

func TestListCoercesPagination(t *testing.T) {
	videos := newInMemoryVideoStore()
	handler := VideoHandler{Videos: videos}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?page=-3&limit=9999&sortType=desc", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if videos.lastParams.Page != 1 {
		t.Fatalf("expected page coerced to 1, got %d", videos.lastParams.Page)
	}
	if videos.lastParams.Limit != maxPageLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxPageLimit, videos.lastParams.Limit)
	}
	if videos.lastParams.SortAsc {
		t.Fatal("expected descending sort")
	}
}

func TestListDefaults(t *testing.T) {
	videos := newInMemoryVideoStore()
	handler := VideoHandler{Videos: videos}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if videos.lastParams.Page != 1 || videos.lastParams.Limit != defaultPageLimit {
		t.Fatalf("unexpected defaults: %+v", videos.lastParams)
	}
	if videos.lastParams.Query != "" || videos.lastParams.OwnerID != "" {
		t.Fatalf("expected a match-all listing, got %+v", videos.lastParams)
	}

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	page, ok := data["videos"].([]any)
	if !ok || len(page) != 0 {
		t.Fatalf("expected an empty videos array, got %v", data["videos"])
	}
}

func TestListFiltersByOwner(t *testing.T) {
	videos := newInMemoryVideoStore()
	owner := uuid.NewString()
	seedVideo(t, videos, owner, "mine")
	seedVideo(t, videos, uuid.NewString(), "theirs")
	handler := VideoHandler{Videos: videos}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?userId="+owner, nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	page := data["videos"].([]any)
	if len(page) != 1 {
		t.Fatalf("expected one owned video, got %d", len(page))
	}
}

func TestListRejectsMalformedOwnerID(t *testing.T) {
	handler := VideoHandler{Videos: newInMemoryVideoStore()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos?userId=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetVideo(t *testing.T) {
	videos := newInMemoryVideoStore()
	ownerID := uuid.NewString()
	videos.owners[ownerID] = models.OwnerProfile{ID: ownerID, Username: "ada"}
	video := seedVideo(t, videos, ownerID, "intro")
	handler := VideoHandler{Videos: videos}

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
		req = withChiParam(req, "videoId", video.ID)
		rec := httptest.NewRecorder()
		handler.Get(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		envelope := decodeEnvelope(t, rec)
		data := envelope["data"].(map[string]any)
		owner, ok := data["owner"].(map[string]any)
		if !ok || owner["username"] != "ada" {
			t.Fatalf("expected joined owner profile, got %v", data["owner"])
		}
	})

	t.Run("missing", func(t *testing.T) {
		missing := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+missing, nil)
		req = withChiParam(req, "videoId", missing)
		rec := httptest.NewRecorder()
		handler.Get(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/garbage", nil)
		req = withChiParam(req, "videoId", "garbage")
		rec := httptest.NewRecorder()
		handler.Get(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func uploadForm(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	body, contentType := registerForm(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestUploadVideo(t *testing.T) {
	videos := newInMemoryVideoStore()
	mediaStore := &fakeMediaStorage{}
	actor := models.User{ID: uuid.NewString(), Username: "ada"}
	handler := VideoHandler{Videos: videos, Media: mediaStore, Prober: fakeProber{duration: 93.4}}

	req := uploadForm(t, map[string]string{
		"title":       "My first video",
		"description": "hello world",
	}, map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"})
	req = req.WithContext(middleware.WithUser(req.Context(), actor))
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	if data["duration"] != 93.4 {
		t.Fatalf("expected probed duration, got %v", data["duration"])
	}
	if data["ownerId"] != actor.ID {
		t.Fatalf("expected owner %s, got %v", actor.ID, data["ownerId"])
	}
	if data["isPublished"] != true {
		t.Fatal("expected new uploads to start published")
	}
	if len(mediaStore.saved) != 2 {
		t.Fatalf("expected video and thumbnail stored, got %d objects", len(mediaStore.saved))
	}
	if len(videos.videos) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(videos.videos))
	}
}

func TestUploadRejectsUnreadableMedia(t *testing.T) {
	videos := newInMemoryVideoStore()
	mediaStore := &fakeMediaStorage{}
	handler := VideoHandler{
		Videos: videos,
		Media:  mediaStore,
		Prober: fakeProber{err: media.ErrUnreadableMedia},
	}

	req := uploadForm(t, map[string]string{
		"title":       "broken",
		"description": "corrupt payload",
	}, map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"})
	req = req.WithContext(middleware.WithUser(req.Context(), models.User{ID: uuid.NewString()}))
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mediaStore.saved) != 0 {
		t.Fatalf("nothing should reach the media store, saved=%v", mediaStore.saved)
	}
	if len(videos.videos) != 0 {
		t.Fatal("no record should be persisted")
	}
}

func TestUploadValidation(t *testing.T) {
	handler := VideoHandler{Videos: newInMemoryVideoStore(), Media: &fakeMediaStorage{}, Prober: fakeProber{duration: 1}}
	actor := models.User{ID: uuid.NewString()}

	t.Run("missing title", func(t *testing.T) {
		req := uploadForm(t, map[string]string{"description": "d"}, map[string]string{"videoFile": "a.mp4", "thumbnail": "t.png"})
		req = req.WithContext(middleware.WithUser(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.Upload(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing video file", func(t *testing.T) {
		req := uploadForm(t, map[string]string{"title": "t", "description": "d"}, map[string]string{"thumbnail": "t.png"})
		req = req.WithContext(middleware.WithUser(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.Upload(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := uploadForm(t, map[string]string{"title": "t", "description": "d"}, map[string]string{"videoFile": "a.mp4", "thumbnail": "t.png"})
		rec := httptest.NewRecorder()
		handler.Upload(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestUpdateVideoOwnership(t *testing.T) {
	videos := newInMemoryVideoStore()
	owner := models.User{ID: uuid.NewString()}
	stranger := models.User{ID: uuid.NewString()}
	video := seedVideo(t, videos, owner.ID, "original")
	handler := VideoHandler{Videos: videos, Media: &fakeMediaStorage{}}

	update := func(actor models.User, payload map[string]string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = withChiParam(req, "videoId", video.ID)
		req = req.WithContext(middleware.WithUser(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.Update(rec, req)
		return rec
	}

	rec := update(stranger, map[string]string{"title": "hijacked", "description": "nope"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner, got %d", rec.Code)
	}

	rec = update(owner, map[string]string{"title": "", "description": "d"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty title, got %d", rec.Code)
	}

	rec = update(owner, map[string]string{"title": "renamed", "description": "still mine"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := videos.FindByID(t.Context(), video.ID)
	if stored.Title != "renamed" || stored.Description != "still mine" {
		t.Fatalf("update not persisted: %+v", stored)
	}
}

func TestUpdateVideoReplacesThumbnail(t *testing.T) {
	videos := newInMemoryVideoStore()
	owner := models.User{ID: uuid.NewString()}
	video := seedVideo(t, videos, owner.ID, "original")
	mediaStore := &fakeMediaStorage{}
	handler := VideoHandler{Videos: videos, Media: mediaStore}

	body, contentType := registerForm(t, map[string]string{
		"title":       "renamed",
		"description": "new description",
	}, map[string]string{"thumbnail": "new-thumb.png"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/"+video.ID, body)
	req.Header.Set("Content-Type", contentType)
	req = withChiParam(req, "videoId", video.ID)
	req = req.WithContext(middleware.WithUser(req.Context(), owner))
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := videos.FindByID(t.Context(), video.ID)
	if stored.ThumbnailURL == video.ThumbnailURL {
		t.Fatal("thumbnail URL unchanged")
	}
	if len(mediaStore.deleted) != 1 || mediaStore.deleted[0] != video.ThumbnailURL {
		t.Fatalf("expected the replaced thumbnail to be deleted, deleted=%v", mediaStore.deleted)
	}
}

func TestDeleteVideo(t *testing.T) {
	videos := newInMemoryVideoStore()
	owner := models.User{ID: uuid.NewString()}
	stranger := models.User{ID: uuid.NewString()}
	video := seedVideo(t, videos, owner.ID, "doomed")
	mediaStore := &fakeMediaStorage{}
	handler := VideoHandler{Videos: videos, Media: mediaStore}

	del := func(actor models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/videos/"+video.ID, nil)
		req = withChiParam(req, "videoId", video.ID)
		req = req.WithContext(middleware.WithUser(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.Delete(rec, req)
		return rec
	}

	rec := del(stranger)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner, got %d", rec.Code)
	}
	if len(videos.videos) != 1 {
		t.Fatal("video must survive a forbidden delete")
	}

	rec = del(owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(videos.videos) != 0 {
		t.Fatal("video record not removed")
	}
	if len(mediaStore.deleted) != 2 {
		t.Fatalf("expected video and thumbnail objects removed, deleted=%v", mediaStore.deleted)
	}
}

func TestToggleStatus(t *testing.T) {
	videos := newInMemoryVideoStore()
	owner := models.User{ID: uuid.NewString()}
	stranger := models.User{ID: uuid.NewString()}
	video := seedVideo(t, videos, owner.ID, "toggling")
	handler := VideoHandler{Videos: videos}

	toggle := func(actor models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/"+video.ID+"/toggle-status", nil)
		req = withChiParam(req, "videoId", video.ID)
		req = req.WithContext(middleware.WithUser(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.ToggleStatus(rec, req)
		return rec
	}

	if rec := toggle(stranger); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner, got %d", rec.Code)
	}

	rec := toggle(owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stored, _ := videos.FindByID(t.Context(), video.ID)
	if stored.IsPublished {
		t.Fatal("expected publish flag flipped to false")
	}

	rec = toggle(owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stored, _ = videos.FindByID(t.Context(), video.ID)
	if !stored.IsPublished {
		t.Fatal("expected publish flag flipped back to true")
	}
}
