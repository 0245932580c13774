package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// inMemoryUserStore satisfies handlers.UserStore, auth.CredentialStore, and
// middleware.UserLoader for handler tests.
type inMemoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByUsernameOrEmail(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Username, identifier) || strings.EqualFold(user.Email, identifier) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	return s.mutate(userID, func(u *models.User) { u.Password = passwordHash })
}

func (s *inMemoryUserStore) UpdateProfile(_ context.Context, userID, fullName, email string) error {
	return s.mutate(userID, func(u *models.User) { u.FullName = fullName; u.Email = email })
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, userID, avatarURL string) error {
	return s.mutate(userID, func(u *models.User) { u.AvatarURL = avatarURL })
}

func (s *inMemoryUserStore) UpdateCoverImage(_ context.Context, userID, coverImageURL string) error {
	return s.mutate(userID, func(u *models.User) { u.CoverImageURL = coverImageURL })
}

func (s *inMemoryUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	return s.mutate(userID, func(u *models.User) { u.RefreshToken = token })
}

func (s *inMemoryUserStore) ClearRefreshToken(_ context.Context, userID string) error {
	return s.mutate(userID, func(u *models.User) { u.RefreshToken = "" })
}

func (s *inMemoryUserStore) mutate(userID string, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	fn(&user)
	s.users[userID] = user
	return nil
}

// inMemoryVideoStore satisfies handlers.VideoStore.
type inMemoryVideoStore struct {
	mu         sync.Mutex
	videos     map[string]models.Video
	owners     map[string]models.OwnerProfile
	lastParams repositories.VideoListParams
}

func newInMemoryVideoStore() *inMemoryVideoStore {
	return &inMemoryVideoStore{
		videos: make(map[string]models.Video),
		owners: make(map[string]models.OwnerProfile),
	}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) FindByIDWithOwner(ctx context.Context, id string) (models.VideoWithOwner, error) {
	video, err := s.FindByID(ctx, id)
	if err != nil {
		return models.VideoWithOwner{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.VideoWithOwner{Video: video, Owner: s.owners[video.OwnerID]}, nil
}

func (s *inMemoryVideoStore) List(_ context.Context, params repositories.VideoListParams) (models.VideoPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastParams = params

	videos := make([]models.VideoWithOwner, 0)
	for _, video := range s.videos {
		if params.OwnerID != "" && video.OwnerID != params.OwnerID {
			continue
		}
		if params.Query != "" &&
			!strings.Contains(strings.ToLower(video.Title), strings.ToLower(params.Query)) &&
			!strings.Contains(strings.ToLower(video.Description), strings.ToLower(params.Query)) {
			continue
		}
		videos = append(videos, models.VideoWithOwner{Video: video, Owner: s.owners[video.OwnerID]})
	}

	return models.VideoPage{
		Videos: videos,
		Page:   params.Page,
		Limit:  params.Limit,
		Total:  len(videos),
	}, nil
}

func (s *inMemoryVideoStore) Update(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) TogglePublished(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

// inMemoryTweetStore satisfies handlers.TweetStore.
type inMemoryTweetStore struct {
	mu     sync.Mutex
	tweets map[string]models.Tweet
}

func newInMemoryTweetStore() *inMemoryTweetStore {
	return &inMemoryTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *inMemoryTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *inMemoryTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *inMemoryTweetStore) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweets := make([]models.Tweet, 0)
	for _, tweet := range s.tweets {
		if tweet.OwnerID == ownerID {
			tweets = append(tweets, tweet)
		}
	}
	return tweets, nil
}

func (s *inMemoryTweetStore) Update(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tweets[tweet.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *inMemoryTweetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tweets, id)
	return nil
}

// inMemorySubscriptionStore satisfies handlers.SubscriptionStore.
type inMemorySubscriptionStore struct {
	mu    sync.Mutex
	edges map[string]models.Subscription
}

func newInMemorySubscriptionStore() *inMemorySubscriptionStore {
	return &inMemorySubscriptionStore{edges: make(map[string]models.Subscription)}
}

func subKey(subscriberID, channelID string) string {
	return subscriberID + "|" + channelID
}

func (s *inMemorySubscriptionStore) Subscribe(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey(sub.SubscriberID, sub.ChannelID)
	if _, ok := s.edges[key]; ok {
		return repositories.ErrConflict
	}
	s.edges[key] = sub
	return nil
}

func (s *inMemorySubscriptionStore) Unsubscribe(_ context.Context, subscriberID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subKey(subscriberID, channelID)
	if _, ok := s.edges[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.edges, key)
	return nil
}

func (s *inMemorySubscriptionStore) ListSubscribers(_ context.Context, channelID string) ([]models.OwnerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make([]models.OwnerProfile, 0)
	for _, edge := range s.edges {
		if edge.ChannelID == channelID {
			profiles = append(profiles, models.OwnerProfile{ID: edge.SubscriberID})
		}
	}
	return profiles, nil
}

func (s *inMemorySubscriptionStore) ListSubscribedChannels(_ context.Context, subscriberID string) ([]models.OwnerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make([]models.OwnerProfile, 0)
	for _, edge := range s.edges {
		if edge.SubscriberID == subscriberID {
			profiles = append(profiles, models.OwnerProfile{ID: edge.ChannelID})
		}
	}
	return profiles, nil
}

func (s *inMemorySubscriptionStore) CountSubscribers(ctx context.Context, channelID string) (int, error) {
	profiles, err := s.ListSubscribers(ctx, channelID)
	return len(profiles), err
}

// fakeMediaStorage records saves and deletes without any network calls.
type fakeMediaStorage struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	saveErr error
}

func (f *fakeMediaStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	_, _ = io.Copy(io.Discard, r)
	location := fmt.Sprintf("https://media.test/%s", name)
	f.mu.Lock()
	f.saved = append(f.saved, location)
	f.mu.Unlock()
	return location, nil
}

func (f *fakeMediaStorage) Delete(_ context.Context, location string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, location)
	f.mu.Unlock()
	return nil
}

// fakeProber returns a fixed duration without touching ffprobe.
type fakeProber struct {
	duration float64
	err      error
}

func (f fakeProber) Probe(context.Context, string) (float64, error) {
	return f.duration, f.err
}
