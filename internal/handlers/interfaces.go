package handlers

import (
	"context"
	"io"

	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateProfile(ctx context.Context, userID, fullName, email string) error
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
	UpdateCoverImage(ctx context.Context, userID, coverImageURL string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// TokenService issues and rotates authentication tokens for users.
type TokenService interface {
	Issue(ctx context.Context, userID string) (models.TokenPair, error)
	Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// VideoStore captures persistence for video workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByIDWithOwner(ctx context.Context, id string) (models.VideoWithOwner, error)
	List(ctx context.Context, params repositories.VideoListParams) (models.VideoPage, error)
	Update(ctx context.Context, video models.Video) error
	TogglePublished(ctx context.Context, id string) (models.Video, error)
	Delete(ctx context.Context, id string) error
}

// TweetStore captures persistence for tweet workflows.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	Update(ctx context.Context, tweet models.Tweet) error
	Delete(ctx context.Context, id string) error
}

// SubscriptionStore captures persistence for the follow relation.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, sub models.Subscription) error
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
	ListSubscribers(ctx context.Context, channelID string) ([]models.OwnerProfile, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.OwnerProfile, error)
	CountSubscribers(ctx context.Context, channelID string) (int, error)
}

// MediaStorage pushes uploaded files to the external media store and removes
// them again by the location Save returned.
type MediaStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// DurationProber reports the playback duration of a local media file.
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}
