package identity

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/shinyyama/swap-backend/internal/model"
)

// FirebaseDirectory looks users up in Firebase Authentication.
type FirebaseDirectory struct {
	client *auth.Client
}

func NewFirebaseDirectory(client *auth.Client) *FirebaseDirectory {
	return &FirebaseDirectory{client: client}
}

func (d *FirebaseDirectory) Exists(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	if _, err := d.client.GetUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *FirebaseDirectory) PublicProfile(ctx context.Context, uid string) (*model.PublicProfile, error) {
	user, err := d.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &model.PublicProfile{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		AvatarURL:   strPtrOrNil(user.PhotoURL),
	}, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
