//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"strings"
	"time"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultRole is granted to every registered account.
const DefaultRole = "user"

type IUserRepository interface {
	CreateUser(email, displayName, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	SetAvatar(id string, ref chat.MediaRef) (chat.MediaRef, error)
	IProfileDirectory
}

// IProfileDirectory resolves user ids to public profiles.
type IProfileDirectory interface {
	GetProfiles(ids []string) (map[string]chat.Profile, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// User is the domain-friendly representation of an account in the repository layer.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarRef    string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

func (u User) Profile() chat.Profile {
	return chat.Profile{ID: u.ID, DisplayName: u.DisplayName, AvatarRef: u.AvatarRef}
}

// CreateUser persists the account and its email index in a single transaction.
// It returns the newly generated User ID.
func (u UserRepository) CreateUser(email, displayName, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hashedPassword,
		Roles:        []string{DefaultRole},
		CreatedAt:    time.Now().UTC(),
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Email
	}

	err := u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(user.Email)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), encodeUser(user))
	})
	if err != nil {
		if errors.Is(err, errors.ErrUserAlreadyExists) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return user.ID, nil
}

// GetUserByEmail follows the email index then loads the account.
func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, string(id))
		return err
	})
	return user, mapUserError(err)
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, mapUserError(err)
}

// SetAvatar points the user to a new avatar and returns the one it replaced.
// An avatar blob belongs to a single user.
func (u UserRepository) SetAvatar(id string, ref chat.MediaRef) (chat.MediaRef, error) {
	var previous chat.MediaRef
	err := u.db.Update(func(txn *badger.Txn) error {
		user, err := getUser(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(avatarKey(string(ref)))
		switch {
		case err == nil:
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != id {
				return fmt.Errorf("%w: avatar %s belongs to another user", errors.ErrForbidden, ref)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		previous = chat.MediaRef(user.AvatarRef)
		if previous != "" && previous != ref {
			if err := txn.Delete(avatarKey(string(previous))); err != nil {
				return err
			}
		}
		user.AvatarRef = string(ref)
		if err := txn.Set(avatarKey(string(ref)), []byte(id)); err != nil {
			return err
		}
		return txn.Set(userKey(id), encodeUser(user))
	})
	if err != nil {
		return "", mapUserError(err)
	}
	return previous, nil
}

// GetProfiles resolves every id it can. Unknown ids are absent from the result.
func (u UserRepository) GetProfiles(ids []string) (map[string]chat.Profile, error) {
	profiles := make(map[string]chat.Profile, len(ids))
	err := u.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			user, err := getUser(txn, id)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			profiles[id] = user.Profile()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return profiles, nil
}

func getUser(txn *badger.Txn, id string) (User, error) {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return User{}, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return User{}, err
	}
	return decodeUser(raw)
}

func mapUserError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errors.ErrForbidden):
		return err
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: user", errors.ErrNotFound)
	default:
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
}
