//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/errors"
	"chat-relay/storage"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	CreateUser(user User) error
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	ListUsers() ([]User, error)
}

type UserRepository struct {
	store *storage.Store
}

func NewUserRepository(store *storage.Store) IUserRepository {
	return &UserRepository{store: store}
}

// User is the repository view of an account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

const (
	userPrefix       = "user:"
	emailIndexPrefix = "idx:email:"
)

// CreateUser persists the user and its email index in one transaction.
// The email check comes first so a taken email always reports ErrDuplicateEmail.
func (u UserRepository) CreateUser(user User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return u.store.Update(func(txn *badger.Txn) error {
		emailKey := []byte(emailIndexPrefix + user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrDuplicateEmail
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		userKey := []byte(userPrefix + user.ID)
		if _, err := txn.Get(userKey); err == nil {
			return errors.ErrUserIDTaken
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if err := txn.Set(userKey, encodeUser(user)); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(user.ID))
	})
}

// GetUserByEmail resolves the email index then loads the user.
// A missing email yields ErrUserNotFound.
func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(emailIndexPrefix + email))
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
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrUserNotFound
	}
	return user, err
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.store.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrUserNotFound
	}
	return user, err
}

// ListUsers returns the whole directory, ordered by user id.
func (u UserRepository) ListUsers() ([]User, error) {
	var users []User
	err := u.store.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				user, err := decodeUser(val)
				if err != nil {
					return err
				}
				users = append(users, user)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return users, err
}

func getUser(txn *badger.Txn, id string) (User, error) {
	item, err := txn.Get([]byte(userPrefix + id))
	if err != nil {
		return User{}, err
	}
	var user User
	err = item.Value(func(val []byte) error {
		user, err = decodeUser(val)
		return err
	})
	return user, err
}
