package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AccountStore persists monitored accounts.
type AccountStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewAccountStore creates an AccountStore.
func NewAccountStore(db *gorm.DB, logger *logrus.Logger) *AccountStore {
	return &AccountStore{db: db, logger: logger}
}

// FindByExternalID returns the account with the given Instagram user ID,
// or nil when none exists.
func (s *AccountStore) FindByExternalID(instagramUserID string) (*Account, error) {
	var account Account
	err := s.db.Where("instagram_user_id = ?", instagramUserID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up account %s: %w", instagramUserID, err)
	}
	return &account, nil
}

// ListActive returns all accounts enabled for collection.
func (s *AccountStore) ListActive() ([]Account, error) {
	var accounts []Account
	if err := s.db.Where("is_active = ?", true).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	return accounts, nil
}

// UpdateProfile refreshes the profile fields fetched from the account node.
func (s *AccountStore) UpdateProfile(accountID uint, username, name, biography, website, pictureURL string, followers, follows, mediaCount int) error {
	updates := map[string]interface{}{
		"username":            username,
		"name":                name,
		"biography":           biography,
		"website":             website,
		"profile_picture_url": pictureURL,
		"followers_count":     followers,
		"follows_count":       follows,
		"media_count":         mediaCount,
		"updated_at":          time.Now(),
	}

	if err := s.db.Model(&Account{}).Where("id = ?", accountID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update account profile: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"username":   username,
	}).Debug("Account profile updated")

	return nil
}
