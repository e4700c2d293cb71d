package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// GetAccount fetches the basic profile fields for an account node.
func (c *Client) GetAccount(ctx context.Context, userID, accessToken string) (*AccountProfile, error) {
	query := url.Values{}
	query.Set("fields", BasicAccountFields)
	query.Set("access_token", accessToken)

	body, err := c.makeRequest(ctx, c.config.UserURL(userID), query)
	if err != nil {
		return nil, err
	}

	var profile AccountProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"username": profile.Username,
	}).Debug("Fetched account profile")

	return &profile, nil
}

// ValidateAccessToken checks a token by fetching the account node with it.
func (c *Client) ValidateAccessToken(ctx context.Context, userID, accessToken string) bool {
	_, err := c.GetAccount(ctx, userID, accessToken)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err,
		}).Warn("Access token validation failed")
		return false
	}
	return true
}

// GetAccountInsights fetches the daily account-level metrics for one day.
// Account insights are optional for a collection run: on an API error the
// caller receives zeroed metrics and a nil error so the run continues.
func (c *Client) GetAccountInsights(ctx context.Context, userID, accessToken, day string) (map[string]int, error) {
	query := url.Values{}
	query.Set("metric", strings.Join(AccountMetrics, ","))
	query.Set("since", day)
	query.Set("until", day)
	query.Set("period", "day")
	query.Set("access_token", accessToken)

	log := c.logger.WithFields(logrus.Fields{
		"method":  "GetAccountInsights",
		"user_id": userID,
		"day":     day,
	})

	metrics := make(map[string]int, len(AccountMetrics))
	for _, name := range AccountMetrics {
		metrics[name] = 0
	}

	body, err := c.makeRequest(ctx, c.config.UserInsightsURL(userID), query)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch account insights, returning zeroed metrics")
		return metrics, nil
	}

	var resp insightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	for _, entry := range resp.Data {
		if len(entry.Values) > 0 {
			metrics[entry.Name] = entry.Values[0].Value
		}
	}

	log.WithField("metrics", len(metrics)).Debug("Fetched account insights")
	return metrics, nil
}
