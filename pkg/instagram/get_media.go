package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
)

// ListMediaParams holds the parameters for media enumeration.
type ListMediaParams struct {
	UserID      string
	AccessToken string
	// PageSize overrides the configured page size when set (capped at 100).
	PageSize int
	// MaxItems stops pagination once at least this many items have been
	// fetched. Zero means unbounded. The page that crosses the cap is
	// returned in full; the caller decides what to do with the overshoot.
	MaxItems int
}

// ListMedia enumerates an account's media, following the cursor-based
// "next" links until the edge is exhausted or MaxItems is reached.
func (c *Client) ListMedia(ctx context.Context, params ListMediaParams) ([]Media, error) {
	log := c.logger.WithFields(logrus.Fields{
		"method":  "ListMedia",
		"user_id": params.UserID,
	})

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = c.config.PostsPerPage
	}
	if pageSize > MaxPostsPerPage {
		pageSize = MaxPostsPerPage
	}

	query := url.Values{}
	query.Set("fields", MediaFields)
	query.Set("access_token", params.AccessToken)
	query.Set("limit", strconv.Itoa(pageSize))

	var all []Media
	nextURL := ""
	pageCount := 0

	for {
		select {
		case <-ctx.Done():
			return nil, &TransientNetworkError{Err: ctx.Err()}
		default:
		}

		pageCount++

		var body []byte
		var err error
		if nextURL != "" {
			// The "next" link already carries the token and cursor.
			body, err = c.makeRequest(ctx, nextURL, nil)
		} else {
			body, err = c.makeRequest(ctx, c.config.UserMediaURL(params.UserID), query)
		}
		if err != nil {
			return nil, err
		}

		var page mediaListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &MalformedResponseError{Err: err}
		}

		all = append(all, page.Data...)
		log.WithFields(logrus.Fields{
			"page":  pageCount,
			"items": len(page.Data),
			"total": len(all),
		}).Debug("Fetched media page")

		if page.Paging.Next == "" {
			break
		}
		if params.MaxItems > 0 && len(all) >= params.MaxItems {
			log.WithField("max_items", params.MaxItems).Debug("Item cap reached, stopping pagination")
			break
		}
		if len(page.Data) == 0 {
			break
		}
		nextURL = page.Paging.Next
	}

	log.WithFields(logrus.Fields{
		"pages": pageCount,
		"total": len(all),
	}).Info("Media enumeration complete")

	return all, nil
}

// ListRecentMedia fetches only the first page of an account's media, newest
// first, used by the incremental new-post check.
func (c *Client) ListRecentMedia(ctx context.Context, userID, accessToken string, limit int) ([]Media, error) {
	if limit <= 0 || limit > MaxPostsPerPage {
		limit = MaxPostsPerPage
	}

	query := url.Values{}
	query.Set("fields", MediaFields)
	query.Set("access_token", accessToken)
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.makeRequest(ctx, c.config.UserMediaURL(userID), query)
	if err != nil {
		return nil, err
	}

	var page mediaListResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"items":   len(page.Data),
	}).Debug("Fetched recent media")

	return page.Data, nil
}
