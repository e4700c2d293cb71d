package instagram

import "time"

// Media represents one media object returned by the media edge.
type Media struct {
	ID            string `json:"id"`
	MediaType     string `json:"media_type"`
	Caption       string `json:"caption"`
	MediaURL      string `json:"media_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	Timestamp     string `json:"timestamp"`
	Permalink     string `json:"permalink"`
	Username      string `json:"username"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
	Shortcode     string `json:"shortcode"`
}

// PostedAt parses the media timestamp. The API returns RFC3339 with a
// numeric zone offset ("2025-06-01T12:00:00+0000").
func (m Media) PostedAt() (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05-0700", m.Timestamp); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, m.Timestamp)
}

// AccountProfile represents the account node fields the client requests.
type AccountProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	Biography         string `json:"biography"`
	Website           string `json:"website"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    int    `json:"followers_count"`
	FollowsCount      int    `json:"follows_count"`
	MediaCount        int    `json:"media_count"`
}

// mediaListResponse is the media edge envelope.
type mediaListResponse struct {
	Data   []Media `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

// insightsResponse is the insights edge envelope. Values are a one-element
// list for lifetime metrics and a per-day list for period metrics.
type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Period string `json:"period"`
		Values []struct {
			Value   int    `json:"value"`
			EndTime string `json:"end_time"`
		} `json:"values"`
	} `json:"data"`
}

// errorEnvelope is the Graph API structured error body.
type errorEnvelope struct {
	Error *struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		TraceID   string `json:"fbtrace_id"`
		UserTitle string `json:"error_user_title"`
	} `json:"error"`
}
