package instagram

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	// DefaultBaseURL is the Graph API host
	DefaultBaseURL = "https://graph.facebook.com"
	// DefaultAPIVersion is the Graph API version the client targets
	DefaultAPIVersion = "v23.0"
	// DefaultRequestTimeout is the per-call timeout in seconds
	DefaultRequestTimeout = 30
	// DefaultPostsPerPage is the media page size requested from the API
	DefaultPostsPerPage = 25
	// MaxPostsPerPage is the largest page size the API accepts
	MaxPostsPerPage = 100
	// DefaultCallsPerHour is the per-account hourly call ceiling
	DefaultCallsPerHour = 200
	// DefaultSafetyMargin is the fraction of the ceiling the client will use
	DefaultSafetyMargin = 0.9
)

// Config holds the Instagram Graph API configuration settings.
// Environment variables:
//   - INSTAGRAM_API_BASE_URL: API host (default: https://graph.facebook.com)
//   - INSTAGRAM_API_VERSION: API version (default: v23.0)
//   - INSTAGRAM_REQUEST_TIMEOUT: per-call timeout in seconds (default: 30)
//   - INSTAGRAM_CALLS_PER_HOUR: hourly call ceiling (default: 200)
type Config struct {
	// BaseURL is the Graph API host
	BaseURL string
	// APIVersion is the Graph API version segment
	APIVersion string
	// RequestTimeout is the duration to wait before timing out a call
	RequestTimeout time.Duration
	// PostsPerPage is the media page size used during enumeration
	PostsPerPage int
	// CallsPerHour is the per-account hourly call ceiling
	CallsPerHour int
	// SafetyMargin is the fraction of the ceiling that may be consumed
	SafetyMargin float64
	// Logger is the configured logrus logger instance
	Logger *logrus.Logger
}

// NewConfig creates a Config from environment variables, falling back to
// defaults. A missing .env file is not an error.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	timeout := DefaultRequestTimeout
	if s := os.Getenv("INSTAGRAM_REQUEST_TIMEOUT"); s != "" {
		if t, err := strconv.Atoi(s); err == nil && t > 0 {
			timeout = t
		}
	}

	callsPerHour := DefaultCallsPerHour
	if s := os.Getenv("INSTAGRAM_CALLS_PER_HOUR"); s != "" {
		if c, err := strconv.Atoi(s); err == nil && c > 0 {
			callsPerHour = c
		}
	}

	config := &Config{
		BaseURL:        getEnvOrDefault("INSTAGRAM_API_BASE_URL", DefaultBaseURL),
		APIVersion:     getEnvOrDefault("INSTAGRAM_API_VERSION", DefaultAPIVersion),
		RequestTimeout: time.Duration(timeout) * time.Second,
		PostsPerPage:   DefaultPostsPerPage,
		CallsPerHour:   callsPerHour,
		SafetyMargin:   DefaultSafetyMargin,
		Logger: func() *logrus.Logger {
			log := logrus.New()
			if level := os.Getenv("LOG_LEVEL"); level != "" {
				if parsedLevel, err := logrus.ParseLevel(level); err == nil {
					log.SetLevel(parsedLevel)
				}
			}
			return log
		}(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Logger.WithFields(logrus.Fields{
		"base_url":       config.BaseURL,
		"api_version":    config.APIVersion,
		"calls_per_hour": config.CallsPerHour,
	}).Debug("Instagram config initialized")

	return config, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.PostsPerPage < 1 || c.PostsPerPage > MaxPostsPerPage {
		return fmt.Errorf("posts per page must be between 1 and %d", MaxPostsPerPage)
	}
	if c.CallsPerHour < 1 {
		return fmt.Errorf("calls per hour must be positive")
	}
	if c.SafetyMargin <= 0 || c.SafetyMargin > 1 {
		return fmt.Errorf("safety margin must be in (0, 1]")
	}
	return nil
}

// apiBaseURL returns the versioned API prefix.
func (c *Config) apiBaseURL() string {
	return fmt.Sprintf("%s/%s", c.BaseURL, c.APIVersion)
}

// UserURL returns the account node URL.
func (c *Config) UserURL(userID string) string {
	return fmt.Sprintf("%s/%s", c.apiBaseURL(), userID)
}

// UserMediaURL returns the media edge URL for an account.
func (c *Config) UserMediaURL(userID string) string {
	return fmt.Sprintf("%s/%s/media", c.apiBaseURL(), userID)
}

// UserInsightsURL returns the account insights edge URL.
func (c *Config) UserInsightsURL(userID string) string {
	return fmt.Sprintf("%s/%s/insights", c.apiBaseURL(), userID)
}

// MediaInsightsURL returns the insights edge URL for a media object.
func (c *Config) MediaInsightsURL(mediaID string) string {
	return fmt.Sprintf("%s/%s/insights", c.apiBaseURL(), mediaID)
}

// BasicAccountFields is the field list for the account node.
const BasicAccountFields = "id,username,name,biography,website,profile_picture_url,followers_count,follows_count,media_count"

// MediaFields is the field list requested for each media object.
const MediaFields = "id,media_type,caption,media_url,thumbnail_url,timestamp,permalink,username,like_count,comments_count,shortcode"

// Insight metric catalogs. Only metrics the Graph API still serves are
// requested; impressions and profile_views were dropped upstream in v22.
var (
	// AccountMetrics are the daily account-level insight metrics.
	AccountMetrics = []string{"follower_count", "reach"}

	// MediaMetricsAll applies to every media type.
	MediaMetricsAll = []string{
		"likes",
		"comments",
		"saved",
		"shares",
		"views",
		"reach",
		"total_interactions",
	}

	// MediaMetricsVideo are the extra metrics available on VIDEO media.
	MediaMetricsVideo = []string{
		"ig_reels_video_view_total_time",
		"ig_reels_avg_watch_time",
	}

	// MediaMetricsCarousel are the extra metrics available on CAROUSEL_ALBUM media.
	MediaMetricsCarousel = []string{
		"follows",
		"profile_visits",
		"profile_activity",
	}
)

// MetricsForMediaType returns the metric list to request for a media type.
func MetricsForMediaType(mediaType string) []string {
	metrics := append([]string{}, MediaMetricsAll...)
	switch mediaType {
	case "VIDEO":
		metrics = append(metrics, MediaMetricsVideo...)
	case "CAROUSEL_ALBUM":
		metrics = append(metrics, MediaMetricsCarousel...)
	}
	return metrics
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
