package instagram

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// GetMediaInsights fetches the metric snapshot for one media object. The
// metric list depends on the media type; metrics the API returns without a
// value default to zero so a snapshot row is always complete.
func (c *Client) GetMediaInsights(ctx context.Context, mediaID, accessToken, mediaType string) (map[string]int, error) {
	metricsToRequest := MetricsForMediaType(mediaType)

	query := url.Values{}
	query.Set("metric", strings.Join(metricsToRequest, ","))
	query.Set("access_token", accessToken)

	log := c.logger.WithFields(logrus.Fields{
		"method":     "GetMediaInsights",
		"media_id":   mediaID,
		"media_type": mediaType,
	})

	body, err := c.makeRequest(ctx, c.config.MediaInsightsURL(mediaID), query)
	if err != nil {
		log.WithError(err).Error("Failed to fetch media insights")
		return nil, err
	}

	var resp insightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	metrics := make(map[string]int, len(metricsToRequest))
	for _, name := range metricsToRequest {
		metrics[name] = 0
	}
	for _, entry := range resp.Data {
		if len(entry.Values) > 0 {
			metrics[entry.Name] = entry.Values[0].Value
		} else {
			log.WithField("metric", entry.Name).Warn("No values returned for media metric")
		}
	}

	log.WithField("metrics", len(metrics)).Debug("Fetched media insights")
	return metrics, nil
}
