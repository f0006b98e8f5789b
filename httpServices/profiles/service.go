package httpServices

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ProfileClient reads party profiles from the external profile directory.
// Bookings snapshot these details at creation; the directory is never
// consulted again for an existing booking.
type ProfileClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewProfileClient(baseURL string) *ProfileClient {
	return &ProfileClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

var ErrProfileNotFound = errors.New("profile not found")

func (c *ProfileClient) GetProfile(ctx context.Context, subjectID string) (*Profile, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET",
		c.baseURL+"/profiles/"+url.PathEscape(subjectID), nil)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProfileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("profile API returned non-OK status: " + resp.Status)
	}

	var apiResp profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, err
	}

	return &apiResp.Data, nil
}
