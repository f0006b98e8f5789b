package httpServices

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// DistanceClient wraps the Google Maps client for the two capabilities the
// booking core consumes: travel distance/time between two coordinates, and
// address geocoding at booking creation.
type DistanceClient struct {
	client *maps.Client
}

func NewDistanceClient(apiKey string) (*DistanceClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DistanceClient{client: client}, nil
}

var (
	ErrNoRoute       = errors.New("no route between origin and destination")
	ErrNotConfigured = errors.New("distance service not configured")
)

// Unavailable is the fallback wired when no maps credentials are configured.
// Every call fails cleanly; callers already degrade on distance errors, so
// bookings are created without coordinates and ETA stays unavailable.
type Unavailable struct{}

func (Unavailable) Distance(_ context.Context, _, _, _, _ float64) (int64, int64, error) {
	return 0, 0, ErrNotConfigured
}

func (Unavailable) Geocode(_ context.Context, _ string) (float64, float64, error) {
	return 0, 0, ErrNotConfigured
}

// Distance returns driving distance in meters and travel time in seconds
// from origin to destination.
func (c *DistanceClient) Distance(ctx context.Context, originLat, originLng, destLat, destLng float64) (int64, int64, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{fmt.Sprintf("%f,%f", originLat, originLng)},
		Destinations: []string{fmt.Sprintf("%f,%f", destLat, destLng)},
		Mode:         maps.TravelModeDriving,
	}

	resp, err := c.client.DistanceMatrix(ctx, r)
	if err != nil {
		return 0, 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, 0, ErrNoRoute
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, 0, ErrNoRoute
	}

	return int64(el.Distance.Meters), int64(el.Duration.Seconds()), nil
}

// Geocode resolves a street address to coordinates.
func (c *DistanceClient) Geocode(ctx context.Context, address string) (float64, float64, error) {
	results, err := c.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return 0, 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(results) == 0 {
		return 0, 0, errors.New("address could not be geocoded")
	}

	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
