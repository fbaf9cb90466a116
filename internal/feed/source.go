package feed

import (
	"context"
	"fmt"
	"net/url"

	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/appconf"
	"github.com/soundch3z/homeassistant-aseag-next-bus/internal/nextbus"
)

// uraReturnList fixes the positional layout of URA prediction records.
const uraReturnList = "StopPointName,LineName,DestinationText,TripID,EstimatedTime,ExpireTime"

// Source fetches the payload of one configured endpoint.
type Source struct {
	client   *Client
	endpoint string
}

var _ nextbus.Fetcher = (*Source)(nil)

func NewSource(client *Client, endpoint string) *Source {
	return &Source{client: client, endpoint: endpoint}
}

func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	return s.client.Get(ctx, s.endpoint)
}

func (s *Source) Endpoint() string {
	return s.endpoint
}

// AreaInformationURL builds the area-information endpoint for stopID.
// sourceSystem selects the later publicTransport/sourceSystem revision.
func AreaInformationURL(baseURL, stopID string, sourceSystem bool) (string, error) {
	elems := []string{"mbroker", "rest", "areainformation"}
	if sourceSystem {
		elems = append(elems, "publicTransport", "sourceSystem")
	}
	elems = append(elems, stopID)

	endpoint, err := url.JoinPath(baseURL, elems...)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return endpoint, nil
}

// URAURL builds the URA instant_V1 endpoint scoped to one stop and direction.
func URAURL(baseURL, stopID, directionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	u = u.JoinPath("interfaces", "ura", "instant_V1")

	q := url.Values{}
	q.Set("StopID", stopID)
	q.Set("DirectionID", directionID)
	q.Set("ReturnList", uraReturnList)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// New wires the fetcher and decoder for the feed variant cfg selects.
func New(cfg appconf.Config, client *Client) (*Source, nextbus.Decoder, error) {
	switch cfg.Feed {
	case appconf.FeedAreaInformation, "":
		endpoint, err := AreaInformationURL(cfg.BaseURL, cfg.StopID, cfg.SourceSystem)
		if err != nil {
			return nil, nil, err
		}
		return NewSource(client, endpoint), AreaInformationDecoder{}, nil

	case appconf.FeedURA:
		tracks := cfg.Tracks()
		if len(tracks) != 1 {
			return nil, nil, fmt.Errorf("ura feed needs exactly one direction, got %d", len(tracks))
		}
		endpoint, err := URAURL(cfg.BaseURL, cfg.StopID, tracks[0])
		if err != nil {
			return nil, nil, err
		}
		return NewSource(client, endpoint), URADecoder{Direction: tracks[0]}, nil

	case appconf.FeedGTFSRT:
		if cfg.FeedURL == "" {
			return nil, nil, fmt.Errorf("gtfsrt feed needs feed_url")
		}
		return NewSource(client, cfg.FeedURL), GTFSRTDecoder{}, nil

	default:
		return nil, nil, fmt.Errorf("unknown feed variant %q", cfg.Feed)
	}
}
