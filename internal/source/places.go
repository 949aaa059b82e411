package source

import (
	"context"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/pkg/google"
)

// PlacesAdapter reads the company's business listing from Google Places.
type PlacesAdapter struct {
	client google.Client
}

// NewPlacesAdapter creates a PlacesAdapter.
func NewPlacesAdapter(client google.Client) *PlacesAdapter {
	return &PlacesAdapter{client: client}
}

func (a *PlacesAdapter) Name() model.SourceName { return model.SourcePlaces }

func (a *PlacesAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		resp, err := a.client.TextSearch(ctx, q.DisplayName())
		if err != nil {
			return nil, err
		}
		if len(resp.Places) == 0 {
			return nil, ErrNoData
		}

		best := resp.Places[0]
		if q.Domain != "" {
			for _, pl := range resp.Places {
				if model.NormalizeDomain(pl.WebsiteURI) == q.Domain {
					best = pl
					break
				}
			}
		}
		return &model.PlacesPayload{
			Name:        best.DisplayName.Text,
			Address:     best.FormattedAddress,
			Website:     best.WebsiteURI,
			Rating:      best.Rating,
			RatingCount: best.UserRatingCount,
		}, nil
	})
}
