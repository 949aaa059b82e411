package source

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/pkg/abr"
)

const maxRegistryRecords = 5

// RegistryAdapter looks the company up in the Australian Business Register.
type RegistryAdapter struct {
	client abr.Client
}

// NewRegistryAdapter creates a RegistryAdapter.
func NewRegistryAdapter(client abr.Client) *RegistryAdapter {
	return &RegistryAdapter{client: client}
}

func (a *RegistryAdapter) Name() model.SourceName { return model.SourceRegistry }

func (a *RegistryAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		name := q.Name
		if name == "" {
			return nil, ErrNoData
		}
		names, err := a.client.MatchingNames(ctx, name)
		if err != nil {
			return nil, err
		}

		records := rankRegistryNames(name, names)
		if len(records) == 0 {
			return nil, ErrNoData
		}

		// Best effort: entity type and registration date only come from details.
		details, err := a.client.Details(ctx, records[0].Number)
		if err != nil {
			zap.L().Debug("registry: details lookup failed",
				zap.String("abn", records[0].Number),
				zap.Error(err),
			)
		} else {
			records[0].EntityType = details.EntityTypeName
			records[0].Registered = details.AbnStatusEffectiveFrom
			if details.EntityName != "" {
				records[0].Name = details.EntityName
			}
			if records[0].Status == "" {
				records[0].Status = details.AbnStatus
			}
		}
		return &model.RegistryPayload{Records: records}, nil
	})
}

// rankRegistryNames keeps current entries, one per ABN, ordering exact
// normalised-name matches first, then by the register's score.
func rankRegistryNames(query string, names []abr.Name) []model.RegistryRecord {
	type ranked struct {
		rec   model.RegistryRecord
		exact bool
	}
	seen := make(map[string]bool)
	var rs []ranked
	for _, n := range names {
		abn := strings.ReplaceAll(n.Abn, " ", "")
		if abn == "" || !n.IsCurrent || seen[abn] {
			continue
		}
		seen[abn] = true
		rs = append(rs, ranked{
			rec: model.RegistryRecord{
				Number:   abn,
				Name:     strings.TrimSpace(n.Name),
				Status:   n.AbnStatus,
				State:    n.State,
				Postcode: n.Postcode,
				Score:    n.Score,
			},
			exact: abr.SameEntity(query, n.Name),
		})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].exact != rs[j].exact {
			return rs[i].exact
		}
		return rs[i].rec.Score > rs[j].rec.Score
	})

	out := make([]model.RegistryRecord, 0, maxRegistryRecords)
	for _, r := range rs {
		if len(out) == maxRegistryRecords {
			break
		}
		out = append(out, r.rec)
	}
	return out
}
