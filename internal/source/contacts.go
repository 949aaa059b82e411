package source

import (
	"context"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/pkg/apollo"
)

// ContactsAdapter finds decision makers through the contact-enrichment API.
type ContactsAdapter struct {
	client apollo.Client
	region string
}

// NewContactsAdapter creates a ContactsAdapter. region is the ISO country
// used to interpret phone numbers without a country code.
func NewContactsAdapter(client apollo.Client, region string) *ContactsAdapter {
	if region == "" {
		region = "AU"
	}
	return &ContactsAdapter{client: client, region: strings.ToUpper(region)}
}

func (a *ContactsAdapter) Name() model.SourceName { return model.SourceContacts }

func (a *ContactsAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		req := apollo.PeopleSearchRequest{Seniorities: apollo.DefaultSeniorities, PerPage: 10}
		if q.Domain != "" {
			req.OrganizationDomains = []string{q.Domain}
		} else {
			req.OrganizationName = q.Name
		}

		resp, err := a.client.SearchPeople(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.People) == 0 {
			return nil, ErrNoData
		}

		p := &model.ContactsPayload{}
		for _, person := range resp.People {
			name := strings.TrimSpace(person.FullName())
			if name == "" {
				continue
			}
			p.Contacts = append(p.Contacts, model.Contact{
				Name:        name,
				Title:       strings.TrimSpace(person.Title),
				Email:       person.Email,
				Phone:       a.firstPhone(person.PhoneNumbers),
				Seniority:   person.Seniority,
				LinkedInURL: person.LinkedInURL,
			})
		}
		if len(p.Contacts) == 0 {
			return nil, ErrNoData
		}
		SortContacts(p.Contacts)
		return p, nil
	})
}

func (a *ContactsAdapter) firstPhone(numbers []apollo.PhoneNumber) string {
	for _, n := range numbers {
		for _, raw := range []string{n.SanitizedNumber, n.RawNumber} {
			if e164 := NormalizePhone(raw, a.region); e164 != "" {
				return e164
			}
		}
	}
	return ""
}

// NormalizePhone formats raw as E.164, or returns "" when it is not a valid
// number for region.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

var seniorityRank = map[string]int{
	"owner":    0,
	"founder":  0,
	"c_suite":  1,
	"partner":  2,
	"vp":       3,
	"head":     4,
	"director": 5,
	"manager":  6,
	"senior":   7,
}

// SeniorityRank orders seniority labels, most senior first. Unknown labels
// sort last.
func SeniorityRank(s string) int {
	if r, ok := seniorityRank[strings.ToLower(s)]; ok {
		return r
	}
	return len(seniorityRank) + 1
}

// SortContacts orders contacts by seniority, then name.
func SortContacts(cs []model.Contact) {
	sort.SliceStable(cs, func(i, j int) bool {
		ri, rj := SeniorityRank(cs[i].Seniority), SeniorityRank(cs[j].Seniority)
		if ri != rj {
			return ri < rj
		}
		return cs[i].Name < cs[j].Name
	})
}
