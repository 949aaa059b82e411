package analysis

import (
	"time"

	"github.com/sells-group/prospect-research/internal/model"
)

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func emptyBundle() *model.AggregateBundle {
	b := model.NewBundle(model.CompanyQuery{Name: "Acme Logistics", Domain: "acme.com.au"})
	for _, src := range model.AllSources {
		b.Add(model.Failed(src, "unavailable", fixedNow, 0))
	}
	return b
}

func fullBundle() *model.AggregateBundle {
	b := model.NewBundle(model.CompanyQuery{Name: "Acme Logistics", Domain: "acme.com.au"})
	ok := func(p model.Payload) { b.Add(model.Succeeded(p, fixedNow, time.Second)) }

	ok(&model.WebsitePayload{
		URL:         "https://acme.com.au",
		Title:       "Acme Logistics | Freight & Warehousing",
		Description: "Third-party logistics for Australian retailers.",
		Markdown: "Acme Logistics runs warehouse management and fleet management for retailers across Australia. " +
			"Our customers rely on us for same-day delivery. We run on AWS and integrate with Shopify and NetSuite. " +
			"We are hiring drivers and supervisors as we continue our expansion into Western Australia.",
		FetchedVia: "jina",
	})
	ok(&model.LinkedInPayload{
		Description:   "Acme Logistics is a 3PL provider.",
		Industry:      "Transportation, Logistics, Supply Chain and Storage",
		EmployeeCount: "201-500",
		Headquarters:  "Melbourne, Victoria",
		Founded:       "1998",
		People:        []model.Person{{Name: "Pat Lee", Title: "Head of Operations"}},
	})
	ok(&model.ContactsPayload{Contacts: []model.Contact{
		{Name: "Tom Smith", Title: "Operations Manager", Seniority: "manager", Phone: "+61391234567"},
		{Name: "Jane Citizen", Title: "CEO", Seniority: "c_suite", Email: "jane@acme.com.au"},
	}})
	ok(&model.JobsPayload{Listings: []model.JobListing{
		{Title: "Warehouse Supervisor"}, {Title: "Heavy Rigid Driver"}, {Title: "Fleet Controller"},
	}})
	ok(&model.NewsPayload{Articles: []model.Article{
		{Title: "Acme Logistics opens Perth depot", Source: "WA Today", Published: time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)},
		{Title: "Acme Logistics wins retail contract", Source: "The Age"},
	}})
	ok(&model.RegistryPayload{Records: []model.RegistryRecord{
		{Number: "22222222222", Name: "ACME LOGISTICS PTY LTD", EntityType: "Australian Private Company", Status: "Active", Registered: "1998-07-01", State: "VIC"},
	}})
	ok(&model.PlacesPayload{Name: "Acme Logistics", Address: "1 Dock Rd, Dandenong VIC", Rating: 3.6, RatingCount: 41})
	b.Add(model.Failed(model.SourceSearch, "rate limited (HTTP 429)", fixedNow, 0))
	b.Add(model.Failed(model.SourceBrowser, "not configured: firecrawl API key missing", fixedNow, 0))
	return b
}
