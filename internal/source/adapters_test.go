package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-research/internal/fetcher"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/resilience"
	"github.com/sells-group/prospect-research/internal/scrape"
	"github.com/sells-group/prospect-research/pkg/abr"
	"github.com/sells-group/prospect-research/pkg/apollo"
	"github.com/sells-group/prospect-research/pkg/google"
	"github.com/sells-group/prospect-research/pkg/google/mocks"
	"github.com/sells-group/prospect-research/pkg/jina"
)

var acme = model.CompanyQuery{Name: "Acme Logistics Pty Ltd", Domain: "acme.com.au"}

func TestDescribe(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", eris.Wrap(context.DeadlineExceeded, "jina: read"), "timed out"},
		{"cancelled", context.Canceled, "cancelled"},
		{"circuit", resilience.ErrCircuitOpen, "backend temporarily disabled after repeated failures"},
		{"no data", ErrNoData, "no data found"},
		{"auth", &jina.APIError{StatusCode: 401}, "authentication failed (HTTP 401)"},
		{"forbidden", &apollo.APIError{StatusCode: 403}, "authentication failed (HTTP 403)"},
		{"not found", &fetcher.StatusError{StatusCode: 404}, "not found (HTTP 404)"},
		{"rate limited", eris.Wrap(&jina.APIError{StatusCode: 429}, "jina: search"), "rate limited (HTTP 429)"},
		{"upstream", &google.APIError{StatusCode: 503}, "upstream error (HTTP 503)"},
		{"rejected", &apollo.APIError{StatusCode: 422}, "request rejected (HTTP 422)"},
		{"malformed", eris.New("abr: decode response: invalid character 'x'"), "malformed response: abr: decode response: invalid character 'x'"},
		{"other", eris.New("connection reset"), "connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "caf", truncate("café", 4))
	assert.Equal(t, "short", truncate("short", 10))
}

func TestWebsiteAdapter_Markdown(t *testing.T) {
	t.Parallel()
	chain := scrape.NewChain(&fakeScraper{name: "jina", result: &scrape.Result{
		URL: "https://acme.com.au", Title: "Acme", Markdown: "# Acme\nFreight across Australia.", Source: "jina",
	}})

	r := NewWebsiteAdapter(chain).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.WebsitePayload)
	assert.Equal(t, "Acme", p.Title)
	assert.Equal(t, "jina", p.FetchedVia)
	assert.Contains(t, p.Markdown, "Freight")
}

func TestWebsiteAdapter_HTMLFallback(t *testing.T) {
	t.Parallel()
	html := `<!DOCTYPE html><html><head><title>Acme Logistics</title>
<meta name="description" content="Freight and warehousing"></head>
<body><nav>Menu</nav><p>We move   things.</p><script>var x=1;</script></body></html>`
	chain := scrape.NewChain(
		&fakeScraper{name: "jina", err: eris.New("reader down")},
		&fakeScraper{name: "firecrawl", result: &scrape.Result{URL: "https://acme.com.au", Markdown: html, Source: "firecrawl"}},
	)

	r := NewWebsiteAdapter(chain).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.WebsitePayload)
	assert.Equal(t, "Acme Logistics", p.Title)
	assert.Equal(t, "Freight and warehousing", p.Description)
	assert.Equal(t, "We move things.", p.Markdown)
	assert.Equal(t, "firecrawl", p.FetchedVia)
}

func TestWebsiteAdapter_NoDomain(t *testing.T) {
	t.Parallel()
	r := NewWebsiteAdapter(scrape.NewChain()).Fetch(context.Background(), model.CompanyQuery{Name: "Acme"})
	assert.False(t, r.Success)
	assert.Equal(t, "company domain unknown", r.Error)
	assert.Equal(t, model.SourceWebsite, r.Source)
}

const linkedInPage = `# Acme Logistics

Acme Logistics is a third-party logistics provider serving retailers and manufacturers across Australia and New Zealand.

Industry: Transportation, Logistics, Supply Chain and Storage
Company size: 201-500 employees
Headquarters: Melbourne, Victoria
Founded: 1998
Specialties: freight, warehousing, last-mile delivery

- Jane Citizen - Chief Executive Officer
- Tom Smith - Head of Operations
`

func TestLinkedInAdapter_Reader(t *testing.T) {
	t.Parallel()
	jc := &fakeJina{read: func(_ context.Context, u string) (*jina.ReadResponse, error) {
		assert.Equal(t, "https://www.linkedin.com/company/acme-logistics", u)
		return &jina.ReadResponse{Data: jina.ReadData{Content: linkedInPage}}, nil
	}}
	pc := &fakePerplexity{err: eris.New("should not be called")}

	r := NewLinkedInAdapter(jc, pc).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.LinkedInPayload)
	assert.Equal(t, "Transportation, Logistics, Supply Chain and Storage", p.Industry)
	assert.Equal(t, "201-500", p.EmployeeCount)
	assert.Equal(t, "Melbourne, Victoria", p.Headquarters)
	assert.Equal(t, "1998", p.Founded)
	assert.Contains(t, p.Description, "third-party logistics")
	require.Len(t, p.People, 2)
	assert.Equal(t, "Jane Citizen", p.People[0].Name)
	assert.Equal(t, "Chief Executive Officer", p.People[0].Title)
	assert.Empty(t, pc.prompt)
}

func TestLinkedInAdapter_LoginWallFallsBack(t *testing.T) {
	t.Parallel()
	jc := &fakeJina{read: func(context.Context, string) (*jina.ReadResponse, error) {
		return &jina.ReadResponse{Data: jina.ReadData{Content: "Sign in to see who you already know. Join LinkedIn today to view the full profile of this company and more."}}, nil
	}}
	pc := &fakePerplexity{text: "Description: Freight and warehousing company.\nIndustry: Logistics\nCompany size: 350\n"}

	r := NewLinkedInAdapter(jc, pc).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.LinkedInPayload)
	assert.Equal(t, "Logistics", p.Industry)
	assert.Equal(t, "350", p.EmployeeCount)
	assert.Contains(t, pc.prompt, "Acme Logistics Pty Ltd")
	assert.Contains(t, pc.prompt, "acme.com.au")
}

func TestLinkedInAdapter_AllFail(t *testing.T) {
	t.Parallel()
	jc := &fakeJina{read: func(context.Context, string) (*jina.ReadResponse, error) {
		return nil, &jina.APIError{StatusCode: 451}
	}}
	r := NewLinkedInAdapter(jc, nil).Fetch(context.Background(), acme)
	assert.False(t, r.Success)
	assert.Equal(t, "request rejected (HTTP 451)", r.Error)
}

func TestParseLinkedIn_Headings(t *testing.T) {
	t.Parallel()
	p := parseLinkedIn("## Industry\nConstruction\n## Headquarters\nPerth, WA\n**Founded:** 2004\n")
	assert.Equal(t, "Construction", p.Industry)
	assert.Equal(t, "Perth, WA", p.Headquarters)
	assert.Equal(t, "2004", p.Founded)
}

func TestBuildLinkedInURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://www.linkedin.com/company/smith-and-sons", buildLinkedInURL("Smith & Sons Pty Ltd"))
	assert.Equal(t, "https://www.linkedin.com/company/acme", buildLinkedInURL("  ACME  "))
}

func TestContactsAdapter(t *testing.T) {
	t.Parallel()
	ap := &fakeApollo{people: []apollo.Person{
		{FirstName: "Tom", LastName: "Smith", Title: "Operations Manager", Seniority: "manager",
			PhoneNumbers: []apollo.PhoneNumber{{RawNumber: "(03) 9123 4567"}}},
		{Name: "Jane Citizen", Title: "CEO", Seniority: "c_suite", Email: "jane@acme.com.au"},
		{Name: "", Title: "ghost"},
	}}

	r := NewContactsAdapter(ap, "au").Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	assert.Equal(t, []string{"acme.com.au"}, ap.req.OrganizationDomains)

	cs := r.Payload.(*model.ContactsPayload).Contacts
	require.Len(t, cs, 2)
	assert.Equal(t, "Jane Citizen", cs[0].Name)
	assert.Equal(t, "Tom Smith", cs[1].Name)
	assert.Equal(t, "+61391234567", cs[1].Phone)
}

func TestContactsAdapter_ByNameWithoutDomain(t *testing.T) {
	t.Parallel()
	ap := &fakeApollo{}
	r := NewContactsAdapter(ap, "").Fetch(context.Background(), model.CompanyQuery{Name: "Acme"})
	assert.False(t, r.Success)
	assert.Equal(t, "Acme", ap.req.OrganizationName)
	assert.Empty(t, ap.req.OrganizationDomains)
	assert.Equal(t, "no data found", r.Error)
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "+61412345678", NormalizePhone("0412 345 678", "AU"))
	assert.Equal(t, "+16502530000", NormalizePhone("+1 650-253-0000", "AU"))
	assert.Empty(t, NormalizePhone("12", "AU"))
	assert.Empty(t, NormalizePhone("", "AU"))
}

func TestSortContacts(t *testing.T) {
	t.Parallel()
	cs := []model.Contact{
		{Name: "Zed", Seniority: "unknown"},
		{Name: "Bea", Seniority: "director"},
		{Name: "Al", Seniority: "founder"},
		{Name: "Ann", Seniority: "director"},
	}
	SortContacts(cs)
	names := []string{cs[0].Name, cs[1].Name, cs[2].Name, cs[3].Name}
	assert.Equal(t, []string{"Al", "Ann", "Bea", "Zed"}, names)
}

func TestSearchAdapter(t *testing.T) {
	t.Parallel()
	var data []jina.SearchResult
	for i := range 12 {
		data = append(data, jina.SearchResult{Title: "Result", URL: "https://example.com/" + string(rune('a'+i)), Content: "body"})
	}
	jc := &fakeJina{search: func(_ context.Context, q string, _ ...jina.SearchOption) (*jina.SearchResponse, error) {
		return &jina.SearchResponse{Data: data}, nil
	}}

	r := NewSearchAdapter(jc).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.SearchPayload)
	assert.Len(t, p.Results, maxSearchResults)
	assert.Equal(t, "body", p.Results[0].Snippet)
	assert.Equal(t, []string{`"Acme Logistics Pty Ltd" acme.com.au`}, jc.queries)
}

func TestBrowserAdapter(t *testing.T) {
	t.Parallel()
	ok := NewBrowserAdapter(&fakeScraper{name: "firecrawl", result: &scrape.Result{URL: "https://acme.com.au", Title: "Acme", Markdown: " rendered "}})
	r := ok.Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	assert.Equal(t, "rendered", r.Payload.(*model.BrowserPayload).Markdown)

	empty := NewBrowserAdapter(&fakeScraper{name: "firecrawl", result: &scrape.Result{}})
	r = empty.Fetch(context.Background(), acme)
	assert.False(t, r.Success)
	assert.Equal(t, "no data found", r.Error)
}

func TestJobsAdapter_JSONLD(t *testing.T) {
	t.Parallel()
	page := `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
 {"@type":"Organization","name":"Acme"},
 {"@type":"JobPosting","title":"Warehouse Supervisor","datePosted":"2026-09-01","url":"/careers/ws",
  "jobLocation":{"@type":"Place","address":{"addressLocality":"Dandenong","addressRegion":"VIC"}}}
]}</script></head><body></body></html>`
	f := &fakeFetcher{pages: map[string]string{"https://acme.com.au/careers": page}}
	jc := &fakeJina{}

	r := NewJobsAdapter(f, jc, nil).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.JobsPayload)
	assert.Equal(t, "https://acme.com.au/careers", p.CareersURL)
	require.Len(t, p.Listings, 1)
	assert.Equal(t, "Warehouse Supervisor", p.Listings[0].Title)
	assert.Contains(t, p.Listings[0].Location, "Dandenong")
	assert.Empty(t, jc.queries, "board search skipped when careers page has listings")
}

func TestJobsAdapter_JobCards(t *testing.T) {
	t.Parallel()
	page := `<html><body><ul>
<li class="job-card"><h3>Fleet Manager</h3><span class="location">Sydney</span><a href="/jobs/1">Apply</a></li>
<li class="job-card"><h3>Driver</h3><span class="location">Brisbane</span><a href="/jobs/2">Apply</a></li>
</ul></body></html>`
	f := &fakeFetcher{pages: map[string]string{"https://acme.com.au/jobs": page}}

	r := NewJobsAdapter(f, nil, nil).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	ls := r.Payload.(*model.JobsPayload).Listings
	require.Len(t, ls, 2)
	assert.Equal(t, "Fleet Manager", ls[0].Title)
	assert.Equal(t, "Sydney", ls[0].Location)
	assert.Equal(t, "https://acme.com.au/jobs/1", ls[0].URL)
}

func TestJobsAdapter_BoardFallback(t *testing.T) {
	t.Parallel()
	jc := &fakeJina{search: func(_ context.Context, q string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
		assert.Len(t, opts, len(DefaultJobBoards))
		return &jina.SearchResponse{Data: []jina.SearchResult{
			{Title: "Forklift Operator - Acme Logistics", URL: "https://www.seek.com.au/job/123", Description: "Full time"},
		}}, nil
	}}

	r := NewJobsAdapter(&fakeFetcher{}, jc, nil).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	ls := r.Payload.(*model.JobsPayload).Listings
	require.Len(t, ls, 1)
	assert.Equal(t, "seek.com.au", ls[0].Board)
	assert.Equal(t, []string{`"Acme Logistics Pty Ltd" jobs`}, jc.queries)
}

func TestJobsAdapter_NothingFound(t *testing.T) {
	t.Parallel()
	r := NewJobsAdapter(&fakeFetcher{}, nil, nil).Fetch(context.Background(), acme)
	assert.False(t, r.Success)
	assert.Equal(t, "not found (HTTP 404)", r.Error)
}

const newsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>news</title>
<item><title>Acme wins freight contract - The Age</title><link>https://n/1</link>
<pubDate>Mon, 01 Sep 2026 08:00:00 GMT</pubDate><source url="https://theage.com.au">The Age</source></item>
<item><title>Acme opens Perth depot - WA Today</title><link>https://n/2</link>
<pubDate>Fri, 10 Oct 2026 08:00:00 GMT</pubDate><source url="https://watoday.com.au">WA Today</source></item>
<item><title>Acme CEO interview</title><link>https://n/3</link><pubDate>not a date</pubDate></item>
</channel></rss>`

func TestNewsAdapter(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"Acme Logistics Pty Ltd"`, r.URL.Query().Get("q"))
		assert.Equal(t, "en-AU", r.URL.Query().Get("hl"))
		assert.Equal(t, "AU", r.URL.Query().Get("gl"))
		assert.Equal(t, "AU:en", r.URL.Query().Get("ceid"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(newsFeed))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{HostRate: 1000, HostBurst: 10, BaseBackoff: time.Millisecond})
	r := NewNewsAdapter(f, srv.URL, "en-AU", 10).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)

	as := r.Payload.(*model.NewsPayload).Articles
	require.Len(t, as, 3)
	assert.Equal(t, "Acme opens Perth depot", as[0].Title)
	assert.Equal(t, "WA Today", as[0].Source)
	assert.Equal(t, "Acme wins freight contract", as[1].Title)
	assert.True(t, as[2].Published.IsZero())
}

func TestNewsAdapter_Limit(t *testing.T) {
	t.Parallel()
	f := &fakeFetcher{pages: map[string]string{}}
	a := NewNewsAdapter(f, "https://feed.test/rss", "en-AU", 1)
	f.pages[a.feedFor(acme)] = newsFeed

	r := a.Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	assert.Len(t, r.Payload.(*model.NewsPayload).Articles, 1)
}

func TestNewsAdapter_FeedError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{HostRate: 1000, HostBurst: 10})
	r := NewNewsAdapter(f, srv.URL, "en-AU", 10).Fetch(context.Background(), acme)
	assert.False(t, r.Success)
	assert.Equal(t, "authentication failed (HTTP 403)", r.Error)
}

func TestCleanHeadline(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Big news", cleanHeadline(" Big news - ABC ", "ABC"))
	assert.Equal(t, "Big news - ABC", cleanHeadline("Big news - ABC", ""))
}

func TestRegistryAdapter(t *testing.T) {
	t.Parallel()
	client := &fakeABR{
		names: []abr.Name{
			{Abn: "11 111 111 111", Name: "ACME HOLDINGS", IsCurrent: true, Score: 99, State: "NSW"},
			{Abn: "22 222 222 222", Name: "Acme Logistics Pty. Ltd.", IsCurrent: true, Score: 90, State: "VIC", AbnStatus: "Active"},
			{Abn: "33 333 333 333", Name: "Acme Logistics", IsCurrent: false, Score: 100},
			{Abn: "22 222 222 222", Name: "ACME LOGISTICS", IsCurrent: true, Score: 80},
		},
		details: &abr.Details{
			EntityName:             "ACME LOGISTICS PTY LTD",
			EntityTypeName:         "Australian Private Company",
			AbnStatusEffectiveFrom: "1998-07-01",
		},
	}

	r := NewRegistryAdapter(client).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	recs := r.Payload.(*model.RegistryPayload).Records
	require.Len(t, recs, 2)
	assert.Equal(t, "22222222222", recs[0].Number)
	assert.Equal(t, "ACME LOGISTICS PTY LTD", recs[0].Name)
	assert.Equal(t, "Australian Private Company", recs[0].EntityType)
	assert.Equal(t, "1998-07-01", recs[0].Registered)
	assert.Equal(t, "Active", recs[0].Status)
	assert.Equal(t, "11111111111", recs[1].Number)
	assert.Equal(t, "22222222222", client.detailsFor)
}

func TestRegistryAdapter_DetailsFailureIsNonFatal(t *testing.T) {
	t.Parallel()
	client := &fakeABR{
		names:      []abr.Name{{Abn: "22222222222", Name: "Acme Logistics", IsCurrent: true, Score: 90}},
		detailsErr: eris.New("abr: details timeout"),
	}
	r := NewRegistryAdapter(client).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	assert.Empty(t, r.Payload.(*model.RegistryPayload).Records[0].EntityType)
}

func TestRegistryAdapter_NoName(t *testing.T) {
	t.Parallel()
	r := NewRegistryAdapter(&fakeABR{}).Fetch(context.Background(), model.CompanyQuery{Domain: "acme.com.au"})
	assert.False(t, r.Success)
}

func TestPlacesAdapter_PrefersDomainMatch(t *testing.T) {
	t.Parallel()
	mc := mocks.NewMockClient(t)
	mc.On("TextSearch", mock.Anything, "Acme Logistics Pty Ltd").Return(&google.TextSearchResponse{Places: []google.Place{
		{DisplayName: google.DisplayName{Text: "Acme Hardware"}, WebsiteURI: "https://acmehardware.com"},
		{DisplayName: google.DisplayName{Text: "Acme Logistics"}, WebsiteURI: "https://www.acme.com.au/", Rating: 4.4, UserRatingCount: 52, FormattedAddress: "1 Dock Rd, Dandenong VIC"},
	}}, nil)

	r := NewPlacesAdapter(mc).Fetch(context.Background(), acme)
	require.True(t, r.Success, r.Error)
	p := r.Payload.(*model.PlacesPayload)
	assert.Equal(t, "Acme Logistics", p.Name)
	assert.InDelta(t, 4.4, p.Rating, 0.001)
	assert.Equal(t, 52, p.RatingCount)
}

func TestPlacesAdapter_Empty(t *testing.T) {
	t.Parallel()
	mc := mocks.NewMockClient(t)
	mc.On("TextSearch", mock.Anything, mock.Anything).Return(&google.TextSearchResponse{}, nil)

	r := NewPlacesAdapter(mc).Fetch(context.Background(), acme)
	assert.False(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Error, "no data"))
}
