package model

import (
	"sort"
	"time"
)

// SourceError records one adapter failure in a bundle's error manifest.
type SourceError struct {
	Source SourceName `json:"source"`
	Error  string     `json:"error"`
}

// AggregateBundle is the merged, possibly partial, view of every adapter
// result for one research run. A bundle with zero successes is valid.
type AggregateBundle struct {
	Query       CompanyQuery                   `json:"query"`
	Results     map[SourceName]RawSourceResult `json:"results"`
	Errors      []SourceError                  `json:"errors"`
	Attempted   int                            `json:"attempted"`
	Succeeded   int                            `json:"succeeded"`
	CollectedAt time.Time                      `json:"collected_at"`
}

// NewBundle creates an empty bundle for q.
func NewBundle(q CompanyQuery) *AggregateBundle {
	return &AggregateBundle{
		Query:   q,
		Results: make(map[SourceName]RawSourceResult),
	}
}

// Add records r. A second result for the same source replaces the first
// and the counters are adjusted accordingly.
func (b *AggregateBundle) Add(r RawSourceResult) {
	if prev, ok := b.Results[r.Source]; ok {
		b.Attempted--
		if prev.Success {
			b.Succeeded--
		} else {
			b.dropError(r.Source)
		}
	}

	b.Results[r.Source] = r
	b.Attempted++
	if r.Success {
		b.Succeeded++
		return
	}

	b.Errors = append(b.Errors, SourceError{Source: r.Source, Error: r.Error})
	sort.SliceStable(b.Errors, func(i, j int) bool {
		return sourceIndex(b.Errors[i].Source) < sourceIndex(b.Errors[j].Source)
	})
}

func (b *AggregateBundle) dropError(src SourceName) {
	kept := b.Errors[:0]
	for _, e := range b.Errors {
		if e.Source != src {
			kept = append(kept, e)
		}
	}
	b.Errors = kept
}

// Completeness returns the fraction of attempted sources that succeeded.
func (b *AggregateBundle) Completeness() float64 {
	if b == nil || b.Attempted == 0 {
		return 0
	}
	return float64(b.Succeeded) / float64(b.Attempted)
}

// SucceededSources lists successful sources in canonical order.
func (b *AggregateBundle) SucceededSources() []SourceName {
	var out []SourceName
	if b == nil {
		return out
	}
	for _, src := range AllSources {
		if r, ok := b.Results[src]; ok && r.Success {
			out = append(out, src)
		}
	}
	return out
}

// Has reports whether src was collected successfully.
func (b *AggregateBundle) Has(src SourceName) bool {
	return b.payload(src) != nil
}

func (b *AggregateBundle) payload(src SourceName) Payload {
	if b == nil {
		return nil
	}
	r, ok := b.Results[src]
	if !ok || !r.Success {
		return nil
	}
	return r.Payload
}

// SourceText pairs a source with its prose.
type SourceText struct {
	Source SourceName
	Text   string
}

// Texts returns non-empty payload prose in canonical source order.
func (b *AggregateBundle) Texts() []SourceText {
	var out []SourceText
	for _, src := range b.SucceededSources() {
		p := b.payload(src)
		if p == nil {
			continue
		}
		if t := p.Text(); t != "" {
			out = append(out, SourceText{Source: src, Text: t})
		}
	}
	return out
}

// The accessors below return the typed payload for each source, or nil when
// the source failed, was not attempted, or carries an unexpected type.

func (b *AggregateBundle) Website() *WebsitePayload {
	p, _ := b.payload(SourceWebsite).(*WebsitePayload)
	return p
}

func (b *AggregateBundle) LinkedIn() *LinkedInPayload {
	p, _ := b.payload(SourceLinkedIn).(*LinkedInPayload)
	return p
}

func (b *AggregateBundle) Contacts() *ContactsPayload {
	p, _ := b.payload(SourceContacts).(*ContactsPayload)
	return p
}

func (b *AggregateBundle) Search() *SearchPayload {
	p, _ := b.payload(SourceSearch).(*SearchPayload)
	return p
}

func (b *AggregateBundle) Browser() *BrowserPayload {
	p, _ := b.payload(SourceBrowser).(*BrowserPayload)
	return p
}

func (b *AggregateBundle) Jobs() *JobsPayload {
	p, _ := b.payload(SourceJobs).(*JobsPayload)
	return p
}

func (b *AggregateBundle) News() *NewsPayload {
	p, _ := b.payload(SourceNews).(*NewsPayload)
	return p
}

func (b *AggregateBundle) Registry() *RegistryPayload {
	p, _ := b.payload(SourceRegistry).(*RegistryPayload)
	return p
}

func (b *AggregateBundle) Places() *PlacesPayload {
	p, _ := b.payload(SourcePlaces).(*PlacesPayload)
	return p
}
