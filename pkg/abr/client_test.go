package abr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-guid", WithBaseURL(srv.URL), WithRateLimit(1000, 10))
}

func TestMatchingNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/MatchingNames.aspx", r.URL.Path)
		assert.Equal(t, "Acme", r.URL.Query().Get("name"))
		assert.Equal(t, "test-guid", r.URL.Query().Get("guid"))
		assert.Equal(t, "callback", r.URL.Query().Get("callback"))
		assert.Equal(t, "10", r.URL.Query().Get("maxResults"))

		_, _ = w.Write([]byte(`callback({"Message":"","Names":[
			{"Abn":"51824753556","AbnStatus":"0000000001","IsCurrent":true,"Name":"ACME PTY LTD","NameType":"Entity Name","Postcode":"2000","Score":98,"State":"NSW"}
		]})`))
	})

	names, err := c.MatchingNames(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "51824753556", names[0].Abn)
	assert.Equal(t, 98, names[0].Score)
	assert.Equal(t, "NSW", names[0].State)
}

func TestMatchingNames_ServiceMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`callback({"Message":"The GUID entered is not recognised as a Registered Party","Names":[]})`))
	})

	_, err := c.MatchingNames(context.Background(), "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not recognised")
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AbnDetails.aspx", r.URL.Path)
		assert.Equal(t, "51824753556", r.URL.Query().Get("abn"))
		_, _ = w.Write([]byte(`callback({"Abn":"51824753556","AbnStatus":"Active","AbnStatusEffectiveFrom":"2001-05-10",
			"EntityName":"ACME PTY LTD","EntityTypeCode":"PRV","EntityTypeName":"Australian Private Company",
			"AddressState":"NSW","AddressPostcode":"2000","BusinessName":["Acme Rockets"],"Message":""})`))
	})

	d, err := c.Details(context.Background(), "51 824 753 556")
	require.NoError(t, err)
	assert.Equal(t, "Australian Private Company", d.EntityTypeName)
	assert.Equal(t, "2001-05-10", d.AbnStatusEffectiveFrom)
	assert.Equal(t, []string{"Acme Rockets"}, d.BusinessName)
}

func TestGet_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.MatchingNames(context.Background(), "Acme")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus())
}

func TestUnwrapJSONP(t *testing.T) {
	got, err := unwrapJSONP([]byte(` cb({"a":1}); `))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	got, err = unwrapJSONP([]byte(`{"a":2}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(got))

	_, err = unwrapJSONP([]byte(`<html>oops</html>`))
	assert.Error(t, err)
}
