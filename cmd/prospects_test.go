package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/store"
)

func TestFormatProspects(t *testing.T) {
	updated := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatProspects(&buf, []model.Prospect{
		{ID: "p-1", Company: "Acme Logistics", Domain: "acme.com.au", Status: model.StatusComplete, UpdatedAt: updated},
		{ID: "p-2", Company: "Globex", Status: model.StatusFailed, FailedFrom: model.StatusProfiling, UpdatedAt: updated},
	})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "acme.com.au")
	assert.Contains(t, out, "failed (profiling)")
	assert.Contains(t, out, "2026-10-19 09:30:00")
}

func newSearchCmd() *cobra.Command {
	c := &cobra.Command{}
	addFilterFlags(c)
	return c
}

func TestSearchFilterFromFlags(t *testing.T) {
	c := newSearchCmd()
	require.NoError(t, c.Flags().Set("query", "acme"))
	require.NoError(t, c.Flags().Set("status", "researched"))
	require.NoError(t, c.Flags().Set("has-domain", "false"))

	f, err := searchFilterFromFlags(c)
	require.NoError(t, err)
	assert.Equal(t, "acme", f.Query)
	assert.Equal(t, model.StatusResearched, f.Status)
	require.NotNil(t, f.HasDomain)
	assert.False(t, *f.HasDomain)
	assert.Equal(t, store.DefaultSearchLimit, f.Limit)

	f, err = searchFilterFromFlags(newSearchCmd())
	require.NoError(t, err)
	assert.Nil(t, f.HasDomain)

	c = newSearchCmd()
	require.NoError(t, c.Flags().Set("has-domain", "maybe"))
	_, err = searchFilterFromFlags(c)
	assert.Error(t, err)
}
