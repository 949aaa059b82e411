package main

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/workflow"
)

type fakeRunner struct {
	mu       sync.Mutex
	research []string
	profiled []string
}

func (f *fakeRunner) Research(_ context.Context, company string) (*workflow.ResearchResult, error) {
	f.mu.Lock()
	f.research = append(f.research, company)
	f.mu.Unlock()
	if strings.HasPrefix(company, "bad") {
		return nil, &workflow.Error{Kind: workflow.KindPersistence, Op: "research", Err: eris.New("disk full")}
	}
	return &workflow.ResearchResult{
		Prospect:          &model.Prospect{ID: "id-" + company, Company: company, Status: model.StatusResearched},
		EnhancementStatus: model.EnhancementDisabled,
	}, nil
}

func (f *fakeRunner) CreateProfile(_ context.Context, id string) (*workflow.ProfileResult, error) {
	f.mu.Lock()
	f.profiled = append(f.profiled, id)
	f.mu.Unlock()
	if strings.Contains(id, "noprofile") {
		return nil, eris.New("analysis store offline")
	}
	return &workflow.ProfileResult{Prospect: &model.Prospect{ID: id, Status: model.StatusComplete}}, nil
}

func TestProcessBatch(t *testing.T) {
	run := &fakeRunner{}
	summary, err := processBatch(context.Background(), run, []string{"acme", "bad-co", "globex"}, batchOptions{concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Succeeded)
	assert.Equal(t, int64(1), summary.Failed)
	assert.ElementsMatch(t, []string{"acme", "bad-co", "globex"}, run.research)
	assert.Empty(t, run.profiled)
}

func TestProcessBatch_Profile(t *testing.T) {
	run := &fakeRunner{}
	summary, err := processBatch(context.Background(), run, []string{"acme", "noprofile-co"}, batchOptions{profile: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Succeeded)
	assert.Equal(t, int64(1), summary.Failed)
	assert.ElementsMatch(t, []string{"id-acme", "id-noprofile-co"}, run.profiled)
}

func TestProcessBatch_Limit(t *testing.T) {
	run := &fakeRunner{}
	summary, err := processBatch(context.Background(), run, []string{"a", "b", "c", "d"}, batchOptions{limit: 2, concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Succeeded)
	assert.Equal(t, []string{"a", "b"}, run.research)
}

func TestProcessBatch_Empty(t *testing.T) {
	summary, err := processBatch(context.Background(), &fakeRunner{}, nil, batchOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.Succeeded)
	assert.Zero(t, summary.Failed)
}
