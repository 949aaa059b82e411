package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/store"
	"github.com/sells-group/prospect-research/internal/workflow"
)

// ResearchInput is the research_prospect argument set.
type ResearchInput struct {
	Company string `json:"company" jsonschema:"Company name or website domain, e.g. Acme Pty Ltd or acme.com.au" validate:"required,max=200"`
}

// ResearchOutput is the research_prospect result.
type ResearchOutput struct {
	ProspectID        string              `json:"prospect_id"`
	DocumentPath      string              `json:"document_path"`
	Status            string              `json:"status"`
	EnhancementStatus string              `json:"enhancement_status"`
	FallbackReason    string              `json:"fallback_reason,omitempty"`
	SourcesSucceeded  int                 `json:"sources_succeeded"`
	SourcesAttempted  int                 `json:"sources_attempted"`
	SourceErrors      []model.SourceError `json:"source_errors"`
}

// NewResearchHandler creates the research_prospect handler.
func NewResearchHandler(svc Service) mcp.ToolHandlerFor[ResearchInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ResearchInput) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		if err := validate.Struct(in); err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		res, err := svc.Research(ctx, in.Company)
		logCall("research_prospect", start, err, zap.String("company", in.Company))
		if err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		return JSONResult(NewResearchOutput(res)), nil, nil
	}
}

// NewResearchOutput converts a workflow result to its wire form.
func NewResearchOutput(res *workflow.ResearchResult) ResearchOutput {
	errs := res.SourceErrors
	if errs == nil {
		errs = []model.SourceError{}
	}
	return ResearchOutput{
		ProspectID:        res.Prospect.ID,
		DocumentPath:      res.DocumentPath,
		Status:            string(res.Prospect.Status),
		EnhancementStatus: string(res.EnhancementStatus),
		FallbackReason:    res.FallbackReason,
		SourcesSucceeded:  res.SourcesSucceeded,
		SourcesAttempted:  res.SourcesAttempted,
		SourceErrors:      errs,
	}
}

// ProfileInput is the create_profile argument set.
type ProfileInput struct {
	ProspectID string `json:"prospect_id" jsonschema:"Prospect ID returned by research_prospect" validate:"required,max=64"`
}

// ProfileOutput is the create_profile result.
type ProfileOutput struct {
	ProspectID        string `json:"prospect_id"`
	DocumentPath      string `json:"document_path"`
	Status            string `json:"status"`
	EnhancementStatus string `json:"enhancement_status"`
	FallbackReason    string `json:"fallback_reason,omitempty"`
}

// NewProfileHandler creates the create_profile handler.
func NewProfileHandler(svc Service) mcp.ToolHandlerFor[ProfileInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ProfileInput) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		if err := validate.Struct(in); err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		res, err := svc.CreateProfile(ctx, in.ProspectID)
		logCall("create_profile", start, err, zap.String("prospect_id", in.ProspectID))
		if err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		return JSONResult(NewProfileOutput(res)), nil, nil
	}
}

// NewProfileOutput converts a workflow result to its wire form.
func NewProfileOutput(res *workflow.ProfileResult) ProfileOutput {
	return ProfileOutput{
		ProspectID:        res.Prospect.ID,
		DocumentPath:      res.DocumentPath,
		Status:            string(res.Prospect.Status),
		EnhancementStatus: string(res.EnhancementStatus),
		FallbackReason:    res.FallbackReason,
	}
}

// GetProspectDataInput is the get_prospect_data argument set.
type GetProspectDataInput struct {
	ProspectID     string `json:"prospect_id" jsonschema:"Prospect ID" validate:"required,max=64"`
	IncludeContent bool   `json:"include_content,omitempty" jsonschema:"Include the full text of existing documents"`
}

// ProspectMetadata is the stored record plus document locations.
type ProspectMetadata struct {
	model.Prospect
	ResearchDocument string `json:"research_document,omitempty"`
	ProfileDocument  string `json:"profile_document,omitempty"`
}

// GetProspectDataOutput is the get_prospect_data result.
type GetProspectDataOutput struct {
	Metadata     ProspectMetadata `json:"metadata"`
	ResearchText string           `json:"research_text,omitempty"`
	ProfileText  string           `json:"profile_text,omitempty"`
}

// NewGetProspectDataHandler creates the get_prospect_data handler.
func NewGetProspectDataHandler(svc Service) mcp.ToolHandlerFor[GetProspectDataInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in GetProspectDataInput) (*mcp.CallToolResult, any, error) {
		if err := validate.Struct(in); err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		data, err := svc.GetProspectData(ctx, in.ProspectID, in.IncludeContent)
		if err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		return JSONResult(NewGetProspectDataOutput(data)), nil, nil
	}
}

// NewGetProspectDataOutput converts stored prospect data to its wire form.
func NewGetProspectDataOutput(data *workflow.ProspectData) GetProspectDataOutput {
	return GetProspectDataOutput{
		Metadata: ProspectMetadata{
			Prospect:         *data.Prospect,
			ResearchDocument: data.ResearchPath,
			ProfileDocument:  data.ProfilePath,
		},
		ResearchText: data.ResearchText,
		ProfileText:  data.ProfileText,
	}
}

// SearchInput is the search_prospects argument set.
type SearchInput struct {
	Query     string `json:"query,omitempty" jsonschema:"Text to match against company name or domain" validate:"max=200"`
	Status    string `json:"status,omitempty" jsonschema:"Workflow status: pending, researching, researched, profiling, complete or failed" validate:"omitempty,oneof=pending researching researched profiling complete failed"`
	HasDomain *bool  `json:"has_domain,omitempty" jsonschema:"Only prospects with (true) or without (false) a known domain"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Max results 1-200, default 50" validate:"gte=0,lte=200"`
}

// SearchOutput is the search_prospects result.
type SearchOutput struct {
	Prospects []model.Prospect `json:"prospects"`
	Count     int              `json:"count"`
}

// NewSearchHandler creates the search_prospects handler.
func NewSearchHandler(svc Service) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
		if err := validate.Struct(in); err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		found, err := svc.Search(ctx, store.SearchFilter{
			Query:     in.Query,
			Status:    model.ProspectStatus(in.Status),
			HasDomain: in.HasDomain,
			Limit:     in.Limit,
		})
		if err != nil {
			return ErrorResult(errorText(err)), nil, nil
		}
		if found == nil {
			found = []model.Prospect{}
		}
		return JSONResult(SearchOutput{Prospects: found, Count: len(found)}), nil, nil
	}
}
