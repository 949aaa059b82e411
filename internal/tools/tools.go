// Package tools exposes the research workflow as MCP tools.
package tools

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/store"
	"github.com/sells-group/prospect-research/internal/workflow"
)

// Service is the workflow surface the tools call. *workflow.Controller
// implements it.
type Service interface {
	Research(ctx context.Context, company string) (*workflow.ResearchResult, error)
	CreateProfile(ctx context.Context, prospectID string) (*workflow.ProfileResult, error)
	GetProspectData(ctx context.Context, prospectID string, includeContent bool) (*workflow.ProspectData, error)
	Search(ctx context.Context, f store.SearchFilter) ([]model.Prospect, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Register adds every prospect tool to server.
func Register(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "research_prospect",
		Description: "Research a company by name or domain. Collects public sources, analyses them " +
			"and writes a research report. Returns the prospect ID for create_profile.",
	}, NewResearchHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name: "create_profile",
		Description: "Write a prospect profile and outreach strategy for a researched prospect. " +
			"Fails with precondition_failed if research_prospect has not completed.",
	}, NewProfileHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_prospect_data",
		Description: "Read a prospect's metadata and, optionally, the text of its documents",
	}, NewGetProspectDataHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_prospects",
		Description: "List researched prospects filtered by name or domain text, status and domain presence",
	}, NewSearchHandler(svc))
}

// logCall records a tool invocation outcome.
func logCall(tool string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("tool", tool), zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		zap.L().Warn("tools: call failed", append(fields, zap.Error(err))...)
		return
	}
	zap.L().Info("tools: call complete", fields...)
}
