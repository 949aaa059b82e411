package tools

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sells-group/prospect-research/internal/workflow"
)

// ErrorResult creates a tool error result. IsError lets the calling agent
// see the failure and correct its input.
func ErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// JSONResult creates a success result holding v as indented JSON.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("internal_error: encode result: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// errorText formats err as "<kind>: <cause>".
func errorText(err error) string {
	if workflow.KindOf(err) != "" {
		return err.Error()
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return string(workflow.KindPrecondition) + ": invalid input: " + describeValidation(verrs)
	}
	return "internal_error: " + err.Error()
}

func describeValidation(verrs validator.ValidationErrors) string {
	var out string
	for i, fe := range verrs {
		if i > 0 {
			out += "; "
		}
		out += fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			out += "=" + fe.Param()
		}
	}
	return out
}
