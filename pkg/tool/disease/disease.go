package disease

import (
	"context"

	"github.com/m-mizutani/farmassist/pkg/tool"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const (
	ToolName = "disease_prediction"

	// NotImplemented is returned for every prediction request until a model is available
	NotImplemented = "Disease prediction is not implemented yet."
)

type predictInput struct {
	Img string `json:"img,omitempty" jsonschema:"Base64 encoded image of the crop leaf"`
}

type diseaseTool struct{}

// New creates the crop disease prediction tool
func New() *diseaseTool {
	return &diseaseTool{}
}

func (x *diseaseTool) Name() string { return ToolName }

func (x *diseaseTool) Flags() []cli.Flag { return nil }

func (x *diseaseTool) Init(ctx context.Context) error { return nil }

func (x *diseaseTool) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Predict diseases in crops based on an image of the crop leaf.",
	}, x.handle)
}

func (x *diseaseTool) handle(ctx context.Context, req *mcp.CallToolRequest, input predictInput) (*mcp.CallToolResult, any, error) {
	return tool.TextResult(x.Predict(ctx, input.Img)), nil, nil
}

// Predict returns the prediction for a base64 encoded image. The image is not inspected yet.
func (x *diseaseTool) Predict(ctx context.Context, img string) string {
	return NotImplemented
}
