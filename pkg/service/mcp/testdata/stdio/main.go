package main

import (
	"context"
	"log"

	"github.com/m-mizutani/farmassist/pkg/tool"
	"github.com/m-mizutani/farmassist/pkg/tool/disease"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	registry := tool.New(disease.New())
	if err := registry.Init(context.Background()); err != nil {
		log.Fatalf("failed to init tools: %v", err)
	}

	if err := registry.Server().Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
