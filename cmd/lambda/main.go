package main

import (
	"context"
	"encoding/json"

	awslambda "github.com/aws/aws-lambda-go/lambda"

	"serverless-bridge/internal/app"
	"serverless-bridge/pkg/gateway"
)

var adapter *gateway.Adapter

func init() {
	adapter = app.Shared()
}

// handler accepts API Gateway REST (v1) and HTTP API (v2) proxy events as
// well as plain dictionary-style records.
func handler(ctx context.Context, event json.RawMessage) (*gateway.Response, error) {
	return adapter.HandleEvent(ctx, event), nil
}

func main() {
	awslambda.Start(handler)
}
