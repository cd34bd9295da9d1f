package llm

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

// VertexPredictor calls a deployed Vertex AI endpoint.
type VertexPredictor struct {
	client   *aiplatform.PredictionClient
	endpoint string
}

func NewVertexPredictor(ctx context.Context, endpointPath, apiEndpoint, credentialsFile string) (*VertexPredictor, error) {
	opts := []option.ClientOption{option.WithEndpoint(apiEndpoint)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := aiplatform.NewPredictionClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vertex prediction client: %w", err)
	}
	return &VertexPredictor{client: client, endpoint: endpointPath}, nil
}

func (v *VertexPredictor) Predict(ctx context.Context, instances []domain.Instance) ([]domain.Prediction, error) {
	values, err := toValues(instances)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  v.endpoint,
		Instances: values,
	})
	if err != nil {
		return nil, rpcError("vertex predict", err)
	}

	predictions := make([]domain.Prediction, len(resp.GetPredictions()))
	for i, p := range resp.GetPredictions() {
		predictions[i] = p.AsInterface()
	}
	return predictions, nil
}

func (v *VertexPredictor) Close() error {
	return v.client.Close()
}

func toValues(instances []domain.Instance) ([]*structpb.Value, error) {
	values := make([]*structpb.Value, len(instances))
	for i, inst := range instances {
		// structpb only recognises the unnamed map type.
		value, err := structpb.NewValue(map[string]any(inst))
		if err != nil {
			return nil, fmt.Errorf("encoding instance %d: %w", i, err)
		}
		values[i] = value
	}
	return values, nil
}

// rpcError names the gRPC code in the operation so credential and quota failures stand out.
func rpcError(op string, err error) error {
	if code := status.Code(err); code != codes.Unknown && code != codes.OK {
		op = fmt.Sprintf("%s (%s)", op, code)
	}
	return &domain.ServiceError{Op: op, Err: err}
}
