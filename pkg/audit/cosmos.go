package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"speechrelay.dev/config"
)

type itemCreator interface {
	CreateItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
}

var _ Sink = (*CosmosSink)(nil)
var _ itemCreator = (*azcosmos.ContainerClient)(nil)

// CosmosSink inserts one document per record into a Cosmos DB container
// partitioned by /id.
type CosmosSink struct {
	container itemCreator
	database  string
	name      string
}

func NewCosmosSink(cfg config.CosmosConfig) (*CosmosSink, error) {
	cred, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid cosmos key: %w", err)
	}

	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cosmos client: %w", err)
	}

	container, err := client.NewContainer(cfg.Database, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("failed to open cosmos container %s/%s: %w", cfg.Database, cfg.Container, err)
	}

	return newCosmosSinkWithContainer(container, cfg.Database, cfg.Container), nil
}

func newCosmosSinkWithContainer(container itemCreator, database string, name string) *CosmosSink {
	return &CosmosSink{
		container: container,
		database:  database,
		name:      name,
	}
}

func (s *CosmosSink) Name() string {
	return "cosmos"
}

func (s *CosmosSink) Write(ctx context.Context, record Record) error {
	item, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	_, err = s.container.CreateItem(ctx, azcosmos.NewPartitionKeyString(record.ID), item, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			slog.Error("cosmos rejected audit record",
				slog.String("id", record.ID),
				slog.String("database", s.database),
				slog.String("container", s.name),
				slog.Int("status", respErr.StatusCode),
				slog.String("code", respErr.ErrorCode),
			)
		}

		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return nil
}

func (s *CosmosSink) Close(context.Context) error {
	return nil
}
