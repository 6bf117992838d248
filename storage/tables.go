package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// TableKV persists logical keys as rows of a single Azure table: one entity
// per key, the JSON payload in a Data column, all rows under one partition.
type TableKV struct {
	table     *aztables.Client
	partition string
}

// NewTableKV creates a table-backed KV from the given connection string.
func NewTableKV(connStr, tableName, partition string) (*TableKV, error) {
	if partition == "" {
		return nil, errors.New("storage: table partition required")
	}
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableKV{table: svc.NewClient(tableName), partition: partition}, nil
}

type kvEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

func decodeKVEntity(data []byte) ([]byte, error) {
	var ent kvEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return nil, err
	}
	return []byte(ent.Data), nil
}

func (t *TableKV) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := t.table.GetEntity(ctx, t.partition, key, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeKVEntity(resp.Value)
}

func (t *TableKV) Set(ctx context.Context, key string, value []byte) error {
	ent := kvEntity{
		Entity: aztables.Entity{PartitionKey: t.partition, RowKey: key},
		Data:   string(value),
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = t.table.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func (t *TableKV) Delete(ctx context.Context, key string) error {
	_, err := t.table.DeleteEntity(ctx, t.partition, key, nil)
	if isStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
