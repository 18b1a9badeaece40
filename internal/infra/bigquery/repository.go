package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Repository holds one shared BigQuery client for all finyx tables. It
// implements every interface in internal/store; construct it once and pass
// it to the services that need it.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// NewRepository creates a repository with its own client. Close releases it.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// NewRepositoryWithClient wraps an existing client; the caller keeps
// ownership of the client's lifecycle.
func NewRepositoryWithClient(client *bigquery.Client, dataset string) *Repository {
	return &Repository{client: client, dataset: dataset}
}

func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) string {
	return r.dataset + "." + name
}

// runDML executes a parameterized statement and waits for the job to settle.
func (r *Repository) runDML(ctx context.Context, query string, params []bigquery.QueryParameter) error {
	q := r.client.Query(query)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
