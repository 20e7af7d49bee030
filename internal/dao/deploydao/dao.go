// Package deploydao records deployment history in DynamoDB.
package deploydao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
)

// PK represents a DynamoDB partition key holding the repository full name,
// e.g. savaki/blog
type PK string

// NewPK creates a partition key from a repository full name
func NewPK(repo string) PK {
	return PK(repo)
}

// String returns the string representation of the partition key
func (pk PK) String() string {
	return string(pk)
}

// DeployStatus represents the current status of a deployment
type DeployStatus string

const (
	DeployStatusPending    DeployStatus = "PENDING"
	DeployStatusSkipped    DeployStatus = "SKIPPED"
	DeployStatusDeployed   DeployStatus = "DEPLOYED"
	DeployStatusFailed     DeployStatus = "FAILED"
	DeployStatusRolledBack DeployStatus = "ROLLED_BACK"
)

// Record represents one deployment attempt in DynamoDB
type Record struct {
	PK         PK           `ddb:"hash" dynamodbav:"pk"`  // Repository full name
	SK         string       `ddb:"range" dynamodbav:"sk"` // KSUID - DynamoDB sort key
	Repo       string       `dynamodbav:"repo,omitempty"`
	CommitHash string       `dynamodbav:"commit_hash,omitempty"`
	Bucket     string       `dynamodbav:"bucket,omitempty"`
	Status     DeployStatus `dynamodbav:"status,omitempty"`
	ErrorMsg   *string      `dynamodbav:"error_msg,omitempty"`
	CreatedAt  int64        `dynamodbav:"created_at,omitempty"`             // Unix epoch timestamp of creation
	FinishedAt *int64       `dynamodbav:"finished_at,omitempty,omitempty"`  // Unix epoch timestamp of completion
	UpdatedAt  int64        `dynamodbav:"updated_at,omitempty"`
}

// CreateInput contains the fields needed to create a new deploy record
type CreateInput struct {
	Repo       string // Repository full name
	SK         string // KSUID sort key
	CommitHash string // Head commit SHA
	Bucket     string // Destination bucket name
}

// UpdateInput contains the fields that can be updated on a deploy record
type UpdateInput struct {
	PK       PK            // Partition key (repository full name)
	SK       string        // Sort key (KSUID)
	Status   *DeployStatus // New status
	ErrorMsg *string       // Error message (optional)
}

// TableName derives the deploy table name for an environment
func TableName(env string) string {
	return fmt.Sprintf("site-deployer-deploys-%s", env)
}

// DAO provides data access operations for deploy records
type DAO struct {
	db    *ddb.DDB
	table *ddb.Table
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		db:    db,
		table: table,
	}
}

// Create creates a new deploy record with initial status PENDING
func (d *DAO) Create(ctx context.Context, input CreateInput) (Record, error) {
	now := time.Now().Unix()

	record := Record{
		PK:         NewPK(input.Repo),
		SK:         input.SK,
		Repo:       input.Repo,
		CommitHash: input.CommitHash,
		Bucket:     input.Bucket,
		Status:     DeployStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := d.table.Put(&record).RunWithContext(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create deploy record: %w", err)
	}

	return record, nil
}

// Find retrieves a deploy record by partition and sort key
func (d *DAO) Find(ctx context.Context, pk PK, sk string) (Record, error) {
	var record Record

	err := d.table.Get(pk.String()).
		Range(sk).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return Record{}, fmt.Errorf("deploy record not found: %s:%s", pk, sk)
		}
		return Record{}, fmt.Errorf("failed to find deploy record: %w", err)
	}

	if record.PK == "" && record.SK == "" {
		return Record{}, fmt.Errorf("deploy record not found: %s:%s", pk, sk)
	}

	return record, nil
}

// UpdateStatus updates the status of a deploy record. Terminal states also
// set the finished timestamp.
func (d *DAO) UpdateStatus(ctx context.Context, input UpdateInput) error {
	if input.Status == nil {
		return fmt.Errorf("status is required")
	}

	now := time.Now().Unix()

	update := d.table.Update(input.PK.String()).
		Range(input.SK).
		Set("#Status = ?", string(*input.Status)).
		Set("#UpdatedAt = ?", now)

	switch *input.Status {
	case DeployStatusDeployed, DeployStatusFailed, DeployStatusRolledBack, DeployStatusSkipped:
		update = update.Set("#FinishedAt = ?", now)
	}

	if input.ErrorMsg != nil {
		update = update.Set("#ErrorMsg = ?", *input.ErrorMsg)
	}

	if err := update.RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to update deploy record: %w", err)
	}

	return nil
}

// Query returns all deploys for a repository
func (d *DAO) Query(ctx context.Context, pk PK) ([]Record, error) {
	var records []Record

	err := d.table.Query("#PK = ?", pk.String()).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query deploys: %w", err)
	}

	return records, nil
}
