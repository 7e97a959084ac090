package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/affiliate-ops/internal/config"
)

const indexTTL = 365 * 24 * time.Hour

// S3API is the subset of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DynamoAPI is the subset of the DynamoDB client the archive uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AWSStorage keeps report bodies in S3 and an index of them in DynamoDB.
type AWSStorage struct {
	dynamoDB  DynamoAPI
	s3Client  S3API
	tableName string
	bucket    string
}

// DynamoDBItem represents an index item stored in DynamoDB
type DynamoDBItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// LoadAWSConfig resolves AWS settings. Static keys win over a profile,
// which wins over the default credential chain.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	case cfg.GetProfile() != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.GetProfile()))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewAWSStorage creates an archive on the given bucket and table.
func NewAWSStorage(awsCfg aws.Config, tableName, bucket string) *AWSStorage {
	return &AWSStorage{
		dynamoDB:  dynamodb.NewFromConfig(awsCfg),
		s3Client:  s3.NewFromConfig(awsCfg),
		tableName: tableName,
		bucket:    bucket,
	}
}

func (s *AWSStorage) put(ctx context.Context, ref ReportRef, data interface{}) error {
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ref.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}

	refData, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("marshaling ref: %w", err)
	}
	item := DynamoDBItem{
		PK:        "REPORT#" + ref.Kind,
		SK:        ref.CreatedAt.UTC().Format(time.RFC3339Nano),
		Data:      string(refData),
		Timestamp: ref.CreatedAt.UTC().Format(time.RFC3339),
		TTL:       ref.CreatedAt.Add(indexTTL).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}
	_, err = s.dynamoDB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

func (s *AWSStorage) list(ctx context.Context, kind string, limit int) ([]ReportRef, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "REPORT#" + kind},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	result, err := s.dynamoDB.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}

	refs := make([]ReportRef, 0, len(result.Items))
	for _, item := range result.Items {
		var dbItem DynamoDBItem
		if err := attributevalue.UnmarshalMap(item, &dbItem); err != nil {
			continue
		}
		var ref ReportRef
		if err := json.Unmarshal([]byte(dbItem.Data), &ref); err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *AWSStorage) load(ctx context.Context, key string, dst interface{}) error {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("getting object from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("reading S3 object: %w", err)
	}
	return json.Unmarshal(data, dst)
}
