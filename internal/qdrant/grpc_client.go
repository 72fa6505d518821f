package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/docqad/internal/logging"
)

// GRPCClient implements the Client interface on Qdrant's official Go client.
type GRPCClient struct {
	client *qdrant.Client
	config *ClientConfig
	logger *logging.Logger
}

// ClientConfig configures the Qdrant gRPC client.
type ClientConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// UseTLS enables TLS encryption for the gRPC connection.
	// Default: false (for local development)
	UseTLS bool

	// APIKey is the optional API key for authentication.
	// Leave empty for local development.
	APIKey string

	// MaxMessageSize is the maximum gRPC message size in bytes. Upsert
	// batches carry full chunk text, so the ceiling is generous.
	// Default: 50MB
	MaxMessageSize int

	// DialTimeout is the timeout for establishing the connection.
	// Default: 5 seconds
	DialTimeout time.Duration

	// RequestTimeout is the default timeout for individual requests.
	// Default: 30 seconds
	RequestTimeout time.Duration

	// RetryAttempts is the number of retry attempts for transient failures.
	// Default: 3
	RetryAttempts int
}

// DefaultClientConfig returns sensible defaults for local development.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Host:           "localhost",
		Port:           6334,
		UseTLS:         false,
		MaxMessageSize: 50 * 1024 * 1024, // 50MB
		DialTimeout:    5 * time.Second,
		RequestTimeout: 30 * time.Second,
		RetryAttempts:  3,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *ClientConfig) ApplyDefaults() {
	defaults := DefaultClientConfig()

	if c.Host == "" {
		c.Host = defaults.Host
	}
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaults.RetryAttempts
	}
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size: %d (must be > 0)", c.MaxMessageSize)
	}
	return nil
}

// NewGRPCClient creates a Qdrant gRPC client and verifies the connection.
func NewGRPCClient(config *ClientConfig, logger *logging.Logger) (*GRPCClient, error) {
	if config == nil {
		config = DefaultClientConfig()
	}

	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	qdrantConfig := &qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		APIKey: config.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	}

	// For non-TLS connections, explicitly set insecure credentials
	if !config.UseTLS {
		qdrantConfig.GrpcOptions = append(qdrantConfig.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	grpcClient := &GRPCClient{
		client: client,
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	logger.Info(ctx, "connecting to qdrant",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
	)

	if err := grpcClient.Health(ctx); err != nil {
		_ = client.Close()
		logger.Error(ctx, "qdrant health check failed",
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
			zap.Error(err),
		)
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	logger.Info(ctx, "qdrant connection established",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
	)

	return grpcClient, nil
}

// Health performs a health check on the Qdrant connection.
func (c *GRPCClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	_, err := c.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// CreateCollection creates a cosine-distance collection. Vectors are stored
// with INT8 scalar quantization held in RAM; searches rescore candidates
// against the original vectors, so result quality is preserved.
func (c *GRPCClient) CreateCollection(ctx context.Context, name string, vectorSize uint64) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	return c.retryOperation(ctx, func() error {
		return c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
			QuantizationConfig: &qdrant.QuantizationConfig{
				Quantization: &qdrant.QuantizationConfig_Scalar{
					Scalar: &qdrant.ScalarQuantization{
						Type:      qdrant.QuantizationType_Int8,
						AlwaysRam: qdrant.PtrOf(true),
					},
				},
			},
		})
	})
}

// CollectionExists checks if a collection exists.
func (c *GRPCClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var exists bool
	err := c.retryOperation(ctx, func() error {
		result, err := c.client.CollectionExists(ctx, name)
		if err != nil {
			return err
		}
		exists = result
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Upsert inserts or updates points in a collection.
func (c *GRPCClient) Upsert(ctx context.Context, collection string, points []*Point) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, point := range points {
		qdrantPoints[i] = convertToQdrantPoint(point)
	}

	return c.retryOperation(ctx, func() error {
		_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         qdrantPoints,
		})
		return err
	})
}

// Search performs similarity search in a collection. Quantized candidates
// are rescored against original vectors before the final ranking.
func (c *GRPCClient) Search(ctx context.Context, collection string, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var results []*qdrant.ScoredPoint
	err := c.retryOperation(ctx, func() error {
		var qdrantFilter *qdrant.Filter
		if filter != nil {
			qdrantFilter = convertToQdrantFilter(filter)
		}

		res, err := c.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         qdrantFilter,
			Params: &qdrant.SearchParams{
				Quantization: &qdrant.QuantizationSearchParams{
					Rescore: qdrant.PtrOf(true),
				},
			},
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	scoredPoints := make([]*ScoredPoint, len(results))
	for i, result := range results {
		scoredPoints[i] = convertFromQdrantScoredPoint(result)
	}
	return scoredPoints, nil
}

// DeleteByFilter removes every point matching the filter.
func (c *GRPCClient) DeleteByFilter(ctx context.Context, collection string, filter *Filter) error {
	if filter == nil {
		return fmt.Errorf("filter is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	return c.retryOperation(ctx, func() error {
		_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: convertToQdrantFilter(filter),
				},
			},
		})
		return err
	})
}

// Close closes the client connection.
func (c *GRPCClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (c *GRPCClient) retryOperation(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := time.Second
	startTime := time.Now()

	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				c.logger.Info(ctx, "operation recovered after retries",
					zap.Int("attempts", attempt),
					zap.Duration("total_time", time.Since(startTime)),
				)
			}
			return nil
		}

		lastErr = err

		if !isTransientError(err) {
			return err
		}

		if attempt == c.config.RetryAttempts {
			break
		}

		c.logger.Debug(ctx, "retrying operation after transient error",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.config.RetryAttempts),
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	c.logger.Warn(ctx, "operation failed after all retries exhausted",
		zap.Int("total_attempts", c.config.RetryAttempts+1),
		zap.Duration("total_time", time.Since(startTime)),
		zap.Error(lastErr),
	)

	return fmt.Errorf("operation failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// isTransientError checks if an error is transient and should be retried.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// Helper conversion functions

func convertToQdrantPoint(p *Point) *qdrant.PointStruct {
	payload := make(map[string]*qdrant.Value)
	for k, v := range p.Payload {
		payload[k] = convertToQdrantValue(v)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(p.ID),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: payload,
	}
}

func convertToQdrantValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	default:
		// Fallback to string representation
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

func convertFromQdrantScoredPoint(p *qdrant.ScoredPoint) *ScoredPoint {
	return &ScoredPoint{
		Point: Point{
			ID:      extractPointID(p.Id),
			Payload: extractPayload(p.Payload),
		},
		Score: p.Score,
	}
}

func extractPointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	if num := id.GetNum(); num != 0 {
		return fmt.Sprintf("%d", num)
	}
	return ""
}

func extractPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	if payload == nil {
		return nil
	}

	result := make(map[string]interface{})
	for k, v := range payload {
		result[k] = extractValue(v)
	}
	return result
}

func extractValue(v *qdrant.Value) interface{} {
	if v == nil {
		return nil
	}

	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

func convertToQdrantFilter(f *Filter) *qdrant.Filter {
	if f == nil {
		return nil
	}

	filter := &qdrant.Filter{}

	if len(f.Must) > 0 {
		filter.Must = make([]*qdrant.Condition, len(f.Must))
		for i, cond := range f.Must {
			filter.Must[i] = convertToQdrantCondition(cond)
		}
	}

	if len(f.Should) > 0 {
		filter.Should = make([]*qdrant.Condition, len(f.Should))
		for i, cond := range f.Should {
			filter.Should[i] = convertToQdrantCondition(cond)
		}
	}

	if len(f.MustNot) > 0 {
		filter.MustNot = make([]*qdrant.Condition, len(f.MustNot))
		for i, cond := range f.MustNot {
			filter.MustNot[i] = convertToQdrantCondition(cond)
		}
	}

	return filter
}

func convertToQdrantCondition(c Condition) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: c.Field,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: c.Keyword},
				},
			},
		},
	}
}

// Ensure GRPCClient implements Client interface
var _ Client = (*GRPCClient)(nil)
