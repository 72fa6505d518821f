package qdrant

import (
	"context"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/docqad/internal/logging"
)

func TestClientConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		config *ClientConfig
		check  func(t *testing.T, cfg *ClientConfig)
	}{
		{
			name:   "empty config gets all defaults",
			config: &ClientConfig{},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, "localhost", cfg.Host)
				assert.Equal(t, 6334, cfg.Port)
				assert.Equal(t, false, cfg.UseTLS)
				assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
				assert.Equal(t, 5*time.Second, cfg.DialTimeout)
				assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
				assert.Equal(t, 3, cfg.RetryAttempts)
			},
		},
		{
			name: "partial config preserves set values",
			config: &ClientConfig{
				Host: "qdrant.example.com",
				Port: 6335,
			},
			check: func(t *testing.T, cfg *ClientConfig) {
				assert.Equal(t, "qdrant.example.com", cfg.Host)
				assert.Equal(t, 6335, cfg.Port)
				assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
				assert.Equal(t, 5*time.Second, cfg.DialTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.ApplyDefaults()
			tt.check(t, tt.config)
		})
	}
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ClientConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           6334,
				MaxMessageSize: 1024,
			},
			wantErr: false,
		},
		{
			name: "missing host",
			config: &ClientConfig{
				Port:           6334,
				MaxMessageSize: 1024,
			},
			wantErr: true,
			errMsg:  "host is required",
		},
		{
			name: "invalid port - zero",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           0,
				MaxMessageSize: 1024,
			},
			wantErr: true,
			errMsg:  "invalid port",
		},
		{
			name: "invalid port - too large",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           65536,
				MaxMessageSize: 1024,
			},
			wantErr: true,
			errMsg:  "invalid port",
		},
		{
			name: "invalid max message size",
			config: &ClientConfig{
				Host:           "localhost",
				Port:           6334,
				MaxMessageSize: 0,
			},
			wantErr: true,
			errMsg:  "invalid max message size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConvertToQdrantPoint(t *testing.T) {
	point := &Point{
		ID:     "0191e9a0-5a7e-7cc3-b1a4-0ee13deb90c5",
		Vector: []float32{0.1, 0.2, 0.3},
		Payload: map[string]interface{}{
			"point_id":          "0191e9a0-5a7e-7cc3-b1a4-0ee13deb90c5",
			"document_id":       "d8f7a3c2-1b4e-4f6a-9c8d-2e5b7a1f3d9c",
			"document_filename": "report.txt",
			"content":           "The quarterly results exceeded expectations.",
			"chunk_index":       3,
			"final":             true,
		},
	}

	qp := convertToQdrantPoint(point)
	require.NotNil(t, qp)
	assert.NotNil(t, qp.Id)
	assert.NotNil(t, qp.Vectors)
	assert.Len(t, qp.Payload, 6)

	assert.Equal(t, "report.txt", qp.Payload["document_filename"].GetStringValue())
	assert.Equal(t, "The quarterly results exceeded expectations.", qp.Payload["content"].GetStringValue())
	assert.Equal(t, int64(3), qp.Payload["chunk_index"].GetIntegerValue())
	assert.Equal(t, true, qp.Payload["final"].GetBoolValue())
}

func TestConvertToQdrantValue_UnknownType(t *testing.T) {
	val := convertToQdrantValue(struct{ Field string }{Field: "test"})
	assert.Contains(t, val.GetStringValue(), "test")
}

func TestConvertToQdrantFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		check  func(t *testing.T, qf *qdrant.Filter)
	}{
		{
			name:   "nil filter",
			filter: nil,
			check: func(t *testing.T, qf *qdrant.Filter) {
				assert.Nil(t, qf)
			},
		},
		{
			name: "document match filter",
			filter: &Filter{
				Must: []Condition{
					{Field: "document_id", Keyword: "d8f7a3c2-1b4e-4f6a-9c8d-2e5b7a1f3d9c"},
				},
			},
			check: func(t *testing.T, qf *qdrant.Filter) {
				require.NotNil(t, qf)
				require.Len(t, qf.Must, 1)

				fieldCond := qf.Must[0].GetField()
				require.NotNil(t, fieldCond)
				assert.Equal(t, "document_id", fieldCond.Key)
				assert.Equal(t, "d8f7a3c2-1b4e-4f6a-9c8d-2e5b7a1f3d9c", fieldCond.Match.GetKeyword())
			},
		},
		{
			name: "filter with Should and MustNot conditions",
			filter: &Filter{
				Should: []Condition{
					{Field: "document_filename", Keyword: "notes.md"},
				},
				MustNot: []Condition{
					{Field: "document_id", Keyword: "excluded"},
				},
			},
			check: func(t *testing.T, qf *qdrant.Filter) {
				require.NotNil(t, qf)
				require.Len(t, qf.Should, 1)
				require.Len(t, qf.MustNot, 1)

				shouldCond := qf.Should[0].GetField()
				assert.Equal(t, "document_filename", shouldCond.Key)
				assert.Equal(t, "notes.md", shouldCond.Match.GetKeyword())

				mustNotCond := qf.MustNot[0].GetField()
				assert.Equal(t, "document_id", mustNotCond.Key)
				assert.Equal(t, "excluded", mustNotCond.Match.GetKeyword())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := convertToQdrantFilter(tt.filter)
			tt.check(t, result)
		})
	}
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]*qdrant.Value
		want    map[string]interface{}
	}{
		{
			name:    "nil payload",
			payload: nil,
			want:    nil,
		},
		{
			name: "mixed value types",
			payload: map[string]*qdrant.Value{
				"content": {Kind: &qdrant.Value_StringValue{StringValue: "chunk text"}},
				"index":   {Kind: &qdrant.Value_IntegerValue{IntegerValue: 42}},
				"score":   {Kind: &qdrant.Value_DoubleValue{DoubleValue: 3.14}},
				"final":   {Kind: &qdrant.Value_BoolValue{BoolValue: true}},
			},
			want: map[string]interface{}{
				"content": "chunk text",
				"index":   int64(42),
				"score":   3.14,
				"final":   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractPayload(tt.payload)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "unavailable error",
			err:  status.Error(codes.Unavailable, "service unavailable"),
			want: true,
		},
		{
			name: "deadline exceeded error",
			err:  status.Error(codes.DeadlineExceeded, "timeout"),
			want: true,
		},
		{
			name: "aborted error",
			err:  status.Error(codes.Aborted, "aborted"),
			want: true,
		},
		{
			name: "resource exhausted error",
			err:  status.Error(codes.ResourceExhausted, "too many requests"),
			want: true,
		},
		{
			name: "not found error - not transient",
			err:  status.Error(codes.NotFound, "not found"),
			want: false,
		},
		{
			name: "invalid argument error - not transient",
			err:  status.Error(codes.InvalidArgument, "bad request"),
			want: false,
		},
		{
			name: "already exists error - not transient",
			err:  status.Error(codes.AlreadyExists, "already exists"),
			want: false,
		},
		{
			name: "non-grpc error - not transient",
			err:  assert.AnError,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isTransientError(tt.err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestExtractPointID(t *testing.T) {
	tests := []struct {
		name string
		id   *qdrant.PointId
		want string
	}{
		{
			name: "nil id",
			id:   nil,
			want: "",
		},
		{
			name: "uuid id",
			id:   qdrant.NewIDUUID("550e8400-e29b-41d4-a716-446655440000"),
			want: "550e8400-e29b-41d4-a716-446655440000",
		},
		{
			name: "numeric id",
			id:   qdrant.NewIDNum(12345),
			want: "12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractPointID(tt.id)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.False(t, cfg.UseTLS)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
}

func TestRetryOperation_Logging(t *testing.T) {
	tests := []struct {
		name          string
		operation     func() error
		retryAttempts int
		expectedLogs  []struct {
			level   zapcore.Level
			message string
		}
	}{
		{
			name: "successful operation - no retries - no logs",
			operation: func() error {
				return nil
			},
			retryAttempts: 3,
			expectedLogs: []struct {
				level   zapcore.Level
				message string
			}{},
		},
		{
			name: "transient error then success - logs retry and recovery",
			operation: func() func() error {
				attempt := 0
				return func() error {
					attempt++
					if attempt == 1 {
						return status.Error(codes.Unavailable, "service unavailable")
					}
					return nil
				}
			}(),
			retryAttempts: 3,
			expectedLogs: []struct {
				level   zapcore.Level
				message string
			}{
				{level: zapcore.DebugLevel, message: "retrying operation after transient error"},
				{level: zapcore.InfoLevel, message: "operation recovered after retries"},
			},
		},
		{
			name: "all retries exhausted - logs all attempts and final failure",
			operation: func() error {
				return status.Error(codes.Unavailable, "service unavailable")
			},
			retryAttempts: 2,
			expectedLogs: []struct {
				level   zapcore.Level
				message string
			}{
				{level: zapcore.DebugLevel, message: "retrying operation after transient error"},
				{level: zapcore.DebugLevel, message: "retrying operation after transient error"},
				{level: zapcore.WarnLevel, message: "operation failed after all retries exhausted"},
			},
		},
		{
			name: "non-transient error - no retry logs",
			operation: func() error {
				return status.Error(codes.InvalidArgument, "bad request")
			},
			retryAttempts: 3,
			expectedLogs: []struct {
				level   zapcore.Level
				message string
			}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testLogger := logging.NewTestLogger()

			client := &GRPCClient{
				config: &ClientConfig{
					RetryAttempts: tt.retryAttempts,
				},
				logger: testLogger.Logger,
			}

			ctx := context.Background()
			_ = client.retryOperation(ctx, tt.operation)

			for _, expectedLog := range tt.expectedLogs {
				testLogger.AssertLogged(t, expectedLog.level, expectedLog.message)
			}
		})
	}
}

func TestRetryOperation_NonTransientReturnsRawError(t *testing.T) {
	client := &GRPCClient{
		config: &ClientConfig{RetryAttempts: 3},
		logger: logging.NewTestLogger().Logger,
	}

	want := status.Error(codes.InvalidArgument, "bad request")
	got := client.retryOperation(context.Background(), func() error {
		return want
	})

	// Non-transient failures come back unwrapped so callers can inspect
	// the gRPC status directly.
	assert.Equal(t, want, got)
}

func TestNewGRPCClient_RequiresLogger(t *testing.T) {
	config := DefaultClientConfig()

	_, err := NewGRPCClient(config, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logger is required")
}
