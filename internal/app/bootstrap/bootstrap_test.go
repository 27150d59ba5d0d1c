package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func TestOpenBackendSelection(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()

	b, err := OpenBackend(ctx, &appconfig.Config{StorageBackend: appconfig.BackendMemory}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())

	b, err = OpenBackend(ctx, &appconfig.Config{StorageBackend: appconfig.BackendFile, DataDir: t.TempDir()}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "file", b.Name())

	mr := miniredis.RunT(t)
	b, err = OpenBackend(ctx, &appconfig.Config{StorageBackend: appconfig.BackendRedis, RedisAddr: mr.Addr()}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "redis", b.Name())
	require.NoError(t, b.Close())

	_, err = OpenBackend(ctx, &appconfig.Config{StorageBackend: "mongo"}, nil, logger)
	assert.Error(t, err)

	_, err = OpenBackend(ctx, &appconfig.Config{StorageBackend: appconfig.BackendS3}, nil, logger)
	assert.Error(t, err)
}

func TestOpenBackendAWS(t *testing.T) {
	loader := func(context.Context) (aws.Config, error) { return aws.Config{Region: "us-east-1"}, nil }
	b, err := OpenBackend(context.Background(), &appconfig.Config{StorageBackend: appconfig.BackendS3, S3Bucket: "bucket"}, loader, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "s3", b.Name())

	b, err = OpenBackend(context.Background(), &appconfig.Config{StorageBackend: appconfig.BackendDynamo, DynamoTable: "t"}, loader, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "dynamodb", b.Name())
}

func TestOpenBackendUnreachableRedisDegradesToMemory(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	b, err := OpenBackend(context.Background(), &appconfig.Config{StorageBackend: appconfig.BackendRedis, RedisAddr: addr}, nil, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())
}

func TestBuildChatGeneratorDisabledWithoutKey(t *testing.T) {
	gen, closeFn, err := BuildChatGenerator(context.Background(), &appconfig.Config{ChatProvider: "gemini"}, nil, logging.Discard())
	require.NoError(t, err)
	assert.Nil(t, gen)
	assert.NoError(t, closeFn())

	_, _, err = BuildChatGenerator(context.Background(), &appconfig.Config{ChatProvider: "openai"}, nil, logging.Discard())
	assert.Error(t, err)
}

func TestBuildEmailSenderFallsBackToLog(t *testing.T) {
	s := BuildEmailSender(context.Background(), &appconfig.Config{EmailProvider: "sendgrid"}, nil, logging.Discard())
	_, ok := s.(*notify.LogEmailSender)
	assert.True(t, ok)

	s = BuildEmailSender(context.Background(), &appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "k"}, nil, logging.Discard())
	_, ok = s.(*notify.SendGridSender)
	assert.True(t, ok)
}

func TestBuildServerServesAppointments(t *testing.T) {
	cfg := &appconfig.Config{
		StorageBackend:     appconfig.BackendMemory,
		CORSAllowedOrigins: []string{"*"},
		ChatRateLimit:      1,
		ChatRateBurst:      1,
	}
	srv, err := BuildServer(context.Background(), cfg, nil, logging.Discard(), ServerOptions{Realtime: true})
	require.NoError(t, err)
	defer srv.Close()

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.NotEmpty(t, list, "fresh store serves seed data")

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "medipulse_store"))

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
