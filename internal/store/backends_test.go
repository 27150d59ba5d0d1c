package store

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Load(ctx, Doctors)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Save(ctx, Doctors, []byte(`[{"id":1}]`)))
	got, err := b.Load(ctx, Doctors)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(got))

	require.NoError(t, b.Save(ctx, Doctors, []byte(`[]`)))
	got, err = b.Load(ctx, Doctors)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))

	_, err = b.Load(ctx, Appointments)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackend(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	exerciseBackend(t, b)
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBackend(client, "")
	defer b.Close()

	exerciseBackend(t, b)
	assert.True(t, mr.Exists("medipulse:doctors"))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Backend(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	exerciseBackend(t, NewS3Backend(fake, "bucket", "/medipulse/"))
	_, ok := fake.objects["bucket/medipulse/doctors.json"]
	assert.True(t, ok)
}

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	var item collectionItem
	if err := attributevalue.UnmarshalMap(in.Item, &item); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[*in.TableName+"/"+item.Name] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	name := in.Key["name"].(*types.AttributeValueMemberS).Value
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[*in.TableName+"/"+name]}, nil
}

func TestDynamoBackend(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	exerciseBackend(t, NewDynamoBackend(fake, "medipulse-collections"))
	assert.Contains(t, fake.items, "medipulse-collections/doctors")
}

func TestPostgresBackend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	b := newPostgresBackendWithExec(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT data FROM collections").WithArgs("doctors").WillReturnError(pgx.ErrNoRows)
	_, err = b.Load(ctx, Doctors)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec("INSERT INTO collections").WithArgs("doctors", []byte(`[]`)).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, b.Save(ctx, Doctors, []byte(`[]`)))

	mock.ExpectQuery("SELECT data FROM collections").WithArgs("doctors").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`[]`)))
	got, err := b.Load(ctx, Doctors)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, mock.ExpectationsWereMet())
}
