package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FS_Create(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fs := afero.NewMemMapFs()
	store := NewFS(fs)

	w, err := store.Create(context.Background(), "/out/euro4/file.raw")
	require.NoError(err)

	_, err = w.Write([]byte("content"))
	require.NoError(err)

	// Not visible until closed
	exists, err := afero.Exists(fs, "/out/euro4/file.raw")
	require.NoError(err)
	assert.False(exists)

	require.NoError(w.Close())

	data, err := afero.ReadFile(fs, "/out/euro4/file.raw")
	require.NoError(err)
	assert.Equal("content", string(data))

	exists, err = afero.Exists(fs, "/out/euro4/file.raw.part")
	require.NoError(err)
	assert.False(exists)
}

func Test_FS_Abort(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	fs := afero.NewMemMapFs()

	w, err := NewFS(fs).Create(context.Background(), "/out/file.raw")
	require.NoError(err)

	_, err = w.Write([]byte("partial"))
	require.NoError(err)
	require.NoError(Abort(w))

	for _, name := range []string{"/out/file.raw", "/out/file.raw.part"} {
		exists, err := afero.Exists(fs, name)
		require.NoError(err)
		assert.False(exists, name)
	}
}

type putObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)

func (f putObjectFunc) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f(ctx, params, optFns...)
}

func Test_S3_Create(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	uploaded := map[string]string{}
	client := putObjectFunc(func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		body, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}

		assert.Equal("bucket", *params.Bucket)
		uploaded[*params.Key] = string(body)

		return &s3.PutObjectOutput{}, nil
	})

	store := NewS3(client, "bucket", "l2/")

	w, err := store.Create(context.Background(), "/out/file.raw")
	require.NoError(err)

	_, err = w.Write([]byte("content"))
	require.NoError(err)
	assert.Empty(uploaded)

	require.NoError(w.Close())
	assert.Equal(map[string]string{"l2/out/file.raw": "content"}, uploaded)
}

func Test_S3_UploadError(t *testing.T) {
	errUpload := errors.New("access denied")
	client := putObjectFunc(func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errUpload
	})

	w, err := NewS3(client, "bucket", "").Create(context.Background(), "file.raw")
	require.NoError(t, err)

	assert.ErrorIs(t, w.Close(), errUpload)
}
