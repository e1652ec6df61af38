package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/docdigest/internal/config"
	appErr "github.com/xxxsen/docdigest/internal/pkg/errors"
)

func TestLocalStore_SaveOpenListDelete(t *testing.T) {
	ctx := context.Background()
	st, err := New(ctx, config.FileStoreConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "local", st.Type())

	data := []byte("hello blob")
	require.NoError(t, st.Save(ctx, "a.json", bytes.NewReader(data), int64(len(data))))

	rc, err := st.Open(ctx, "a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, data, got)

	objs, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.Equal(t, "a.json", objs[0].Key)
	require.Equal(t, int64(len(data)), objs[0].Size)

	require.NoError(t, st.Delete(ctx, "a.json"))
	_, err = st.Open(ctx, "a.json")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NoError(t, st.Delete(ctx, "a.json"))
}

func TestLocalStore_RejectsPathKeys(t *testing.T) {
	st := NewLocal(t.TempDir())
	err := st.Save(context.Background(), "../x", bytes.NewReader(nil), 0)
	require.Error(t, err)
	_, err = st.Open(context.Background(), "a/b")
	require.Error(t, err)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(context.Background(), config.FileStoreConfig{Type: "s3"})
	require.Error(t, err)
}

func TestBuildEndpoint(t *testing.T) {
	require.Equal(t, "https://minio:9000", buildEndpoint("minio:9000", true))
	require.Equal(t, "http://minio:9000", buildEndpoint("http://minio:9000/", true))
}
