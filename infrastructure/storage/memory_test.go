package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost/storage")

	data := []byte{1, 2, 3}
	require.NoError(t, s.Put(ctx, "a1/t1/base.png", "image/png", data))
	data[0] = 9

	got, err := s.Get(ctx, "a1/t1/base.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Equal(t, "image/png", s.ContentType("a1/t1/base.png"))
	assert.Equal(t, "http://localhost/storage/a1/t1/base.png", s.PublicURL("a1/t1/base.png"))

	require.NoError(t, s.Delete(ctx, "a1/t1/base.png"))
	_, err = s.Get(ctx, "a1/t1/base.png")
	assert.True(t, apperrors.IsNotFound(err))
}
