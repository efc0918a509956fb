package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapRepo struct {
	keys map[string]*APIKey
}

func (m *mapRepo) FindByHash(_ context.Context, hash string) (*APIKey, error) {
	k, ok := m.keys[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return k, nil
}

func TestHashKey(t *testing.T) {
	h1 := HashKey("pepper", "secret")
	h2 := HashKey("pepper", "secret")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	assert.NotEqual(t, h1, HashKey("other-pepper", "secret"))
	assert.NotEqual(t, h1, HashKey("pepper", "other-secret"))
}

func TestVerifier(t *testing.T) {
	repo := &mapRepo{keys: map[string]*APIKey{
		HashKey("pepper", "good"): {ID: 1, Name: "admin"},
	}}
	v := NewVerifier(repo, "pepper")

	key, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "admin", key.Name)

	_, err = v.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}
