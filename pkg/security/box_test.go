package security

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, keySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestBoxSealOpen(t *testing.T) {
	box, err := NewBox(newTestKey(t))
	require.NoError(t, err)
	require.NotNil(t, box)

	sealed, err := box.Seal("EAAAl-access-token")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedLabel))
	assert.NotContains(t, sealed, "EAAAl-access-token")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "EAAAl-access-token", opened)
}

func TestBoxOpenPassesThroughLegacyPlaintext(t *testing.T) {
	box, err := NewBox(newTestKey(t))
	require.NoError(t, err)

	opened, err := box.Open("plain-token")
	require.NoError(t, err)
	assert.Equal(t, "plain-token", opened)
}

func TestBoxRejectsTamperingAndWrongKey(t *testing.T) {
	box, err := NewBox(newTestKey(t))
	require.NoError(t, err)
	other, err := NewBox(newTestKey(t))
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformedSecret)

	_, err = box.Open(sealedLabel + "not-base64!!")
	assert.ErrorIs(t, err, ErrMalformedSecret)
}

func TestNilBoxIsPassthrough(t *testing.T) {
	box, err := NewBox("")
	require.NoError(t, err)
	assert.Nil(t, box)

	sealed, err := box.Seal("token")
	require.NoError(t, err)
	assert.Equal(t, "token", sealed)

	_, err = box.Open(sealedLabel + "abc")
	assert.ErrorIs(t, err, ErrMalformedSecret)
}

func TestNewBoxValidatesKey(t *testing.T) {
	_, err := NewBox("%%%")
	assert.Error(t, err)
	_, err = NewBox(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
