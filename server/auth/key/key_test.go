package key

import (
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/lestrrat-go/jwx/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyPairFromPem(t *testing.T) {
	generated, err := GenerateKeyPair(1024)
	require.Nil(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(generated.PrivateKey),
	})

	keyPair, err := NewKeyPairFromPem(pemBytes)
	require.Nil(t, err)
	assert.Equal(t, DEFAULT_KID, keyPair.Kid)
	assert.True(t, generated.PublicKey.Equal(keyPair.PublicKey))

	_, err = NewKeyPairFromPem([]byte("not a pem"))
	assert.NotNil(t, err)
}

func TestJWKRoundTrip(t *testing.T) {
	keyPair, err := GenerateKeyPair(1024)
	require.Nil(t, err)

	keyPairJWK, err := keyPair.JWK()
	require.Nil(t, err)
	assert.Equal(t, DEFAULT_KID, keyPairJWK.KeyID())
	assert.Equal(t, "sig", keyPairJWK.KeyUsage())

	jwks := ExportJWKAsJWKS(keyPairJWK)
	require.Len(t, jwks.Keys, 1)

	publicKey, err := PublicKeyFromJWK(jwks.Keys[0].(jwk.Key))
	require.Nil(t, err)
	assert.True(t, keyPair.PublicKey.Equal(publicKey))
}
