package decodepay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bolt11 test vector: 2500u, "1 cup coffee", mainnet
const testInvoice = "lnbc2500u1pvjluezpp5qqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqqqsyqcyq5rqwzqfqypqdq5xysxxatsyp3k7enxv4jsxqzpuaztrnwngzn3kdzw5hydlzf03qdgm2hdq27cqv3agm2awhz5se903vruatfhq77w3ls4evs3ch9zw97j25emudupq63nyw24cg27h2rspfj9srp"

func TestDecodepay(t *testing.T) {
	decoded, err := Decodepay(testInvoice)
	require.NoError(t, err)

	assert.Equal(t, "0001020304050607080900010203040506070809000102030405060708090102", decoded.PaymentHash)
	assert.Equal(t, int64(250_000_000), decoded.MSatoshi)
	assert.Equal(t, "1 cup coffee", decoded.Description)
	assert.Equal(t, "bc", decoded.Currency)
	assert.Equal(t, 60, decoded.Expiry)
	assert.Equal(t, "03e7156ae33b0a208d0744199163177e909e80176e55d97a2f221ede0f934dd9ad", decoded.Payee)
}

func TestDecodepay_Invalid(t *testing.T) {
	_, err := Decodepay("")
	assert.Error(t, err)

	_, err = Decodepay("lnbc1notaninvoice")
	assert.Error(t, err)

	_, err = Decodepay("hello world")
	assert.Error(t, err)
}
