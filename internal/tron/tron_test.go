package tron

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultgram/vaultgram-server/internal/config"
)

const (
	testWallet   = "TWalletAddr111111111111111111111"
	testContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.PaymentConfig{
		APIKey:   "test-key",
		Contract: testContract,
		Endpoint: server.URL,
	}, server.Client())
}

func TestTransfersFiltersAndScales(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("TRON-PRO-API-KEY"))
		require.Contains(t, r.URL.Path, "/v1/accounts/"+testWallet+"/transactions/trc20")
		require.Equal(t, "true", r.URL.Query().Get("only_confirmed"))
		require.Equal(t, testContract, r.URL.Query().Get("contract_address"))

		fmt.Fprintf(w, `{"data":[
			{"transaction_id":"tx1","from":"TSender","to":%q,"value":"1000230","block_timestamp":1724800000000,"token_info":{"address":%q}},
			{"transaction_id":"tx2","from":"TSender","to":"TSomeoneElse","value":"5000000","block_timestamp":1724800000000,"token_info":{"address":%q}},
			{"transaction_id":"tx3","from":"TSender","to":%q,"value":"7000000","block_timestamp":1724800000000,"token_info":{"address":"TOtherToken"}}
		]}`, testWallet, testContract, testContract, testWallet)
	})

	transfers, err := client.Transfers(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, "tx1", transfers[0].TxID)
	require.InDelta(t, 1.00023, transfers[0].Amount, 1e-9)
}

func TestTransfersErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Transfers(context.Background(), testWallet)
	require.Error(t, err)
}

func TestMemoDecoding(t *testing.T) {
	memo := hex.EncodeToString([]byte("order ABC123"))
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/v1/transactions/tx1")
		fmt.Fprintf(w, `{"data":[{"raw_data":{"data":%q}}]}`, memo)
	})

	got, err := client.Memo(context.Background(), "tx1")
	require.NoError(t, err)
	require.Equal(t, "order ABC123", got)
}

func TestMemoAbsent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"raw_data":{}}]}`)
	})

	got, err := client.Memo(context.Background(), "tx1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemoUndecodableIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"raw_data":{"data":"zznothex"}}]}`)
	})

	got, err := client.Memo(context.Background(), "tx1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestClientEnabled(t *testing.T) {
	require.True(t, NewClient(&config.PaymentConfig{APIKey: "k"}, http.DefaultClient).Enabled())
	require.False(t, NewClient(&config.PaymentConfig{}, http.DefaultClient).Enabled())
}
