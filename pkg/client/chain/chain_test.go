package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

type fakeRPC struct {
	nonce    uint64
	gasPrice *big.Int
	sendErr  error
	sent     *ethtypes.Transaction
}

func (f *fakeRPC) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeRPC) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if f.gasPrice == nil {
		return big.NewInt(1000000000), nil
	}
	return f.gasPrice, nil
}

func (f *fakeRPC) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = tx
	return nil
}

func sampleCall() SwapCall {
	return SwapCall{
		FromAsset:    "USDC",
		ToAsset:      "WETH",
		AmountIn:     types.NewBigIntFromInt64(1000000),
		MinAmountOut: types.NewBigIntFromInt64(980000),
	}
}

func TestEncodeSwapCallLayout(t *testing.T) {
	calldata, err := EncodeSwapCall(sampleCall())
	require.NoError(t, err)

	// selector + four 32-byte words
	require.Len(t, calldata, 4+4*32)
	assert.True(t, bytes.Equal(calldata[:4], swapSelector))
	assert.True(t, bytes.HasPrefix(calldata[4:36], []byte("USDC")))
	assert.True(t, bytes.HasPrefix(calldata[36:68], []byte("WETH")))
}

func TestEncodeSwapCallRequiresAmount(t *testing.T) {
	call := sampleCall()
	call.AmountIn = nil
	_, err := EncodeSwapCall(call)
	assert.Error(t, err)
}

func TestBroadcastSignsWithSessionKey(t *testing.T) {
	key, err := cryptography.GenerateSessionKey()
	require.NoError(t, err)

	rpc := &fakeRPC{nonce: 7}
	broadcaster := NewBroadcasterWithRPC(rpc, 8453, "0x1111111111111111111111111111111111111111", logging.NoopLogger{})

	hash, err := broadcaster.Broadcast(context.Background(), key, sampleCall())
	require.NoError(t, err)
	require.NotNil(t, rpc.sent)
	assert.Equal(t, rpc.sent.Hash().Hex(), hash)
	assert.Equal(t, uint64(7), rpc.sent.Nonce())

	sender, err := ethtypes.Sender(ethtypes.NewEIP155Signer(big.NewInt(8453)), rpc.sent)
	require.NoError(t, err)
	assert.Equal(t, key.AccountAddress, sender.Hex())
}

func TestBroadcastSendFailureIsUpstream(t *testing.T) {
	key, err := cryptography.GenerateSessionKey()
	require.NoError(t, err)

	rpc := &fakeRPC{sendErr: errors.New("nonce too low")}
	broadcaster := NewBroadcasterWithRPC(rpc, 8453, "0x1111111111111111111111111111111111111111", logging.NoopLogger{})

	_, err = broadcaster.Broadcast(context.Background(), key, sampleCall())
	assert.ErrorIs(t, err, types.ErrUpstreamFailure)
}
