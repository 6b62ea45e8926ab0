package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/flowvault/flowvault-backend/pkg/cryptography"
	"github.com/flowvault/flowvault-backend/pkg/logging"
	"github.com/flowvault/flowvault-backend/pkg/types"
)

const swapGasLimit = 350000

// RPC is the subset of the Ethereum client the broadcaster needs.
type RPC interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// SwapCall is a fully-specified settlement contract invocation.
type SwapCall struct {
	FromAsset    string
	ToAsset      string
	AmountIn     *types.BigInt
	MinAmountOut *types.BigInt
}

// Broadcaster signs swap transactions with a delegated session key and
// submits them through an Ethereum RPC endpoint.
type Broadcaster struct {
	rpc     RPC
	chainID *big.Int
	router  common.Address
	logger  logging.Logger
}

func NewBroadcaster(rpcURL string, chainID int64, routerAddress string, logger logging.Logger) (*Broadcaster, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}
	return NewBroadcasterWithRPC(client, chainID, routerAddress, logger), nil
}

// NewBroadcasterWithRPC wires an existing RPC client, used by tests.
func NewBroadcasterWithRPC(rpc RPC, chainID int64, routerAddress string, logger logging.Logger) *Broadcaster {
	return &Broadcaster{
		rpc:     rpc,
		chainID: big.NewInt(chainID),
		router:  common.HexToAddress(routerAddress),
		logger:  logger,
	}
}

// swapArgs matches executeSwap(bytes32 fromAsset, bytes32 toAsset,
// uint256 amountIn, uint256 minAmountOut) on the settlement router.
var swapArgs = func() abi.Arguments {
	bytes32Type, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "fromAsset", Type: bytes32Type},
		{Name: "toAsset", Type: bytes32Type},
		{Name: "amountIn", Type: uint256Type},
		{Name: "minAmountOut", Type: uint256Type},
	}
}()

var swapSelector = crypto.Keccak256([]byte("executeSwap(bytes32,bytes32,uint256,uint256)"))[:4]

// EncodeSwapCall packs the settlement router calldata for one swap.
func EncodeSwapCall(call SwapCall) ([]byte, error) {
	if call.AmountIn == nil || call.AmountIn.Int == nil {
		return nil, fmt.Errorf("swap call has no input amount")
	}
	minOut := big.NewInt(0)
	if call.MinAmountOut != nil && call.MinAmountOut.Int != nil {
		minOut = call.MinAmountOut.Int
	}

	packed, err := swapArgs.Pack(
		assetTag(call.FromAsset),
		assetTag(call.ToAsset),
		call.AmountIn.Int,
		minOut,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap calldata: %w", err)
	}
	return append(append([]byte{}, swapSelector...), packed...), nil
}

// Broadcast signs and submits one swap transaction. The returned hash is
// the only artifact the caller persists.
func (b *Broadcaster) Broadcast(ctx context.Context, key *cryptography.SessionKey, call SwapCall) (string, error) {
	calldata, err := EncodeSwapCall(call)
	if err != nil {
		return "", err
	}

	nonce, err := b.rpc.PendingNonceAt(ctx, common.HexToAddress(key.AccountAddress))
	if err != nil {
		return "", fmt.Errorf("%w: failed to get nonce: %v", types.ErrUpstreamFailure, err)
	}

	gasPrice, err := b.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get gas price: %v", types.ErrUpstreamFailure, err)
	}

	tx := ethtypes.NewTransaction(nonce, b.router, big.NewInt(0), swapGasLimit, gasPrice, calldata)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(b.chainID), key.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := b.rpc.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("%w: failed to broadcast transaction: %v", types.ErrUpstreamFailure, err)
	}

	b.logger.Infof("Broadcast swap transaction %s from %s", signedTx.Hash().Hex(), key.AccountAddress)
	return signedTx.Hash().Hex(), nil
}

func assetTag(symbol string) [32]byte {
	var tag [32]byte
	copy(tag[:], symbol)
	return tag
}
