package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Minimal ERC-20 surface, just the four methods the Ledger interface needs.
const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const (
	transferGasLimit = 100000
	approveGasLimit  = 60000
)

// Keystore resolves the signing key for an account the service controls.
// Only derived agent keys and custodial accounts are resolvable.
type Keystore interface {
	PrivateKeyFor(address string) (*ecdsa.PrivateKey, error)
}

// ERC20Ledger implements Ledger against a token contract over JSON-RPC.
type ERC20Ledger struct {
	client   *ethclient.Client
	token    common.Address
	abi      abi.ABI
	keystore Keystore
	chainID  *big.Int
}

func NewERC20Ledger(rpcURL, tokenAddress string, keystore Keystore) (*ERC20Ledger, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &ERC20Ledger{
		client:   client,
		token:    common.HexToAddress(tokenAddress),
		abi:      parsed,
		keystore: keystore,
		chainID:  chainID,
	}, nil
}

func (l *ERC20Ledger) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	data, err := l.abi.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	out, err := l.client.CallContract(ctx, ethereum.CallMsg{To: &l.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var balance *big.Int
	if err := l.abi.UnpackIntoInterface(&balance, "balanceOf", out); err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	return balance, nil
}

func (l *ERC20Ledger) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	balance, err := l.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return balance, nil
}

func (l *ERC20Ledger) Transfer(ctx context.Context, from, to string, amount *big.Int) (string, error) {
	balance, err := l.BalanceOf(ctx, from)
	if err != nil {
		return "", err
	}
	if balance.Cmp(amount) < 0 {
		return "", ErrInsufficientFunds
	}

	data, err := l.abi.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}
	return l.send(ctx, from, data, transferGasLimit)
}

func (l *ERC20Ledger) Approve(ctx context.Context, owner, spender string, amount *big.Int) (string, error) {
	data, err := l.abi.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return "", fmt.Errorf("pack approve: %w", err)
	}
	return l.send(ctx, owner, data, approveGasLimit)
}

func (l *ERC20Ledger) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	data, err := l.abi.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}

	out, err := l.client.CallContract(ctx, ethereum.CallMsg{To: &l.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var allowance *big.Int
	if err := l.abi.UnpackIntoInterface(&allowance, "allowance", out); err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	return allowance, nil
}

func (l *ERC20Ledger) send(ctx context.Context, from string, data []byte, gasLimit uint64) (string, error) {
	key, err := l.keystore.PrivateKeyFor(from)
	if err != nil {
		return "", fmt.Errorf("resolve signer for %s: %w", from, err)
	}

	fromAddr := common.HexToAddress(from)
	nonce, err := l.client.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tx := types.NewTransaction(nonce, l.token, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return signed.Hash().Hex(), nil
}
