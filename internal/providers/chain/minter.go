package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// tokenABI covers the two contract functions this service uses.
const tokenABI = `[
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const (
	mintGasLimit     = 120_000
	receiptPollEvery = 2 * time.Second
)

// Options configures the on-chain reward minter.
type Options struct {
	RPCURL          string
	PrivateKey      string
	ContractAddress string
	ChainID         int64
	Timeout         time.Duration
}

// Minter mints reward tokens against a single pre-configured contract and
// reads holdings from it. All calls are bounded by the configured timeout.
type Minter struct {
	client   *ethclient.Client
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	from     common.Address
	contract common.Address
	chainID  *big.Int
	timeout  time.Duration
}

// NewMinter dials the RPC endpoint and prepares the signing identity.
func NewMinter(opts Options) (*Minter, error) {
	if strings.TrimSpace(opts.RPCURL) == "" {
		return nil, errors.New("chain: rpc url is required")
	}
	if strings.TrimSpace(opts.PrivateKey) == "" {
		return nil, errors.New("chain: private key is required")
	}
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, fmt.Errorf("chain: invalid contract address %q", opts.ContractAddress)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(opts.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}
	client, err := ethclient.Dial(opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Minter{
		client:   client,
		abi:      parsed,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(opts.ContractAddress),
		chainID:  big.NewInt(opts.ChainID),
		timeout:  timeout,
	}, nil
}

// Mint issues amount whole tokens to the given address and waits for the
// transaction to be mined. Returns the transaction hash.
func (m *Minter) Mint(ctx context.Context, to string, amount int64) (string, error) {
	if m == nil {
		return "", errors.New("chain: minter not configured")
	}
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("chain: invalid recipient address %q", to)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := m.abi.Pack("mint", common.HexToAddress(to), ScaleUnits(amount))
	if err != nil {
		return "", fmt.Errorf("chain: pack mint: %w", err)
	}
	nonce, err := m.client.PendingNonceAt(ctx, m.from)
	if err != nil {
		return "", fmt.Errorf("chain: nonce: %w", err)
	}
	gasPrice, err := m.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, m.contract, big.NewInt(0), mintGasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(m.chainID), m.key)
	if err != nil {
		return "", fmt.Errorf("chain: sign: %w", err)
	}
	if err := m.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send: %w", err)
	}
	if err := m.waitMined(ctx, signed.Hash()); err != nil {
		return "", err
	}
	return signed.Hash().Hex(), nil
}

func (m *Minter) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(receiptPollEvery)
	defer ticker.Stop()
	for {
		receipt, err := m.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("chain: mint transaction %s reverted", hash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("chain: receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("chain: waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// BalanceOf returns the address's token balance as a decimal string in whole
// token units.
func (m *Minter) BalanceOf(ctx context.Context, address string) (string, error) {
	if m == nil {
		return "", errors.New("chain: minter not configured")
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("chain: invalid address %q", address)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := m.abi.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return "", fmt.Errorf("chain: pack balanceOf: %w", err)
	}
	raw, err := m.client.CallContract(ctx, ethereum.CallMsg{To: &m.contract, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("chain: call balanceOf: %w", err)
	}
	values, err := m.abi.Unpack("balanceOf", raw)
	if err != nil {
		return "", fmt.Errorf("chain: unpack balanceOf: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return "", errors.New("chain: unexpected balanceOf result type")
	}
	return FormatUnits(balance), nil
}

// Close releases the underlying RPC connection.
func (m *Minter) Close() {
	if m != nil && m.client != nil {
		m.client.Close()
	}
}
