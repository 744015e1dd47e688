package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	relaytypes "github.com/vennlabs/payrelay/types"
)

const erc20ABI = `[{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

const aggregatorABI = `[
 {"inputs":[],"name":"latestRoundData","outputs":[
   {"name":"roundId","type":"uint80"},
   {"name":"answer","type":"int256"},
   {"name":"startedAt","type":"uint256"},
   {"name":"updatedAt","type":"uint256"},
   {"name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}]`

const (
	nativeTransferGas = 21000
	tokenTransferGas  = 80000
)

// EVMClient settles payments on an EVM chain and reads Chainlink-style
// aggregator feeds. The feed address is the last 20 bytes of the 32-byte
// feed identifier; the feed payer is ignored on EVM, where reads are free.
type EVMClient struct {
	client     *ethclient.Client
	chainID    *big.Int
	key        *ecdsa.PrivateKey
	from       common.Address
	erc20      abi.ABI
	aggregator abi.ABI
}

// NewEVMClient dials the RPC endpoint and prepares the signing key.
func NewEVMClient(rpcURL string, chainID *big.Int, hexKey string) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	aggregator, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, err
	}
	return &EVMClient{
		client:     client,
		chainID:    chainID,
		key:        key,
		from:       crypto.PubkeyToAddress(key.PublicKey),
		erc20:      erc20,
		aggregator: aggregator,
	}, nil
}

// Transfer sends a native value transfer and waits for it to be mined.
func (c *EVMClient) Transfer(ctx context.Context, to string, amount *big.Int) error {
	return c.send(ctx, common.HexToAddress(to), amount, nativeTransferGas, nil)
}

// TokenTransfer sends an ERC-20 transfer and waits for it to be mined. The
// memo is dropped: ERC-20 has no memo field.
func (c *EVMClient) TokenTransfer(ctx context.Context, token, to string, amount *big.Int, _ string) error {
	data, err := c.erc20.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return fmt.Errorf("packing transfer calldata: %w", err)
	}
	return c.send(ctx, common.HexToAddress(token), new(big.Int), tokenTransferGas, data)
}

func (c *EVMClient) send(ctx context.Context, to common.Address, value *big.Int, gasLimit uint64, data []byte) error {
	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return fmt.Errorf("fetching nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("fetching gas price: %w", err)
	}
	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}
	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("sending transaction: %w", err)
	}
	return c.waitMined(ctx, signed.Hash())
}

func (c *EVMClient) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// AggregatorRead reads latestRoundData plus decimals from the aggregator at
// the feed address and maps them to a price entry. A fresh round counts as
// one success; a zero updatedAt marks the round as failed.
func (c *EVMClient) AggregatorRead(ctx context.Context, feedAddress [32]byte, _ [32]byte) (*relaytypes.PriceEntry, error) {
	addr := common.BytesToAddress(feedAddress[12:])

	data, err := c.aggregator.Pack("latestRoundData")
	if err != nil {
		return nil, err
	}
	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("latestRoundData call failed: %w", err)
	}
	fields, err := c.aggregator.Unpack("latestRoundData", raw)
	if err != nil || len(fields) != 5 {
		return nil, fmt.Errorf("decoding latestRoundData: %v", err)
	}
	answer, ok := fields[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected answer type in latestRoundData")
	}
	updatedAt, ok := fields[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected updatedAt type in latestRoundData")
	}

	data, err = c.aggregator.Pack("decimals")
	if err != nil {
		return nil, err
	}
	raw, err = c.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("decimals call failed: %w", err)
	}
	decFields, err := c.aggregator.Unpack("decimals", raw)
	if err != nil || len(decFields) != 1 {
		return nil, fmt.Errorf("decoding decimals: %v", err)
	}
	decimals, ok := decFields[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("unexpected decimals type")
	}

	entry := &relaytypes.PriceEntry{
		Value:      answer,
		Scale:      uint32(decimals),
		ObservedAt: time.Unix(updatedAt.Int64(), 0),
		NumSuccess: 1,
	}
	if updatedAt.Sign() == 0 {
		entry.NumSuccess = 0
		entry.NumError = 1
	}
	return entry, nil
}

// Close releases the RPC connection.
func (c *EVMClient) Close() {
	c.client.Close()
}

var _ Client = (*EVMClient)(nil)
