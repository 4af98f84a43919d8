package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
	"github.com/core-coin/tokensale/pkg/validation"
)

// Ethereum deploys contracts on an EVM chain, signing EIP-1559 transactions with a local key.
type Ethereum struct {
	logger *logger.Logger
	client *w3.Client

	chainID *big.Int
	signer  types.Signer
	key     *ecdsa.PrivateKey
	address common.Address

	gasLimit       uint64
	gasFeeCap      *big.Int
	gasTipCap      *big.Int
	receiptTimeout time.Duration
	pollInterval   time.Duration
}

func NewEthereum(
	rpcURL string,
	chainID *big.Int,
	privateKeyHex string,
	gasLimit uint64,
	gasFeeCap, gasTipCap *big.Int,
	receiptTimeout time.Duration,
	logger *logger.Logger,
) (*Ethereum, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse deployer private key: %w", err)
	}

	client, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the ethereum RPC server: %w", err)
	}

	return &Ethereum{
		logger:         logger.With("chain", validation.ChainEthereum),
		client:         client,
		chainID:        chainID,
		signer:         types.NewLondonSigner(chainID),
		key:            key,
		address:        crypto.PubkeyToAddress(key.PublicKey),
		gasLimit:       gasLimit,
		gasFeeCap:      gasFeeCap,
		gasTipCap:      gasTipCap,
		receiptTimeout: receiptTimeout,
		pollInterval:   ReceiptPollInterval,
	}, nil
}

func (e *Ethereum) Chain() string {
	return validation.ChainEthereum
}

func (e *Ethereum) NetworkID() *big.Int {
	return e.chainID
}

// Accounts returns the address of the signing key; it is the only account able to deploy.
func (e *Ethereum) Accounts(ctx context.Context) ([]string, error) {
	return []string{e.address.Hex()}, nil
}

func (e *Ethereum) LatestTimestamp(ctx context.Context) (uint64, error) {
	var header *types.Header
	if err := e.client.CallCtx(ctx, eth.HeaderByNumber(nil).Returns(&header)); err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}
	return header.Time, nil
}

func (e *Ethereum) Deploy(ctx context.Context, from string, blueprint *models.Blueprint, args ...interface{}) (*models.DeployReceipt, error) {
	if !validation.SameAddress(from, e.address.Hex()) {
		return nil, fmt.Errorf("account %s is not the deployer key %s", from, e.address.Hex())
	}

	input, err := evmCreationInput(blueprint, args)
	if err != nil {
		return nil, err
	}

	var nonce uint64
	if err := e.client.CallCtx(ctx, eth.Nonce(e.address, nil).Returns(&nonce)); err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   e.chainID,
		Nonce:     nonce,
		GasFeeCap: e.gasFeeCap,
		GasTipCap: e.gasTipCap,
		Gas:       e.gasLimit,
		Data:      input,
	})
	signedTx, err := types.SignTx(tx, e.signer, e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s deployment: %w", blueprint.Name, err)
	}

	var txHash common.Hash
	if err := e.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&txHash)); err != nil {
		return nil, fmt.Errorf("failed to send %s deployment: %w", blueprint.Name, err)
	}
	e.logger.Debug("Deployment transaction sent", "unit", blueprint.Name, "tx", txHash.Hex(), "nonce", nonce)

	waitCtx, cancel := context.WithTimeout(ctx, e.receiptTimeout)
	defer cancel()

	receipt, err := waitMined(waitCtx, e.pollInterval, func(ctx context.Context) (*types.Receipt, error) {
		var receipt *types.Receipt
		if err := e.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt)); err != nil {
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt of %s: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("deployment of %s reverted in tx %s", blueprint.Name, txHash.Hex())
	}

	return &models.DeployReceipt{
		Address:     receipt.ContractAddress.Hex(),
		TxHash:      txHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func (e *Ethereum) Close() error {
	return e.client.Close()
}

// evmCreationInput returns the bytecode followed by the packed constructor arguments.
func evmCreationInput(blueprint *models.Blueprint, args []interface{}) ([]byte, error) {
	parsedABI, err := abi.JSON(strings.NewReader(blueprint.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", blueprint.Name, err)
	}

	inputs := parsedABI.Constructor.Inputs
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("%s constructor takes %d arguments, got %d", blueprint.Name, len(inputs), len(args))
	}

	coerced := make([]interface{}, len(args))
	for i, input := range inputs {
		v, err := coerceEVMArg(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("invalid %s constructor argument %q: %w", blueprint.Name, input.Name, err)
		}
		coerced[i] = v
	}

	packed, err := parsedABI.Pack("", coerced...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s constructor arguments: %w", blueprint.Name, err)
	}

	input := make([]byte, 0, len(blueprint.Bytecode)+len(packed))
	input = append(input, blueprint.Bytecode...)
	return append(input, packed...), nil
}

func coerceEVMArg(typ abi.Type, v interface{}) (interface{}, error) {
	switch typ.T {
	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !common.IsHexAddress(a) {
				return nil, fmt.Errorf("invalid address %q", a)
			}
			return common.HexToAddress(a), nil
		}
		return nil, fmt.Errorf("unsupported address type %T", v)
	case abi.UintTy:
		return sizedUint(typ.Size, v)
	}
	return v, nil
}
