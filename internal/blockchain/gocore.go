package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/core-coin/go-core/v2/accounts/abi"
	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/common/hexutil"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/core-coin/go-core/v2/rpc"
	"github.com/core-coin/go-core/v2/xcbclient"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
	"github.com/core-coin/tokensale/pkg/validation"
)

// Gocore deploys contracts on Core Blockchain through a go-core node.
// Transactions are sent from node-managed (unlocked) accounts.
type Gocore struct {
	logger         *logger.Logger
	apiURL         string
	networkID      *big.Int
	energyLimit    uint64
	receiptTimeout time.Duration
	pollInterval   time.Duration

	rpcClient *rpc.Client
	client    *xcbclient.Client
}

// sendTxArgs is the argument of xcb_sendTransaction.
type sendTxArgs struct {
	From   string         `json:"from"`
	Data   hexutil.Bytes  `json:"data"`
	Energy hexutil.Uint64 `json:"energy"`
}

// NewGocore creates a new Gocore instance.
func NewGocore(apiURL string, networkID *big.Int, energyLimit uint64, receiptTimeout time.Duration, logger *logger.Logger) *Gocore {
	return &Gocore{
		apiURL:         apiURL,
		networkID:      networkID,
		energyLimit:    energyLimit,
		receiptTimeout: receiptTimeout,
		pollInterval:   ReceiptPollInterval,
		logger:         logger.With("chain", validation.ChainCore),
	}
}

func (g *Gocore) ConnectToRPC(ctx context.Context) error {
	rpcClient, err := rpc.DialContext(ctx, g.apiURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	g.rpcClient = rpcClient
	g.client = xcbclient.NewClient(rpcClient)
	return nil
}

func (g *Gocore) Chain() string {
	return validation.ChainCore
}

func (g *Gocore) NetworkID() *big.Int {
	return g.networkID
}

// Accounts returns the accounts managed by the node.
func (g *Gocore) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := g.rpcClient.CallContext(ctx, &accounts, "xcb_accounts"); err != nil {
		return nil, fmt.Errorf("failed to list node accounts: %w", err)
	}
	return accounts, nil
}

func (g *Gocore) LatestTimestamp(ctx context.Context) (uint64, error) {
	header, err := g.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}
	return header.Time, nil
}

func (g *Gocore) Deploy(ctx context.Context, from string, blueprint *models.Blueprint, args ...interface{}) (*models.DeployReceipt, error) {
	input, err := coreCreationInput(blueprint, args)
	if err != nil {
		return nil, err
	}

	var txHash common.Hash
	err = g.rpcClient.CallContext(ctx, &txHash, "xcb_sendTransaction", sendTxArgs{
		From:   from,
		Data:   input,
		Energy: hexutil.Uint64(g.energyLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send %s deployment: %w", blueprint.Name, err)
	}
	g.logger.Debug("Deployment transaction sent", "unit", blueprint.Name, "tx", txHash.Hex())

	waitCtx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()

	receipt, err := waitMined(waitCtx, g.pollInterval, func(ctx context.Context) (*types.Receipt, error) {
		return g.client.TransactionReceipt(ctx, txHash)
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

func (g *Gocore) Close() error {
	if g.rpcClient != nil {
		g.rpcClient.Close()
	}
	return nil
}

// coreCreationInput returns the bytecode followed by the packed constructor arguments.
func coreCreationInput(blueprint *models.Blueprint, args []interface{}) ([]byte, error) {
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
		v, err := coerceCoreArg(input.Type, args[i])
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

func coerceCoreArg(typ abi.Type, v interface{}) (interface{}, error) {
	switch typ.T {
	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			addr, err := common.HexToAddress(a)
			if err != nil {
				return nil, err
			}
			return addr, nil
		}
		return nil, fmt.Errorf("unsupported address type %T", v)
	case abi.UintTy:
		return sizedUint(typ.Size, v)
	}
	return v, nil
}
