package models

// Contract units of the token sale, in deployment order.
const (
	UnitStandardToken = "StandardToken"
	UnitTokenFactory  = "TokenFactory"
	UnitWhitelist     = "Whitelist"
	UnitTokenSale     = "TokenSale"
)

// Blueprint is a deployable contract unit: its ABI and creation bytecode.
type Blueprint struct {
	Name     string
	ABI      string
	Bytecode []byte
}

// ArtifactStore provides blueprints and keeps the per-network deployment bookkeeping of artifacts.
type ArtifactStore interface {
	Load(name string) (*Blueprint, error)
	RecordNetwork(name, networkID, address, txHash string) error
}
