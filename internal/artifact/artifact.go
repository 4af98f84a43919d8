package artifact

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/core-coin/tokensale/internal/models"
)

// Store reads Truffle-style contract artifacts (<dir>/<Name>.json) and writes
// deployed addresses back into their "networks" section.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store over the artifacts directory dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load returns the blueprint of the named contract unit.
func (s *Store) Load(name string) (*models.Blueprint, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("artifact %s is not valid JSON", name)
	}

	abi := gjson.GetBytes(data, "abi")
	if !abi.IsArray() {
		return nil, fmt.Errorf("artifact %s has no abi", name)
	}

	bytecodeHex := strings.TrimPrefix(gjson.GetBytes(data, "bytecode").String(), "0x")
	if bytecodeHex == "" {
		return nil, fmt.Errorf("artifact %s has no bytecode", name)
	}
	if strings.Contains(bytecodeHex, "__") {
		return nil, fmt.Errorf("artifact %s has unlinked library references", name)
	}
	bytecode, err := hex.DecodeString(bytecodeHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bytecode of %s: %w", name, err)
	}

	return &models.Blueprint{
		Name:     name,
		ABI:      abi.Raw,
		Bytecode: bytecode,
	}, nil
}

// RecordNetwork stores the deployed address of the named unit for networkID.
func (s *Store) RecordNetwork(name, networkID, address, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", name, err)
	}

	if !gjson.GetBytes(data, "networks").IsObject() {
		// numeric network ids must land in an object, not an array
		data, err = sjson.SetRawBytes(data, "networks", []byte("{}"))
		if err != nil {
			return fmt.Errorf("failed to reset networks of %s: %w", name, err)
		}
	}

	prefix := "networks." + networkID
	data, err = sjson.SetBytes(data, prefix+".address", address)
	if err != nil {
		return fmt.Errorf("failed to set address of %s: %w", name, err)
	}
	data, err = sjson.SetBytes(data, prefix+".transactionHash", txHash)
	if err != nil {
		return fmt.Errorf("failed to set transaction hash of %s: %w", name, err)
	}
	data, err = sjson.SetBytes(data, "updatedAt", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set updatedAt of %s: %w", name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace artifact %s: %w", name, err)
	}
	return nil
}

// NetworkAddress returns the address recorded for the named unit on networkID, if any.
func (s *Store) NetworkAddress(name, networkID string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return gjson.GetBytes(data, "networks."+networkID+".address").String(), nil
}
