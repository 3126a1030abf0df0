package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrSignatureRejected means the key holder declined (or could not
	// unlock the key) to sign.
	ErrSignatureRejected = errors.New("user rejected signing")
	ErrWatchOnly         = errors.New("wallet is watch-only and cannot sign")
)

// Signer signs EVM transactions for a signing wallet.
type Signer struct {
	wallet *Wallet
	ks     KeystoreBackend
}

// NewSigner creates a signer for the given wallet.
func NewSigner(w *Wallet, ks KeystoreBackend) *Signer {
	return &Signer{wallet: w, ks: ks}
}

// SignTx signs an EVM transaction and returns the raw signed bytes.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	privKey, err := s.key()
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

// Unlock checks that the key can be read and matches the wallet address.
func (s *Signer) Unlock() error {
	_, err := s.key()
	return err
}

// Address returns the wallet's address.
func (s *Signer) Address() string {
	return s.wallet.Address
}

func (s *Signer) key() (*ecdsa.PrivateKey, error) {
	if s.wallet.Type != TypeSigning {
		return nil, fmt.Errorf("%w: %s", ErrWatchOnly, s.wallet.Name)
	}

	hexKey, err := s.ks.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieving key: %w", ErrSignatureRejected, err)
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if got := crypto.PubkeyToAddress(privKey.PublicKey).Hex(); !strings.EqualFold(got, s.wallet.Address) {
		return nil, fmt.Errorf("key for %s derives %s, not %s", s.wallet.Name, got, s.wallet.Address)
	}
	return privKey, nil
}
