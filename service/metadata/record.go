package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// TokenMetadataProgramID is the Metaplex Token Metadata program.
var TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// ErrInvalidRecord is returned when account data does not decode as a metadata record.
var ErrInvalidRecord = errors.New("invalid metadata record")

// Metaplex account discriminator for MetadataV1.
const keyMetadataV1 = uint8(4)

// Record is the on-chain Metaplex metadata account, up to the seller fee.
// Creators and the trailing optional fields are not decoded.
type Record struct {
	Key                  uint8
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// DeriveMetadataAddress returns the metadata PDA for a mint:
// seeds ["metadata", program id, mint] under the Token Metadata program.
func DeriveMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			TokenMetadataProgramID.Bytes(),
			mint.Bytes(),
		},
		TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}
	return addr, nil
}

// DecodeRecord parses borsh-encoded metadata account data.
// Layout:
//
//	[0]      key (u8)
//	[1..33]  update authority
//	[33..65] mint
//	name, symbol, uri as u32-length-prefixed strings (NUL padded)
//	seller fee basis points (u16)
func DecodeRecord(data []byte) (*Record, error) {
	r := &reader{buf: data}

	key, err := r.u8()
	if err != nil {
		return nil, err
	}
	if key != keyMetadataV1 {
		return nil, fmt.Errorf("%w: unexpected account key %d", ErrInvalidRecord, key)
	}

	rec := &Record{Key: key}
	if rec.UpdateAuthority, err = r.pubkey(); err != nil {
		return nil, err
	}
	if rec.Mint, err = r.pubkey(); err != nil {
		return nil, err
	}
	if rec.Name, err = r.str(); err != nil {
		return nil, err
	}
	if rec.Symbol, err = r.str(); err != nil {
		return nil, err
	}
	if rec.URI, err = r.str(); err != nil {
		return nil, err
	}
	if rec.SellerFeeBasisPoints, err = r.u16(); err != nil {
		return nil, err
	}
	return rec, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrInvalidRecord, n, r.off, len(r.buf))
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) pubkey() (solana.PublicKey, error) {
	b, err := r.take(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func (r *reader) str() (string, error) {
	lenBytes, err := r.take(4)
	if err != nil {
		return "", err
	}
	b, err := r.take(int(binary.LittleEndian.Uint32(lenBytes)))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}
