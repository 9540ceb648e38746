package database

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/qrcledger/node/foundation/blockchain/signature"
)

// MaxDifficulty is the largest difficulty a 256 bit hash can satisfy.
const MaxDifficulty = 64

// checkInterval is the number of nonce attempts between cancellation checks.
const checkInterval = 1_000

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64 `json:"number"`          // Block number in the chain, 0 is genesis.
	PrevBlockHash string `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64 `json:"timestamp"`       // Unix milliseconds the block was assembled.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
	Difficulty    uint8  `json:"difficulty"`      // Number of leading zero hex digits required.
}

// Block represents a group of transactions batched together. A block is
// sealed once its hash is set and is read-only from then on.
type Block struct {
	Header BlockHeader
	Trans  []Tx
	hash   string
}

// GenesisBlock constructs the first block of the chain. It holds no
// transactions and links to the zero hash.
func GenesisBlock(timeStamp uint64) Block {
	b := Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     timeStamp,
		},
	}
	b.hash = b.ComputeHash()

	return b
}

// Hash returns the sealed hash of the block.
func (b Block) Hash() string {
	return b.hash
}

// ComputeHash runs the hash engine over the block content. The sealed hash
// is never part of its own input.
func (b Block) ComputeHash() string {
	return hashBlock(b.Header, transJSON(b.Trans))
}

// IsSolved reports whether the sealed hash meets the block's difficulty.
func (b Block) IsSolved() bool {
	return isHashSolved(b.Header.Difficulty, b.hash)
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Difficulty uint8
	PrevBlock  Block
	Trans      []Tx
	TimeStamp  uint64 // Zero means use the current time.
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block linked to the previous block and performs the
// work to find a nonce that solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	timeStamp := args.TimeStamp
	if timeStamp == 0 {
		timeStamp = uint64(time.Now().UTC().UnixMilli())
	}

	// The candidate gets its own copy of the transactions so nothing the
	// caller does afterwards can change what is being solved.
	trans := make([]Tx, len(args.Trans))
	copy(trans, args.Trans)

	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			PrevBlockHash: args.PrevBlock.Hash(),
			TimeStamp:     timeStamp,
			Nonce:         0, // Will be identified by the POW algorithm.
			Difficulty:    args.Difficulty,
		},
		Trans: trans,
	}

	return Solve(ctx, nb, args.EvHandler)
}

// Solve searches for the first nonce, counting up from zero, that solves the
// candidate block. The same candidate always produces the same sealed block.
func Solve(ctx context.Context, candidate Block, evHandler func(v string, args ...any)) (Block, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	if candidate.Header.Difficulty > MaxDifficulty {
		return Block{}, fmt.Errorf("difficulty %d is above the max of %d", candidate.Header.Difficulty, MaxDifficulty)
	}

	ev("database: Solve: MINING: started: blk[%d]: trans[%d]", candidate.Header.Number, len(candidate.Trans))
	defer ev("database: Solve: MINING: completed")

	// The transaction content doesn't change between attempts.
	tj := transJSON(candidate.Trans)

	b := candidate
	b.Header.Nonce = 0

	var attempts uint64
	for {
		attempts++
		if attempts%checkInterval == 0 && ctx.Err() != nil {
			ev("database: Solve: MINING: CANCELLED: attempts[%d]", attempts)
			return Block{}, fmt.Errorf("%w: %w", ErrMiningAborted, ctx.Err())
		}

		hash := hashBlock(b.Header, tj)
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		b.hash = hash

		ev("database: Solve: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)

		return b, nil
	}
}

// =============================================================================

// headerJSON is the layout of a block header when it's hashed. Fields are
// declared in key order.
type headerJSON struct {
	Difficulty    uint8  `json:"difficulty"`
	Nonce         uint64 `json:"nonce"`
	Number        uint64 `json:"number"`
	PrevBlockHash string `json:"prev_block_hash"`
	TimeStamp     uint64 `json:"timestamp"`
}

// transJSON produces the canonical JSON for the list of transactions in the
// order they appear in the block.
func transJSON(trans []Tx) []byte {
	ct := make([]canonicalTx, len(trans))
	for i, tx := range trans {
		ct[i] = tx.canonical()
	}

	data, err := json.Marshal(ct)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// hashBlock hashes the canonical document {header fields..., "trans": [...]}.
// The "trans" key sorts after every header key so the document stays in
// key order.
func hashBlock(h BlockHeader, trans []byte) string {
	hdr, err := json.Marshal(headerJSON{
		Difficulty:    h.Difficulty,
		Nonce:         h.Nonce,
		Number:        h.Number,
		PrevBlockHash: h.PrevBlockHash,
		TimeStamp:     h.TimeStamp,
	})
	if err != nil {
		return signature.ZeroHash
	}

	data := make([]byte, 0, len(hdr)+len(trans)+10)
	data = append(data, hdr[:len(hdr)-1]...)
	data = append(data, `,"trans":`...)
	data = append(data, trans...)
	data = append(data, '}')

	return signature.HashData(data)
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// Read as a 256 bit number the hash must be below 2^(256-4*difficulty),
// which is the same as having difficulty leading zero hex digits.
func isHashSolved(difficulty uint8, hash string) bool {
	if len(hash) != 64 {
		return false
	}

	digest, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}

	if difficulty == 0 {
		return true
	}
	if difficulty > MaxDifficulty {
		return false
	}

	target := new(uint256.Int).Lsh(uint256.NewInt(1), uint(256-4*int(difficulty)))
	value := new(uint256.Int).SetBytes32(digest)

	return value.Lt(target)
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []Tx        `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts a storage block into a database block. The stored hash is
// kept as is so validation can detect tampering.
func ToBlock(blockData BlockData) Block {
	return Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
		hash:   blockData.Hash,
	}
}
