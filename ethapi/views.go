package ethapi

import (
	"encoding/json"
	"math/big"

	"github.com/DOIDFoundation/ethnode/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// BlockView is the JSON form of a block or an uncle header.
type BlockView struct {
	Hash             common.Hash      `json:"hash"`
	Size             *hexutil.Uint64  `json:"size"`
	ParentHash       common.Hash      `json:"parentHash"`
	UncleHash        common.Hash      `json:"sha3Uncles"`
	Author           common.Address   `json:"author"`
	Miner            common.Address   `json:"miner"`
	StateRoot        common.Hash      `json:"stateRoot"`
	TransactionsRoot common.Hash      `json:"transactionsRoot"`
	ReceiptsRoot     common.Hash      `json:"receiptsRoot"`
	Number           *hexutil.Big     `json:"number"`
	GasUsed          hexutil.Uint64   `json:"gasUsed"`
	GasLimit         hexutil.Uint64   `json:"gasLimit"`
	LogsBloom        types.Bloom      `json:"logsBloom"`
	Timestamp        hexutil.Uint64   `json:"timestamp"`
	Difficulty       *hexutil.Big     `json:"difficulty"`
	TotalDifficulty  *hexutil.Big     `json:"totalDifficulty"`
	SealFields       []hexutil.Bytes  `json:"sealFields"`
	MixHash          common.Hash      `json:"mixHash"`
	Nonce            types.BlockNonce `json:"nonce"`
	Uncles           []common.Hash    `json:"uncles"`
	// Transactions holds hashes or full TransactionViews.
	Transactions interface{}   `json:"transactions"`
	ExtraData    hexutil.Bytes `json:"extraData"`
}

func newHeaderView(header *types.Header, td *big.Int) *BlockView {
	return &BlockView{
		Hash:             header.Hash(),
		ParentHash:       header.ParentHash,
		UncleHash:        header.UncleHash,
		Author:           header.Coinbase,
		Miner:            header.Coinbase,
		StateRoot:        header.Root,
		TransactionsRoot: header.TxHash,
		ReceiptsRoot:     header.ReceiptHash,
		Number:           (*hexutil.Big)(header.Number),
		GasUsed:          hexutil.Uint64(header.GasUsed),
		GasLimit:         hexutil.Uint64(header.GasLimit),
		LogsBloom:        header.Bloom,
		Timestamp:        hexutil.Uint64(header.Time),
		Difficulty:       (*hexutil.Big)(header.Difficulty),
		TotalDifficulty:  (*hexutil.Big)(td),
		SealFields:       []hexutil.Bytes{header.MixDigest.Bytes(), header.Nonce[:]},
		MixHash:          header.MixDigest,
		Nonce:            header.Nonce,
		Uncles:           []common.Hash{},
		Transactions:     []common.Hash{},
		ExtraData:        header.Extra,
	}
}

// NewBlockView projects block with its total difficulty, listing full
// transactions when fullTx is set and their hashes otherwise.
func NewBlockView(block *types.Block, td *big.Int, fullTx bool, signer ethtypes.Signer) *BlockView {
	view := newHeaderView(block.Header(), td)
	size := hexutil.Uint64(block.Size())
	view.Size = &size
	for _, uncle := range block.Uncles() {
		view.Uncles = append(view.Uncles, uncle.Hash())
	}

	var (
		hash   = block.Hash()
		number = block.NumberU64()
		txs    = block.Transactions()
	)
	if !fullTx {
		hashes := make([]common.Hash, len(txs))
		for i, tx := range txs {
			hashes[i] = tx.Hash()
		}
		view.Transactions = hashes
		return view
	}
	full := make([]*TransactionView, len(txs))
	for i, tx := range txs {
		from, _ := ethtypes.Sender(signer, tx)
		index := uint64(i)
		full[i] = NewTransactionView(&types.LocalizedTransaction{
			Transaction: tx,
			From:        from,
			BlockHash:   &hash,
			BlockNumber: &number,
			Index:       &index,
		})
	}
	view.Transactions = full
	return view
}

// NewUncleView projects an uncle header. Uncles carry no size, uncles or
// transactions of their own.
func NewUncleView(uncle *types.Header, td *big.Int) *BlockView {
	return newHeaderView(uncle, td)
}

type TransactionView struct {
	Hash             common.Hash     `json:"hash"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Big    `json:"blockNumber"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Value            *hexutil.Big    `json:"value"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Gas              hexutil.Uint64  `json:"gas"`
	Input            hexutil.Bytes   `json:"input"`
	Creates          *common.Address `json:"creates"`
	Raw              hexutil.Bytes   `json:"raw"`
	Type             hexutil.Uint64  `json:"type"`
	ChainID          *hexutil.Big    `json:"chainId,omitempty"`
	V                *hexutil.Big    `json:"v"`
	R                *hexutil.Big    `json:"r"`
	S                *hexutil.Big    `json:"s"`
}

// NewTransactionView projects tx, leaving the position fields null for
// pending transactions.
func NewTransactionView(tx *types.LocalizedTransaction) *TransactionView {
	v, r, s := tx.RawSignatureValues()
	raw, _ := tx.MarshalBinary()
	view := &TransactionView{
		Hash:      tx.Hash(),
		Nonce:     hexutil.Uint64(tx.Nonce()),
		BlockHash: tx.BlockHash,
		From:      tx.From,
		To:        tx.To(),
		Value:     (*hexutil.Big)(tx.Value()),
		GasPrice:  (*hexutil.Big)(tx.GasPrice()),
		Gas:       hexutil.Uint64(tx.Gas()),
		Input:     tx.Data(),
		Raw:       raw,
		Type:      hexutil.Uint64(tx.Type()),
		V:         (*hexutil.Big)(v),
		R:         (*hexutil.Big)(r),
		S:         (*hexutil.Big)(s),
	}
	if tx.Protected() {
		view.ChainID = (*hexutil.Big)(tx.ChainId())
	}
	if tx.BlockNumber != nil {
		view.BlockNumber = (*hexutil.Big)(new(big.Int).SetUint64(*tx.BlockNumber))
	}
	if tx.Index != nil {
		index := hexutil.Uint64(*tx.Index)
		view.TransactionIndex = &index
	}
	if tx.To() == nil {
		creates := crypto.CreateAddress(tx.From, tx.Nonce())
		view.Creates = &creates
	}
	return view
}

type ReceiptView struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  *hexutil.Uint64 `json:"transactionIndex"`
	BlockHash         *common.Hash    `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Status            hexutil.Uint64  `json:"status"`
	LogsBloom         types.Bloom     `json:"logsBloom"`
	Logs              []*LogView      `json:"logs"`
}

// NewReceiptView projects a committed receipt, or a pending one without
// block position.
func NewReceiptView(receipt *types.Receipt, pending bool) *ReceiptView {
	view := &ReceiptView{
		TransactionHash:   receipt.TxHash,
		CumulativeGasUsed: hexutil.Uint64(receipt.CumulativeGasUsed),
		GasUsed:           hexutil.Uint64(receipt.GasUsed),
		Status:            hexutil.Uint64(receipt.Status),
		LogsBloom:         receipt.Bloom,
		Logs:              make([]*LogView, len(receipt.Logs)),
	}
	if !pending {
		index := hexutil.Uint64(receipt.TransactionIndex)
		view.TransactionIndex = &index
		blockHash := receipt.BlockHash
		view.BlockHash = &blockHash
		view.BlockNumber = (*hexutil.Big)(receipt.BlockNumber)
	}
	if receipt.ContractAddress != (common.Address{}) {
		addr := receipt.ContractAddress
		view.ContractAddress = &addr
	}
	for i, log := range receipt.Logs {
		if pending {
			view.Logs[i] = NewPendingLogView(log, receipt.TxHash)
		} else {
			view.Logs[i] = NewLogView(log)
		}
	}
	return view
}

const (
	logMined   = "mined"
	logPending = "pending"
)

type LogView struct {
	Address          common.Address  `json:"address"`
	Topics           []common.Hash   `json:"topics"`
	Data             hexutil.Bytes   `json:"data"`
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Uint64 `json:"blockNumber"`
	TransactionHash  *common.Hash    `json:"transactionHash"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	LogIndex         *hexutil.Uint64 `json:"logIndex"`
	Type             string          `json:"type"`
}

// NewLogView projects a log of a committed block.
func NewLogView(log *types.Log) *LogView {
	var (
		blockHash   = log.BlockHash
		blockNumber = hexutil.Uint64(log.BlockNumber)
		txHash      = log.TxHash
		txIndex     = hexutil.Uint64(log.TxIndex)
		logIndex    = hexutil.Uint64(log.Index)
	)
	return &LogView{
		Address:          log.Address,
		Topics:           topics(log),
		Data:             log.Data,
		BlockHash:        &blockHash,
		BlockNumber:      &blockNumber,
		TransactionHash:  &txHash,
		TransactionIndex: &txIndex,
		LogIndex:         &logIndex,
		Type:             logMined,
	}
}

// NewPendingLogView projects a log of the pending block, stamped with the
// hash of the transaction that emitted it.
func NewPendingLogView(log *types.Log, txHash common.Hash) *LogView {
	return &LogView{
		Address:         log.Address,
		Topics:          topics(log),
		Data:            log.Data,
		TransactionHash: &txHash,
		Type:            logPending,
	}
}

func topics(log *types.Log) []common.Hash {
	if log.Topics == nil {
		return []common.Hash{}
	}
	return log.Topics
}

type SyncInfoView struct {
	StartingBlock hexutil.Uint64 `json:"startingBlock"`
	CurrentBlock  hexutil.Uint64 `json:"currentBlock"`
	HighestBlock  hexutil.Uint64 `json:"highestBlock"`
}

// WorkView is a work package, encoded as the array
// [powHash, seedHash, target] with the block number appended if known.
type WorkView struct {
	PowHash  common.Hash
	SeedHash common.Hash
	Target   common.Hash
	Number   *uint64
}

func (w *WorkView) MarshalJSON() ([]byte, error) {
	work := []interface{}{w.PowHash, w.SeedHash, w.Target}
	if w.Number != nil {
		work = append(work, hexutil.Uint64(*w.Number))
	}
	return json.Marshal(work)
}
