package flags

const (
	Home  = "home"
	Trace = "trace"

	DB_Engine = "db.engine"

	Log_Level = "log.level"

	Chain_ID      = "chain.id"
	State_Keep    = "state.keep"
	Genesis_Alloc = "genesis.alloc"

	Mine_Enabled  = "mine.enabled"
	Mine_Threads  = "mine.threads"
	Mine_Author   = "mine.author"
	Mine_Recommit = "mine.recommit"
	Mine_GasPrice = "mine.gasprice"

	Accounts = "accounts"

	RPC_Addr = "rpc.addr"

	Eth_PendingReceipts = "eth.pending_receipts"
	Eth_WorkNumber      = "eth.work_number"

	Solc_Path    = "solc.path"
	Solc_Timeout = "solc.timeout"

	Dapps_Dir       = "dapps.dir"
	Dapps_CacheSize = "dapps.cache_size"
)
