/*
Package rpc serves the node API over JSON-RPC 2.0 on HTTP.

# Example

request:

	{"jsonrpc": "2.0", "method": "eth_getBalance", "params": ["0x407d73d8a49eeb85d32cf465507dd71d507100c1"], "id": 1}

response:

	{"jsonrpc":"2.0","id":1,"result":"0x0234c8a3397aab58"}

# Request

`method` in request is defined in `{namespace}_{methodName}` format where
  - `namespace` is given when registering methods by calling [Server.RegisterName]
  - `methodName` is the [Method] name

`params` are positional. Methods declare their parameters with [Req] and
[Opt]; a call must carry every required parameter and may leave out trailing
optional ones, which then take their default. Methods without parameters
accept an absent, null or empty params list only.

Block selectors are trailing optional parameters defaulting to "latest", so

	{"jsonrpc": "2.0", "method": "eth_getBalance", "params": ["0x407d73d8a49eeb85d32cf465507dd71d507100c1", "pending"], "id": 1}

queries the pending state instead.

# Errors

Handlers return [*Error] values carrying the JSON-RPC code, any other error
is reported as an internal error (-32603).

# Metrics

Call counts and latencies per method are served at /metrics.

# API List

`eth`
  - [github.com/DOIDFoundation/ethnode/ethapi.EthClient]

`txpool`
  - [github.com/DOIDFoundation/ethnode/mempool.API]

`node`
  - [github.com/DOIDFoundation/ethnode/node.API]
*/
package rpc
