package contract

// PonziID is the builtin key of the Ponzi token contract.
const PonziID = "ponzi"

// Function names on the Ponzi contract.
const (
	FnBalanceOf   = "balanceOf"
	FnDeposit     = "deposit"
	FnWithdraw    = "withdraw"
	FnWithdrawAll = "withdrawAll"
)

// Ponzi is an ERC-20 whose supply is minted 1:1 against deposited ether.
//
// Function selectors:
//
//	name()              → 0x06fdde03
//	symbol()            → 0x95d89b41
//	decimals()          → 0x313ce567
//	totalSupply()       → 0x18160ddd
//	balanceOf(address)  → 0x70a08231
//	deposit()           → 0xd0e30db0
//	withdraw(uint256)   → 0x2e1a7d4d
//	withdrawAll()       → 0x853828b6
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          PonziID,
		Name:        "Ponzi (ether-backed ERC-20)",
		Description: "Deposit ether to mint PONZI, withdraw to burn it and get the ether back.",
		ABI:         ponziABI,
	})
}

// PonziABI returns the Ponzi ABI registered under PonziID.
func PonziABI() ABI { return GetBuiltinABI(PonziID) }

var ponziABI = ABI{
	// ── Read ─────────────────────────────────────────────────────────────────
	{
		Name: "name", Type: "function",
		Outputs:         []ABIParam{{Type: "string"}},
		StateMutability: "view",
	},
	{
		Name: "symbol", Type: "function",
		Outputs:         []ABIParam{{Type: "string"}},
		StateMutability: "view",
	},
	{
		Name: "decimals", Type: "function",
		Outputs:         []ABIParam{{Type: "uint8"}},
		StateMutability: "view",
	},
	{
		Name: "totalSupply", Type: "function",
		Outputs:         []ABIParam{{Type: "uint256"}},
		StateMutability: "view",
	},
	{
		Name: FnBalanceOf, Type: "function",
		Inputs:          []ABIParam{{Name: "account", Type: "address"}},
		Outputs:         []ABIParam{{Type: "uint256"}},
		StateMutability: "view",
	},
	// ── Write ────────────────────────────────────────────────────────────────
	{
		Name: FnDeposit, Type: "function",
		StateMutability: "payable",
	},
	{
		Name: FnWithdraw, Type: "function",
		Inputs:          []ABIParam{{Name: "amount", Type: "uint256"}},
		StateMutability: "nonpayable",
	},
	{
		Name: FnWithdrawAll, Type: "function",
		StateMutability: "nonpayable",
	},
}
