package chain

// OurbitrageABI is the subset of the Ourbitrage contract interface used by the monitor
const OurbitrageABI = `[
	{"inputs":[],"name":"getVersion","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"string","name":"fromSymbol","type":"string"},{"internalType":"string","name":"toSymbol","type":"string"},{"internalType":"string","name":"venue","type":"string"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"getPrice","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"string","name":"fundingToken","type":"string"}],"name":"arbEthFromKyberToUniswap","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"string","name":"fundingToken","type":"string"}],"name":"arbEthFromUniswapToKyber","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Method names called directly by the monitor
const (
	MethodGetVersion = "getVersion"
	MethodGetPrice   = "getPrice"
)
