package provider

import "strconv"

// balanceWindow is how many recent transactions we pull when deriving an
// account balance. The provider's account list omits balances, so the most
// recent running_balance stands in for them.
const balanceWindow = 20

// resolveBalance scans transactions in provider-returned order (most recent
// first) and takes the first non-null running balance as authoritative.
// An account with no usable running balance yields a zero balance rather
// than an error so that account listing still succeeds.
func resolveBalance(txs []apiTransaction) Balance {
	for _, tx := range txs {
		if tx.RunningBalance == nil {
			continue
		}
		amount, err := strconv.ParseFloat(*tx.RunningBalance, 64)
		if err != nil {
			continue
		}
		return Balance{Amount: amount, Currency: DefaultCurrency}
	}
	return Balance{Amount: 0, Currency: DefaultCurrency}
}

// parseAmount coerces the provider's string amounts to a number, defaulting
// to 0 on malformed input.
func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
