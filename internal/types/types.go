// README: Common value objects used across modules.
package types

// ID is an opaque document identifier.
type ID string

type Money struct {
	Amount   int64
	Currency string
}

// Rupiah builds an IDR amount; every price in the system is rupiah.
func Rupiah(amount int64) Money {
	return Money{Amount: amount, Currency: "IDR"}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

func (m Money) Mul(n int64) Money {
	return Money{Amount: m.Amount * n, Currency: m.Currency}
}
