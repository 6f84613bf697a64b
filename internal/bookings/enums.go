package bookings

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentEWallet      PaymentMethod = "E_WALLET"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentBankTransfer, PaymentCreditCard, PaymentEWallet:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}
