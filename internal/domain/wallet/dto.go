package wallet

import "github.com/shopspring/decimal"

// CreateDepositRequest is the member payload for a deposit request.
// ReceiptKey references an object previously uploaded through the presign
// endpoint.
type CreateDepositRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	ReceiptKey string          `json:"receipt_key" validate:"omitempty,max=512"`
}

// CreateWithdrawalRequest is the member payload for a withdrawal request
type CreateWithdrawalRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	CardNumber     string          `json:"card_number" validate:"required,min=12,max=19"`
	CardHolderName string          `json:"card_holder_name" validate:"required,min=2,max=100"`
}

// DecisionRequest is the admin payload deciding a pending transaction
type DecisionRequest struct {
	Action     string  `json:"action" validate:"required,wallet_action"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=1000"`
}
