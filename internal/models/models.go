package models

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Admin{},
		&TradingAccount{},
		&Instrument{},
		&Trade{},
		&TradeAudit{},
		&ChargeRule{},
		&PaymentMethod{},
		&Wallet{},
		&WalletTransaction{},
		&IBPlan{},
		&IBProfile{},
		&IBSettings{},
		&IBCommission{},
		&KYCSubmission{},
	}
}
