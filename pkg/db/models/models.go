package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Pack{},
		&Template{},
		&PackOffer{},
		&Order{},
		&PaymentValidation{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
