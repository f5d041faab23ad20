package telephony

import "context"

// NumberType selects the kind of number to search for.
type NumberType string

const (
	NumberTypeLocal    NumberType = "local"
	NumberTypeMobile   NumberType = "mobile"
	NumberTypeTollFree NumberType = "toll-free"
)

// Capabilities filters available numbers.
type Capabilities struct {
	Voice bool
	SMS   bool
}

// OwnedNumber is a number held in the account inventory.
type OwnedNumber struct {
	SID    string
	Number string
}

// AvailableNumber is a number that can be purchased.
type AvailableNumber struct {
	Number   string
	Country  string
	Locality string
}

// Platform is the set of telephony operations the phone pool needs.
type Platform interface {
	ListOwnedNumbers(ctx context.Context) ([]OwnedNumber, error)
	SearchAvailableNumbers(ctx context.Context, country string, typ NumberType, caps Capabilities) ([]AvailableNumber, error)
	PurchaseNumber(ctx context.Context, number string) (*OwnedNumber, error)
}
