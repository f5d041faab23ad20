package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/squadfleet/internal/platform/telephony"
)

// FakeTelephony is an in-memory telephony.Platform. Available numbers are
// listed per country; purchasing one moves it into the owned inventory.
type FakeTelephony struct {
	mu        sync.Mutex
	seq       int
	owned     []telephony.OwnedNumber
	available map[string][]telephony.AvailableNumber
	searches  []string
	purchases []string

	PurchaseHook func(number string) error
	SearchHook   func(country string) error

	// LostPurchaseHook runs after a purchase went through; an error it
	// returns is what the caller sees instead of the bought number.
	LostPurchaseHook func(number string) error
}

var _ telephony.Platform = (*FakeTelephony)(nil)

// NewFakeTelephony creates an empty FakeTelephony.
func NewFakeTelephony() *FakeTelephony {
	return &FakeTelephony{available: make(map[string][]telephony.AvailableNumber)}
}

// AddOwned puts numbers in the owned inventory.
func (f *FakeTelephony) AddOwned(numbers ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range numbers {
		f.seq++
		f.owned = append(f.owned, telephony.OwnedNumber{SID: fmt.Sprintf("PN%d", f.seq), Number: n})
	}
}

// AddAvailable lists numbers for purchase in country.
func (f *FakeTelephony) AddAvailable(country string, numbers ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range numbers {
		f.available[country] = append(f.available[country], telephony.AvailableNumber{Number: n, Country: country})
	}
}

// Searches returns the countries searched, in order.
func (f *FakeTelephony) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

// Purchases returns the numbers bought, in order.
func (f *FakeTelephony) Purchases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.purchases...)
}

func (f *FakeTelephony) ListOwnedNumbers(context.Context) ([]telephony.OwnedNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]telephony.OwnedNumber(nil), f.owned...), nil
}

func (f *FakeTelephony) SearchAvailableNumbers(_ context.Context, country string, _ telephony.NumberType, _ telephony.Capabilities) ([]telephony.AvailableNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, country)
	if f.SearchHook != nil {
		if err := f.SearchHook(country); err != nil {
			return nil, err
		}
	}
	return append([]telephony.AvailableNumber(nil), f.available[country]...), nil
}

func (f *FakeTelephony) PurchaseNumber(_ context.Context, number string) (*telephony.OwnedNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PurchaseHook != nil {
		if err := f.PurchaseHook(number); err != nil {
			return nil, err
		}
	}
	for country, list := range f.available {
		for i, a := range list {
			if a.Number != number {
				continue
			}
			f.available[country] = append(list[:i:i], list[i+1:]...)
			f.seq++
			owned := telephony.OwnedNumber{SID: fmt.Sprintf("PN%d", f.seq), Number: number}
			f.owned = append(f.owned, owned)
			f.purchases = append(f.purchases, number)
			if f.LostPurchaseHook != nil {
				if err := f.LostPurchaseHook(number); err != nil {
					return nil, err
				}
			}
			return &owned, nil
		}
	}
	return nil, fmt.Errorf("number %s is not available", number)
}
