package provisioning

import (
	"context"
	"fmt"

	"github.com/imamik/squadfleet/internal/platform/voice"
	"github.com/imamik/squadfleet/internal/util/naming"
)

// EnsurePhoneNumber makes number reachable through squadID. A number that
// is already imported is rebound; otherwise it is imported.
func (p *Provisioner) EnsurePhoneNumber(ctx context.Context, tenantID, number, squadID string) (*voice.PhoneNumber, error) {
	numbers, err := call(ctx, p, func() ([]voice.PhoneNumber, error) {
		return p.voice.ListPhoneNumbers(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list phone numbers: %w", err)
	}

	for _, existing := range numbers {
		if existing.Number != number {
			continue
		}
		if existing.SquadID == squadID {
			LogResourceExists(p.log, "phone number", number, existing.ID)
			return &existing, nil
		}
		updated, err := call(ctx, p, func() (*voice.PhoneNumber, error) {
			return p.voice.UpdatePhoneNumber(ctx, existing.ID, voice.PhoneNumberUpdate{SquadID: squadID})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to bind phone number %s: %w", number, err)
		}
		LogResourceUpdated(p.log, "phone number", number, updated.ID)
		return updated, nil
	}

	imported, err := call(ctx, p, func() (*voice.PhoneNumber, error) {
		return p.voice.ImportPhoneNumber(ctx, voice.PhoneNumberImport{
			Provider:         p.telephony.Provider,
			Number:           number,
			Name:             naming.PhoneNumber(tenantID),
			SquadID:          squadID,
			TwilioAccountSID: p.telephony.AccountSID,
			TwilioAuthToken:  p.telephony.AuthToken,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import phone number %s: %w", number, err)
	}
	LogResourceCreated(p.log, "phone number", number, imported.ID)
	return imported, nil
}
