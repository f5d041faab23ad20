package telephony

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/imamik/squadfleet/internal/metrics"
)

// twilioAPI is the subset of the Twilio v2010 API used here.
type twilioAPI interface {
	ListIncomingPhoneNumber(params *openapi.ListIncomingPhoneNumberParams) ([]openapi.ApiV2010IncomingPhoneNumber, error)
	ListAvailablePhoneNumberLocal(countryCode string, params *openapi.ListAvailablePhoneNumberLocalParams) ([]openapi.ApiV2010AvailablePhoneNumberLocal, error)
	ListAvailablePhoneNumberMobile(countryCode string, params *openapi.ListAvailablePhoneNumberMobileParams) ([]openapi.ApiV2010AvailablePhoneNumberMobile, error)
	ListAvailablePhoneNumberTollFree(countryCode string, params *openapi.ListAvailablePhoneNumberTollFreeParams) ([]openapi.ApiV2010AvailablePhoneNumberTollFree, error)
	CreateIncomingPhoneNumber(params *openapi.CreateIncomingPhoneNumberParams) (*openapi.ApiV2010IncomingPhoneNumber, error)
}

// TwilioClient implements Platform on Twilio.
//
// The Twilio SDK does not accept a context; calls check ctx before they
// start and are bounded by the SDK client's own timeout.
type TwilioClient struct {
	api          twilioAPI
	friendlyName string
}

// NewTwilioClient creates a client for the given account.
func NewTwilioClient(accountSID, authToken, friendlyName string) *TwilioClient {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioClient{api: rest.Api, friendlyName: friendlyName}
}

func (c *TwilioClient) ListOwnedNumbers(ctx context.Context) ([]OwnedNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &openapi.ListIncomingPhoneNumberParams{}
	params.SetPageSize(1000)

	start := time.Now()
	records, err := c.api.ListIncomingPhoneNumber(params)
	metrics.RecordPlatformCall("telephony", "list_owned_numbers", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("list owned numbers: %w", err)
	}

	out := make([]OwnedNumber, 0, len(records))
	for _, r := range records {
		if r.PhoneNumber == nil {
			continue
		}
		out = append(out, OwnedNumber{SID: deref(r.Sid), Number: *r.PhoneNumber})
	}
	return out, nil
}

func (c *TwilioClient) SearchAvailableNumbers(ctx context.Context, country string, typ NumberType, caps Capabilities) ([]AvailableNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := c.search(country, typ, caps)
	metrics.RecordPlatformCall("telephony", "search_available_numbers", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("search %s numbers in %s: %w", typ, country, err)
	}
	return out, nil
}

func (c *TwilioClient) search(country string, typ NumberType, caps Capabilities) ([]AvailableNumber, error) {
	var out []AvailableNumber
	switch typ {
	case NumberTypeLocal, "":
		params := &openapi.ListAvailablePhoneNumberLocalParams{}
		params.SetLimit(5)
		if caps.Voice {
			params.SetVoiceEnabled(true)
		}
		if caps.SMS {
			params.SetSmsEnabled(true)
		}
		res, err := c.api.ListAvailablePhoneNumberLocal(country, params)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			out = append(out, AvailableNumber{Number: deref(r.PhoneNumber), Country: deref(r.IsoCountry), Locality: deref(r.Locality)})
		}
	case NumberTypeMobile:
		params := &openapi.ListAvailablePhoneNumberMobileParams{}
		params.SetLimit(5)
		if caps.Voice {
			params.SetVoiceEnabled(true)
		}
		if caps.SMS {
			params.SetSmsEnabled(true)
		}
		res, err := c.api.ListAvailablePhoneNumberMobile(country, params)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			out = append(out, AvailableNumber{Number: deref(r.PhoneNumber), Country: deref(r.IsoCountry), Locality: deref(r.Locality)})
		}
	case NumberTypeTollFree:
		params := &openapi.ListAvailablePhoneNumberTollFreeParams{}
		params.SetLimit(5)
		if caps.Voice {
			params.SetVoiceEnabled(true)
		}
		if caps.SMS {
			params.SetSmsEnabled(true)
		}
		res, err := c.api.ListAvailablePhoneNumberTollFree(country, params)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			out = append(out, AvailableNumber{Number: deref(r.PhoneNumber), Country: deref(r.IsoCountry), Locality: deref(r.Locality)})
		}
	default:
		return nil, fmt.Errorf("unsupported number type %q", typ)
	}

	numbers := out[:0]
	for _, n := range out {
		if n.Number != "" {
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}

func (c *TwilioClient) PurchaseNumber(ctx context.Context, number string) (*OwnedNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &openapi.CreateIncomingPhoneNumberParams{}
	params.SetPhoneNumber(number)
	if c.friendlyName != "" {
		params.SetFriendlyName(c.friendlyName)
	}

	start := time.Now()
	rec, err := c.api.CreateIncomingPhoneNumber(params)
	metrics.RecordPlatformCall("telephony", "purchase_number", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("purchase %s: %w", number, err)
	}
	return &OwnedNumber{SID: deref(rec.Sid), Number: deref(rec.PhoneNumber)}, nil
}

// IsTransient reports whether a Twilio error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		return restErr.Status == 429 || restErr.Status >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
