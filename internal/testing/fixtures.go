package testing

import (
	"github.com/imamik/squadfleet/internal/store/memory"
)

// Fixture bundles in-memory stores and fake platforms for one test.
type Fixture struct {
	Tenants     *memory.Tenants
	Deployments *memory.Deployments
	Registry    *memory.Registry
	Templates   *memory.Templates
	Voice       *FakeVoice
	Telephony   *FakeTelephony
}

// NewFixture creates an empty fixture.
func NewFixture() *Fixture {
	return &Fixture{
		Tenants:     memory.NewTenants(),
		Deployments: memory.NewDeployments(),
		Registry:    memory.NewRegistry(),
		Templates:   memory.NewTemplates(),
		Voice:       NewFakeVoice(),
		Telephony:   NewFakeTelephony(),
	}
}
