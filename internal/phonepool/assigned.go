package phonepool

import "github.com/imamik/squadfleet/internal/store"

// ComputeAssigned returns every number bound to a deployment or recorded in
// the phone registry, mapped to the tenant holding it. Deployment bindings
// win over registry entries for the same number.
func ComputeAssigned(records []store.DeploymentRecord, registry []store.RegistryRecord) map[string]string {
	assigned := make(map[string]string, len(records)+len(registry))
	for _, r := range registry {
		if r.PhoneNumber != "" {
			assigned[r.PhoneNumber] = r.TenantID
		}
	}
	for _, r := range records {
		if r.PhoneNumber != "" {
			assigned[r.PhoneNumber] = r.TenantID
		}
	}
	return assigned
}
