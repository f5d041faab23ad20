// Package testing provides fakes, builders and fixtures shared by unit tests.
//
//   - FakeVoice: in-memory voice platform with per-operation failure hooks
//   - FakeTelephony: in-memory number inventory and marketplace
//   - AccountBuilder / RecordBuilder: fluent builders for store records
//   - Fixture: a wired set of in-memory stores and fake platforms
//   - MockPublisher / RecordingPublisher: outcome event publishers
//
// Usage:
//
//	fx := testing.NewFixture()
//	fx.Tenants.Put(testing.NewAccountBuilder("clinic-1").Build())
//	fx.Telephony.AddOwned("+14155550100")
package testing
