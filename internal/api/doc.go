// Package api exposes deployments, fleet upgrades and phone number changes
// over HTTP.
//
// Every JSON response is an envelope: {"success": true, "data": ...} or
// {"success": false, "error": "..."}. Advisory step failures do not change a
// successful response's status.
package api
