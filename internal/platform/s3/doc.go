// Package s3 stores template snapshots in S3-compatible object storage.
//
// Every template version that is synced to the database is also written to
// templates/<name>/<version>.yaml so that fleet upgrades can diff against
// versions the database no longer holds.
package s3
