package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/imamik/squadfleet/internal/template"
)

// Archive implements template.Archive on top of a Client.
type Archive struct {
	client *Client
}

// NewArchive creates an archive that writes to client's bucket.
func NewArchive(client *Client) *Archive {
	return &Archive{client: client}
}

// Key returns the object key of a template snapshot.
func Key(name, version string) string {
	return path.Join("templates", name, strings.TrimPrefix(version, "v")+".yaml")
}

// Put stores t under its name and version.
func (a *Archive) Put(ctx context.Context, t *template.Template) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode template %s: %w", t.Name, err)
	}
	return a.client.PutObject(ctx, Key(t.Name, t.Version), data, "application/yaml")
}

// Get loads the snapshot of name at version.
func (a *Archive) Get(ctx context.Context, name, version string) (*template.Template, error) {
	data, err := a.client.GetObject(ctx, Key(name, version))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s@%s is not archived", template.ErrNoTemplate, name, version)
		}
		return nil, err
	}
	return template.Parse(data)
}

// Versions lists the archived versions of name, lowest first.
func (a *Archive) Versions(ctx context.Context, name string) ([]string, error) {
	keys, err := a.client.ListKeys(ctx, path.Join("templates", name)+"/")
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(keys))
	for _, k := range keys {
		versions = append(versions, strings.TrimSuffix(path.Base(k), ".yaml"))
	}
	sort.Slice(versions, func(i, j int) bool {
		return template.CompareVersions(versions[i], versions[j]) < 0
	})
	return versions, nil
}
