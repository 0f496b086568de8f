package stub

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/fieldline/automation/pkg/services"
)

// DirectoryUser is one entry of the stub user directory.
type DirectoryUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`
}

type directoryFile struct {
	Users []DirectoryUser `yaml:"users"`
}

// Directory resolves recipients from a fixed user list. Salesperson and
// project manager resolve through the event snapshot's *_id fields; customer
// contact details come from the snapshot itself.
type Directory struct {
	mu    sync.RWMutex
	users map[string]DirectoryUser
}

func NewDirectory(users ...DirectoryUser) *Directory {
	d := &Directory{users: make(map[string]DirectoryUser, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}

	return d
}

// LoadDirectory reads the user list from a YAML file.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory config %s: %w", path, err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directory config: %w", err)
	}

	return NewDirectory(file.Users...), nil
}

func (d *Directory) ResolveUser(_ context.Context, userID string) (services.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return services.Contact{}, fmt.Errorf("user %s: %w", userID, services.ErrNotFound)
	}

	return contactOf(user), nil
}

func (d *Directory) ResolveRole(ctx context.Context, role string) (services.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, user := range d.users {
		if user.Role == role {
			return contactOf(user), nil
		}
	}

	return services.Contact{}, fmt.Errorf("role %s: %w", role, services.ErrNotFound)
}

func (d *Directory) ResolveRecipient(ctx context.Context, recipientType services.RecipientType, userID string, snapshot map[string]any) (services.Contact, error) {
	switch recipientType {
	case services.RecipientSpecificUser:
		return d.ResolveUser(ctx, userID)
	case services.RecipientSalesperson:
		return d.resolveSnapshotUser(ctx, snapshot, "salesperson_id")
	case services.RecipientProjectManager:
		return d.resolveSnapshotUser(ctx, snapshot, "project_manager_id")
	case services.RecipientCustomer:
		return customerContact(snapshot)
	default:
		return services.Contact{}, fmt.Errorf("unknown recipient type %q: %w", recipientType, services.ErrNotFound)
	}
}

func (d *Directory) resolveSnapshotUser(ctx context.Context, snapshot map[string]any, key string) (services.Contact, error) {
	id, _ := snapshot[key].(string)
	if id == "" {
		return services.Contact{}, fmt.Errorf("snapshot has no %s: %w", key, services.ErrNotFound)
	}

	return d.ResolveUser(ctx, id)
}

func customerContact(snapshot map[string]any) (services.Contact, error) {
	name, _ := snapshot["customer_name"].(string)
	phone, _ := snapshot["customer_phone"].(string)
	email, _ := snapshot["customer_email"].(string)

	if name == "" && phone == "" && email == "" {
		return services.Contact{}, fmt.Errorf("snapshot carries no customer contact: %w", services.ErrNotFound)
	}

	return services.Contact{ID: "customer", Name: name, Phone: phone, Email: email}, nil
}

func contactOf(user DirectoryUser) services.Contact {
	return services.Contact{
		ID:    user.ID,
		Name:  user.Name,
		Phone: user.Phone,
		Email: user.Email,
	}
}
